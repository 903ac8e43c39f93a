package rule

import "strconv"

// Validate reports whether formula parses successfully. It never
// returns an error; callers that need the parse failure reason should
// call [Parse] directly.
func Validate(formula string) bool {
	_, err := parseCached(formula)

	return err == nil
}

// Evaluate parses (or reuses a cached parse of) formula and reduces it
// against env, then projects the resulting [Value] to a float32: Bool
// maps to 1.0/0.0, Int and Float are cast as-is, Str is parsed as a
// float or else 0.0, and every other kind (Null, List, Range) is 0.0.
// The result is not clamped to [0, 1]; callers that need a bucketing
// threshold apply that themselves (see [github.com/ardnew/rollout/bucket]).
//
// Any failure to parse or reduce formula — a syntax error, a type
// mismatch, the wrong number of arguments to a built-in, an unknown
// function name, an out-of-domain value, or a math error such as
// division by zero — is returned as [InvalidArgument].
func Evaluate(formula string, env *Env) (float32, error) {
	expr, err := parseCached(formula)
	if err != nil {
		return 0, asInvalidArgument(err)
	}

	ctx := &evalContext{env: env}

	v, err := ctx.eval(expr)
	if err != nil {
		return 0, asInvalidArgument(err)
	}

	return projectFrequency(v), nil
}

// projectFrequency implements the final Value-to-float32 projection.
func projectFrequency(v Value) float32 {
	switch v.Kind {
	case KindBool:
		if v.Bool {
			return 1
		}

		return 0
	case KindInt, KindFloat:
		return float32(v.asFloat64())
	case KindStr:
		f, err := strconv.ParseFloat(v.Str, 64)
		if err != nil {
			return 0
		}

		return float32(f)
	default:
		return 0
	}
}
