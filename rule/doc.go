// Package rule implements a small expression language for describing
// gradual feature rollouts.
//
// A rule is a single formula such as
//
//	map(now(), datetime("2021-11-08"), datetime("2021-11-16"), 0, 1)
//
// evaluated against a context (the "environment") to produce a frequency,
// normally in the closed interval [0, 1]; [Evaluate] does not clamp the
// result, so a formula whose value falls outside that interval (such as
// the example above once now() is past either date) is returned as is.
// Formulas have no operators, no
// precedence, and no user-defined functions or variables: every
// expression is either a literal, an env lookup, or a call to one of the
// built-in functions in [Evaluate].
//
// # Basic usage
//
//	ok := rule.Validate(`eq(env["plan"], "pro")`)
//	freq, err := rule.Evaluate(`eq(env["plan"], "pro")`, env)
//
// # Grammar
//
// Formulas are parsed with a hand-written recursive-descent parser; see
// [Parse] for the exact production rules. There is deliberately no operator precedence
// to resolve: every construct is either a literal or a parenthesized
// call, so the grammar never needs it.
//
// # Values
//
// The env adapter coerces arbitrary JSON-shaped data into the small
// closed [Value] domain the evaluator understands; see [NewEnv] and
// [Value].
package rule
