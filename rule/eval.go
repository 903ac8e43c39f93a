package rule

import (
	"log/slog"
	"math"
	"net"
	"regexp"
	"strings"
	"time"
)

// evalContext holds the state threaded through recursive evaluation.
// It carries only the environment; formulas have no other mutable or
// scoped state.
type evalContext struct {
	env *Env
}

// eval reduces an Expr to a Value against the context's environment.
func (c *evalContext) eval(e Expr) (Value, error) {
	switch e := e.(type) {
	case BoolLit:
		return boolValue(e.Value), nil

	case NumLit:
		if e.IsFloat {
			return floatValue(e.Float), nil
		}

		return intValue(e.Int), nil

	case StrLit:
		return strValue(e.Value), nil

	case EnvGet:
		return c.env.Get(e.Key), nil

	case ArrayLit:
		vals := make([]Value, len(e.Elems))

		for i, el := range e.Elems {
			v, err := c.eval(el)
			if err != nil {
				return Value{}, err
			}

			vals[i] = v
		}

		return listValue(vals), nil

	case RangeLit:
		lo, err := c.evalInt(e.Lo)
		if err != nil {
			return Value{}, err
		}

		hi, err := c.evalInt(e.Hi)
		if err != nil {
			return Value{}, err
		}

		if lo > hi {
			return Value{}, ErrDomain.With(
				slog.Int64("lo", lo),
				slog.Int64("hi", hi),
			)
		}

		return rangeValue(lo, hi), nil

	case Call:
		return c.call(e.Name, e.Args)

	default:
		return Value{}, ErrType.With(slog.String("reason", "unreachable expression kind"))
	}
}

func (c *evalContext) evalInt(e Expr) (int64, error) {
	v, err := c.eval(e)
	if err != nil {
		return 0, err
	}

	if v.Kind != KindInt {
		return 0, ErrType.With(
			slog.String("expected", "int"),
			slog.String("found", v.Kind.String()),
		)
	}

	return v.Int, nil
}

func (c *evalContext) evalArgs(args []Expr) ([]Value, error) {
	vals := make([]Value, len(args))

	for i, a := range args {
		v, err := c.eval(a)
		if err != nil {
			return nil, err
		}

		vals[i] = v
	}

	return vals, nil
}

func arityError(name string, want, got int) error {
	return ErrArity.With(
		slog.String("function", name),
		slog.Int("want", want),
		slog.Int("got", got),
	)
}

func typeError(name string, reason string) error {
	return ErrType.With(
		slog.String("function", name),
		slog.String("reason", reason),
	)
}

// call dispatches a built-in function by name. Every argument
// expression is evaluated by the specific case, since a few built-ins
// (and, or, if) short-circuit and must not evaluate every argument.
func (c *evalContext) call(name string, args []Expr) (Value, error) {
	switch name {
	case "isblank":
		return c.callIsblank(args)
	case "eq":
		return c.callCompare(name, args, cmpEq)
	case "gt":
		return c.callCompare(name, args, cmpGt)
	case "gte":
		return c.callCompare(name, args, cmpGte)
	case "lt":
		return c.callCompare(name, args, cmpLt)
	case "lte":
		return c.callCompare(name, args, cmpLte)
	case "now":
		return c.callNow(args)
	case "datetime":
		return c.callDatetime(args)
	case "ip":
		return c.callIP(args)
	case "cidr":
		return c.callCIDR(args)
	case "matches":
		return c.callMatches(args)
	case "contains":
		return c.callContains(args)
	case "not":
		return c.callNot(args)
	case "and":
		return c.callAnd(args)
	case "or":
		return c.callOr(args)
	case "if":
		return c.callIf(args)
	case "plus":
		return c.callArith(name, args, arithPlus)
	case "minus":
		return c.callArith(name, args, arithMinus)
	case "times":
		return c.callArith(name, args, arithTimes)
	case "div":
		return c.callDiv(args)
	case "rem":
		return c.callRem(args)
	case "log":
		return c.callUnaryMath(name, args, math.Log10)
	case "ln":
		return c.callUnaryMath(name, args, math.Log)
	case "pow":
		return c.callPow(args)
	case "exp":
		return c.callUnaryMath(name, args, math.Exp)
	case "map":
		return c.callMap(args)
	default:
		return Value{}, ErrUnknownFunction.With(slog.String("function", name))
	}
}

func (c *evalContext) callIsblank(args []Expr) (Value, error) {
	if len(args) != 1 {
		return Value{}, arityError("isblank", 1, len(args))
	}

	v, err := c.eval(args[0])
	if err != nil {
		return Value{}, err
	}

	return boolValue(v.IsNull() || (v.Kind == KindStr && v.Str == "")), nil
}

type cmpOp func(a, b Value) (bool, error)

func numeric(v Value) bool { return v.Kind == KindInt || v.Kind == KindFloat }

func cmpEq(a, b Value) (bool, error) {
	if numeric(a) && numeric(b) {
		return a.asFloat64() == b.asFloat64(), nil
	}

	if a.Kind != b.Kind {
		return false, nil
	}

	switch a.Kind {
	case KindNull:
		return true, nil
	case KindBool:
		return a.Bool == b.Bool, nil
	case KindStr:
		return a.Str == b.Str, nil
	case KindRange:
		return a.Range == b.Range, nil
	case KindList:
		if len(a.List) != len(b.List) {
			return false, nil
		}

		for i := range a.List {
			eq, err := cmpEq(a.List[i], b.List[i])
			if err != nil || !eq {
				return eq, err
			}
		}

		return true, nil
	default:
		return false, nil
	}
}

func cmpOrdered(name string, a, b Value) (int, error) {
	if numeric(a) && numeric(b) {
		af, bf := a.asFloat64(), b.asFloat64()

		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	}

	if a.Kind == KindStr && b.Kind == KindStr {
		return strings.Compare(a.Str, b.Str), nil
	}

	return 0, typeError(name, "operands must both be numeric or both be strings")
}

func cmpGt(a, b Value) (bool, error) {
	n, err := cmpOrdered("gt", a, b)

	return n > 0, err
}

func cmpGte(a, b Value) (bool, error) {
	n, err := cmpOrdered("gte", a, b)

	return n >= 0, err
}

func cmpLt(a, b Value) (bool, error) {
	n, err := cmpOrdered("lt", a, b)

	return n < 0, err
}

func cmpLte(a, b Value) (bool, error) {
	n, err := cmpOrdered("lte", a, b)

	return n <= 0, err
}

func (c *evalContext) callCompare(name string, args []Expr, op cmpOp) (Value, error) {
	if len(args) != 2 {
		return Value{}, arityError(name, 2, len(args))
	}

	vals, err := c.evalArgs(args)
	if err != nil {
		return Value{}, err
	}

	ok, err := op(vals[0], vals[1])
	if err != nil {
		return Value{}, err
	}

	return boolValue(ok), nil
}

// callNow returns the current time as an Int number of whole seconds
// since the Unix epoch, the same representation [datetime] produces,
// so the two are directly comparable and can be fed into [map].
func (c *evalContext) callNow(args []Expr) (Value, error) {
	if len(args) != 0 {
		return Value{}, arityError("now", 0, len(args))
	}

	return intValue(time.Now().UTC().Unix()), nil
}

var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (c *evalContext) callDatetime(args []Expr) (Value, error) {
	if len(args) != 1 {
		return Value{}, arityError("datetime", 1, len(args))
	}

	v, err := c.eval(args[0])
	if err != nil {
		return Value{}, err
	}

	if v.Kind != KindStr {
		return Value{}, typeError("datetime", "argument must be a string")
	}

	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, v.Str); err == nil {
			return intValue(t.UTC().Unix()), nil
		}
	}

	return Value{}, ErrDomain.With(
		slog.String("function", "datetime"),
		slog.String("value", v.Str),
	)
}

// callIP parses an IPv4 dotted-quad address into its 32-bit integer
// representation, so it can be compared against a [cidr] Range with
// [contains].
func (c *evalContext) callIP(args []Expr) (Value, error) {
	if len(args) != 1 {
		return Value{}, arityError("ip", 1, len(args))
	}

	v, err := c.eval(args[0])
	if err != nil {
		return Value{}, err
	}

	if v.Kind != KindStr {
		return Value{}, typeError("ip", "argument must be a string")
	}

	addr := net.ParseIP(v.Str).To4()
	if addr == nil {
		return Value{}, ErrDomain.With(
			slog.String("function", "ip"),
			slog.String("value", v.Str),
		)
	}

	return intValue(ipv4ToInt(addr)), nil
}

// callCIDR parses an IPv4 CIDR block into the inclusive integer Range
// spanning its network and broadcast addresses.
func (c *evalContext) callCIDR(args []Expr) (Value, error) {
	if len(args) != 1 {
		return Value{}, arityError("cidr", 1, len(args))
	}

	v, err := c.eval(args[0])
	if err != nil {
		return Value{}, err
	}

	if v.Kind != KindStr {
		return Value{}, typeError("cidr", "argument must be a string")
	}

	_, network, err := net.ParseCIDR(v.Str)
	if err != nil || network.IP.To4() == nil {
		return Value{}, ErrDomain.With(
			slog.String("function", "cidr"),
			slog.String("value", v.Str),
		)
	}

	lo := ipv4ToInt(network.IP.To4())
	ones, bits := network.Mask.Size()
	hi := lo | (1<<uint(bits-ones) - 1)

	return rangeValue(lo, hi), nil
}

func ipv4ToInt(ip net.IP) int64 {
	return int64(ip[0])<<24 | int64(ip[1])<<16 | int64(ip[2])<<8 | int64(ip[3])
}

func (c *evalContext) callMatches(args []Expr) (Value, error) {
	if len(args) != 2 {
		return Value{}, arityError("matches", 2, len(args))
	}

	vals, err := c.evalArgs(args)
	if err != nil {
		return Value{}, err
	}

	if vals[0].Kind != KindStr || vals[1].Kind != KindStr {
		return Value{}, typeError("matches", "both arguments must be strings")
	}

	re, err := regexp.Compile(vals[1].Str)
	if err != nil {
		return Value{}, ErrDomain.With(
			slog.String("function", "matches"),
			slog.String("pattern", vals[1].Str),
		)
	}

	return boolValue(re.MatchString(vals[0].Str)), nil
}

// callContains accepts (needle, container). The reverse order is
// rejected as a TypeError, since the second argument must be a List,
// Range, or Str for membership testing to be well-defined.
func (c *evalContext) callContains(args []Expr) (Value, error) {
	if len(args) != 2 {
		return Value{}, arityError("contains", 2, len(args))
	}

	vals, err := c.evalArgs(args)
	if err != nil {
		return Value{}, err
	}

	needle, haystack := vals[0], vals[1]

	switch haystack.Kind {
	case KindList:
		for _, item := range haystack.List {
			ok, err := cmpEq(needle, item)
			if err != nil {
				return Value{}, err
			}

			if ok {
				return boolValue(true), nil
			}
		}

		return boolValue(false), nil

	case KindRange:
		if needle.Kind != KindInt {
			return Value{}, typeError("contains", "needle must be an int when container is a range")
		}

		return boolValue(needle.Int >= haystack.Range.Lo && needle.Int <= haystack.Range.Hi), nil

	case KindStr:
		if needle.Kind != KindStr {
			return Value{}, typeError("contains", "needle must be a string when container is a string")
		}

		return boolValue(strings.Contains(haystack.Str, needle.Str)), nil

	default:
		return Value{}, typeError("contains", "second argument must be a list, range, or string")
	}
}

func (c *evalContext) callNot(args []Expr) (Value, error) {
	if len(args) != 1 {
		return Value{}, arityError("not", 1, len(args))
	}

	v, err := c.eval(args[0])
	if err != nil {
		return Value{}, err
	}

	if v.Kind != KindBool {
		return Value{}, typeError("not", "argument must be a bool")
	}

	return boolValue(!v.Bool), nil
}

func (c *evalContext) callAnd(args []Expr) (Value, error) {
	if len(args) == 0 {
		return Value{}, arityError("and", 1, 0)
	}

	for _, a := range args {
		v, err := c.eval(a)
		if err != nil {
			return Value{}, err
		}

		if v.Kind != KindBool {
			return Value{}, typeError("and", "every argument must be a bool")
		}

		if !v.Bool {
			return boolValue(false), nil
		}
	}

	return boolValue(true), nil
}

func (c *evalContext) callOr(args []Expr) (Value, error) {
	if len(args) == 0 {
		return Value{}, arityError("or", 1, 0)
	}

	for _, a := range args {
		v, err := c.eval(a)
		if err != nil {
			return Value{}, err
		}

		if v.Kind != KindBool {
			return Value{}, typeError("or", "every argument must be a bool")
		}

		if v.Bool {
			return boolValue(true), nil
		}
	}

	return boolValue(false), nil
}

func (c *evalContext) callIf(args []Expr) (Value, error) {
	if len(args) != 3 {
		return Value{}, arityError("if", 3, len(args))
	}

	cond, err := c.eval(args[0])
	if err != nil {
		return Value{}, err
	}

	if cond.Kind != KindBool {
		return Value{}, typeError("if", "condition must be a bool")
	}

	if cond.Bool {
		return c.eval(args[1])
	}

	return c.eval(args[2])
}

type arithOp func(a, b Value) (Value, error)

func arithPlus(a, b Value) (Value, error) {
	if a.Kind == KindInt && b.Kind == KindInt {
		return intValue(a.Int + b.Int), nil
	}

	return floatValue(a.asFloat64() + b.asFloat64()), nil
}

func arithMinus(a, b Value) (Value, error) {
	if a.Kind == KindInt && b.Kind == KindInt {
		return intValue(a.Int - b.Int), nil
	}

	return floatValue(a.asFloat64() - b.asFloat64()), nil
}

func arithTimes(a, b Value) (Value, error) {
	if a.Kind == KindInt && b.Kind == KindInt {
		return intValue(a.Int * b.Int), nil
	}

	return floatValue(a.asFloat64() * b.asFloat64()), nil
}

func (c *evalContext) callArith(name string, args []Expr, op arithOp) (Value, error) {
	if len(args) != 2 {
		return Value{}, arityError(name, 2, len(args))
	}

	vals, err := c.evalArgs(args)
	if err != nil {
		return Value{}, err
	}

	if !numeric(vals[0]) || !numeric(vals[1]) {
		return Value{}, typeError(name, "both arguments must be numeric")
	}

	return op(vals[0], vals[1])
}

// callDiv implements integer division that promotes to Float only when
// the division is inexact, so div(4,2) stays an Int (2) while
// div(1,3) becomes a Float, matching how a spreadsheet formula
// behaves and preserving Int results for callers that depend on them.
func (c *evalContext) callDiv(args []Expr) (Value, error) {
	if len(args) != 2 {
		return Value{}, arityError("div", 2, len(args))
	}

	vals, err := c.evalArgs(args)
	if err != nil {
		return Value{}, err
	}

	a, b := vals[0], vals[1]

	if !numeric(a) || !numeric(b) {
		return Value{}, typeError("div", "both arguments must be numeric")
	}

	if b.asFloat64() == 0 {
		return Value{}, ErrMath.With(slog.String("function", "div"), slog.String("reason", "division by zero"))
	}

	if a.Kind == KindInt && b.Kind == KindInt {
		if a.Int%b.Int == 0 {
			return intValue(a.Int / b.Int), nil
		}

		return floatValue(float64(a.Int) / float64(b.Int)), nil
	}

	return floatValue(a.asFloat64() / b.asFloat64()), nil
}

func (c *evalContext) callRem(args []Expr) (Value, error) {
	if len(args) != 2 {
		return Value{}, arityError("rem", 2, len(args))
	}

	vals, err := c.evalArgs(args)
	if err != nil {
		return Value{}, err
	}

	a, b := vals[0], vals[1]

	if !numeric(a) || !numeric(b) {
		return Value{}, typeError("rem", "both arguments must be numeric")
	}

	if b.asFloat64() == 0 {
		return Value{}, ErrMath.With(slog.String("function", "rem"), slog.String("reason", "division by zero"))
	}

	if a.Kind == KindInt && b.Kind == KindInt {
		return intValue(a.Int % b.Int), nil
	}

	return floatValue(math.Mod(a.asFloat64(), b.asFloat64())), nil
}

func (c *evalContext) callUnaryMath(name string, args []Expr, fn func(float64) float64) (Value, error) {
	if len(args) != 1 {
		return Value{}, arityError(name, 1, len(args))
	}

	v, err := c.eval(args[0])
	if err != nil {
		return Value{}, err
	}

	if !numeric(v) {
		return Value{}, typeError(name, "argument must be numeric")
	}

	r := fn(v.asFloat64())
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return Value{}, ErrMath.With(slog.String("function", name), slog.Float64("input", v.asFloat64()))
	}

	return floatValue(r), nil
}

func (c *evalContext) callPow(args []Expr) (Value, error) {
	if len(args) != 2 {
		return Value{}, arityError("pow", 2, len(args))
	}

	vals, err := c.evalArgs(args)
	if err != nil {
		return Value{}, err
	}

	if !numeric(vals[0]) || !numeric(vals[1]) {
		return Value{}, typeError("pow", "both arguments must be numeric")
	}

	r := math.Pow(vals[0].asFloat64(), vals[1].asFloat64())
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return Value{}, ErrMath.With(slog.String("function", "pow"))
	}

	return floatValue(r), nil
}

// callMap linearly projects x from the domain [inLo, inHi] onto the
// range [outLo, outHi]. It does not clamp the result; a caller that
// needs the final formula result clamped to [0, 1] does so itself.
func (c *evalContext) callMap(args []Expr) (Value, error) {
	if len(args) != 5 {
		return Value{}, arityError("map", 5, len(args))
	}

	vals, err := c.evalArgs(args)
	if err != nil {
		return Value{}, err
	}

	for _, v := range vals {
		if !numeric(v) {
			return Value{}, typeError("map", "every argument must be numeric")
		}
	}

	x, inLo, inHi, outLo, outHi := vals[0].asFloat64(), vals[1].asFloat64(),
		vals[2].asFloat64(), vals[3].asFloat64(), vals[4].asFloat64()

	if inLo == inHi {
		return Value{}, ErrDomain.With(slog.String("function", "map"), slog.String("reason", "domain has zero width"))
	}

	return floatValue(outLo + (x-inLo)*(outHi-outLo)/(inHi-inLo)), nil
}
