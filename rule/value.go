package rule

import "fmt"

// vkind identifies the runtime type of a Value.
type vkind int

const (
	KindNull vkind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindList
	KindRange
)

// Range is an inclusive range of integers, [Lo, Hi]. The evaluator never
// builds a Range with Lo > Hi: a range literal with inverted bounds fails
// with [ErrDomain] instead.
type Range struct {
	Lo, Hi int64
}

// Value is the closed set of runtime types the evaluator operates on:
// Null, Bool, Int, Float, Str, List, and Range. A List built by the
// environment adapter never contains another List or a Range, since
// nested collections are dropped (see [NewEnv]); a List built from an
// array literal in a formula holds whatever its elements evaluate to.
type Value struct {
	Kind  vkind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	List  []Value
	Range Range
}

// Null is the zero Value.
var Null = Value{Kind: KindNull}

func boolValue(b bool) Value    { return Value{Kind: KindBool, Bool: b} }
func intValue(i int64) Value    { return Value{Kind: KindInt, Int: i} }
func floatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func strValue(s string) Value   { return Value{Kind: KindStr, Str: s} }
func listValue(l []Value) Value { return Value{Kind: KindList, List: l} }
func rangeValue(lo, hi int64) Value {
	return Value{Kind: KindRange, Range: Range{Lo: lo, Hi: hi}}
}

// IsNull reports whether v is the Null value.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// asFloat64 returns v as a float64, valid only for KindInt and KindFloat.
func (v Value) asFloat64() float64 {
	if v.Kind == KindInt {
		return float64(v.Int)
	}

	return v.Float
}

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindStr:
		return v.Str
	case KindList:
		return fmt.Sprintf("%v", v.List)
	case KindRange:
		return fmt.Sprintf("[%d:%d]", v.Range.Lo, v.Range.Hi)
	default:
		return "?"
	}
}

func (k vkind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStr:
		return "string"
	case KindList:
		return "list"
	case KindRange:
		return "range"
	default:
		return "?"
	}
}
