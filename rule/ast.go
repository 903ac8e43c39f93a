package rule

// Expr is a node in a parsed formula's expression tree. The concrete
// types are BoolLit, NumLit, StrLit, EnvGet, ArrayLit, RangeLit, and
// Call; the set is closed and every evaluator switch on Expr must
// handle exactly these seven.
//
// Trees are immutable once returned from [Parse] and safe to share and
// evaluate concurrently from multiple goroutines.
type Expr interface {
	isExpr()
}

// BoolLit is the literal "true" or "false".
type BoolLit struct {
	Value bool
}

// NumLit is a numeric literal. IsFloat distinguishes "3" (Int) from
// "3.0" (Float); the two never overlap.
type NumLit struct {
	IsFloat bool
	Int     int64
	Float   float64
}

// StrLit is a quoted string literal, unquoted.
type StrLit struct {
	Value string
}

// EnvGet is env["key"]. Key is always a literal string; the grammar
// does not allow a computed key.
type EnvGet struct {
	Key string
}

// ArrayLit is a bracketed, comma-separated list of sub-expressions.
type ArrayLit struct {
	Elems []Expr
}

// RangeLit is [lo:hi], an inclusive integer range.
type RangeLit struct {
	Lo, Hi Expr
}

// Call is a built-in function application, e.g. eq(a, b).
type Call struct {
	Name string
	Args []Expr
}

func (BoolLit) isExpr()  {}
func (NumLit) isExpr()   {}
func (StrLit) isExpr()   {}
func (EnvGet) isExpr()   {}
func (ArrayLit) isExpr() {}
func (RangeLit) isExpr() {}
func (Call) isExpr()     {}
