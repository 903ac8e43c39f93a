package rule

import "testing"

func mustEval(t *testing.T, formula string, env *Env) float32 {
	t.Helper()

	f, err := Evaluate(formula, env)
	if err != nil {
		t.Fatalf("Evaluate(%q): unexpected error: %v", formula, err)
	}

	return f
}

func TestEvaluate_IntegerToFrequency(t *testing.T) {
	if got := mustEval(t, "1", nil); got != 1 {
		t.Errorf("Evaluate(1) = %v, want 1", got)
	}

	if got := mustEval(t, "0", nil); got != 0 {
		t.Errorf("Evaluate(0) = %v, want 0", got)
	}
}

func TestEvaluate_EnvLookup(t *testing.T) {
	env := NewEnvFromMap(map[string]any{"plan": "pro"})

	if got := mustEval(t, `if(eq(env["plan"], "pro"), 1, 0)`, env); got != 1 {
		t.Errorf("got %v, want 1", got)
	}

	env2 := NewEnvFromMap(map[string]any{"plan": "free"})

	if got := mustEval(t, `if(eq(env["plan"], "pro"), 1, 0)`, env2); got != 0 {
		t.Errorf("got %v, want 0", got)
	}
}

func TestEvaluate_Comparisons(t *testing.T) {
	cases := map[string]float32{
		"if(gt(5, 3), 1, 0)":  1,
		"if(gte(3, 3), 1, 0)": 1,
		"if(lt(5, 3), 1, 0)":  0,
		"if(lte(3, 3), 1, 0)": 1,
		`if(eq("a", "a"), 1, 0)`: 1,
	}

	for formula, want := range cases {
		if got := mustEval(t, formula, nil); got != want {
			t.Errorf("Evaluate(%q) = %v, want %v", formula, got, want)
		}
	}
}

func TestEvaluate_LogicalBuiltins(t *testing.T) {
	if got := mustEval(t, "if(and(true, true), 1, 0)", nil); got != 1 {
		t.Errorf("and(true,true) -> %v, want 1", got)
	}

	if got := mustEval(t, "if(and(true, false), 1, 0)", nil); got != 0 {
		t.Errorf("and(true,false) -> %v, want 0", got)
	}

	if got := mustEval(t, "if(or(false, true), 1, 0)", nil); got != 1 {
		t.Errorf("or(false,true) -> %v, want 1", got)
	}

	if got := mustEval(t, "if(not(false), 1, 0)", nil); got != 1 {
		t.Errorf("not(false) -> %v, want 1", got)
	}
}

func TestEvaluate_Arithmetic(t *testing.T) {
	if got := mustEval(t, "div(4, 2)", nil); got != 2 {
		t.Errorf("div(4,2) = %v, want 2", got)
	}

	// div(1,4) is inexact and must promote to Float rather than
	// truncating to an Int 0.
	f, err := Evaluate("div(1, 4)", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f != 0.25 {
		t.Errorf("div(1,4) = %v, want 0.25", f)
	}
}

func TestEvaluate_DivByZeroIsMathError(t *testing.T) {
	_, err := Evaluate("div(1, 0)", nil)
	if err == nil {
		t.Fatalf("expected error for division by zero")
	}
}

func TestEvaluate_Map(t *testing.T) {
	got := mustEval(t, `map(0.75, 0, 1, 2, 4)`, nil)
	if got != 3.5 {
		t.Errorf("map(0.75,0,1,2,4) = %v, want 3.5", got)
	}
}

func TestEvaluate_DatetimeAndMap(t *testing.T) {
	formula := `map(datetime("2021-11-12"), datetime("2021-11-08"), datetime("2021-11-16"), 0, 1)`

	got := mustEval(t, formula, nil)
	if got < 0.4 || got > 0.6 {
		t.Errorf("midpoint date mapping = %v, want close to 0.5", got)
	}
}

func TestEvaluate_ContainsList(t *testing.T) {
	if got := mustEval(t, `if(contains("b", ["a", "b", "c"]), 1, 0)`, nil); got != 1 {
		t.Errorf("contains(b, [a,b,c]) -> %v, want 1", got)
	}

	if got := mustEval(t, `if(contains("z", ["a", "b", "c"]), 1, 0)`, nil); got != 0 {
		t.Errorf("contains(z, [a,b,c]) -> %v, want 0", got)
	}
}

func TestEvaluate_ContainsReversedOrderIsTypeError(t *testing.T) {
	_, err := Evaluate(`contains(["a", "b"], "a")`, nil)
	if err == nil {
		t.Fatalf("expected TypeError for reversed contains() argument order")
	}
}

func TestEvaluate_IPAndCIDR(t *testing.T) {
	if got := mustEval(t, `if(contains(ip("10.0.0.5"), cidr("10.0.0.0/24")), 1, 0)`, nil); got != 1 {
		t.Errorf("expected 10.0.0.5 to be contained in 10.0.0.0/24, got %v", got)
	}

	if got := mustEval(t, `if(contains(ip("10.0.1.5"), cidr("10.0.0.0/24")), 1, 0)`, nil); got != 0 {
		t.Errorf("expected 10.0.1.5 to be excluded from 10.0.0.0/24, got %v", got)
	}
}

func TestEvaluate_Matches(t *testing.T) {
	if got := mustEval(t, `if(matches("hello@example.com", "^[^@]+@[^@]+$"), 1, 0)`, nil); got != 1 {
		t.Errorf("expected email pattern to match, got %v", got)
	}
}

func TestEvaluate_IsBlank(t *testing.T) {
	env := NewEnvFromMap(map[string]any{"empty": ""})

	if got := mustEval(t, `if(isblank(env["missing"]), 1, 0)`, env); got != 1 {
		t.Errorf("isblank(missing) -> %v, want 1", got)
	}

	if got := mustEval(t, `if(isblank(env["empty"]), 1, 0)`, env); got != 1 {
		t.Errorf("isblank(empty string) -> %v, want 1", got)
	}
}

func TestEvaluate_DoesNotClampNumericResult(t *testing.T) {
	if got := mustEval(t, "2", nil); got != 2 {
		t.Errorf("Evaluate(2) = %v, want raw 2 (no clamping)", got)
	}

	if got := mustEval(t, "-1", nil); got != -1 {
		t.Errorf("Evaluate(-1) = %v, want raw -1 (no clamping)", got)
	}
}

func TestEvaluate_ProjectsBoolAndStr(t *testing.T) {
	if got := mustEval(t, "eq(1, 1)", nil); got != 1 {
		t.Errorf(`Evaluate("eq(1,1)") = %v, want 1 (Bool true -> 1.0)`, got)
	}

	if got := mustEval(t, "eq(1, 2)", nil); got != 0 {
		t.Errorf(`Evaluate("eq(1,2)") = %v, want 0 (Bool false -> 0.0)`, got)
	}

	env := NewEnvFromMap(map[string]any{"s": "0.5"})
	if got := mustEval(t, `env["s"]`, env); got != 0.5 {
		t.Errorf(`Evaluate("env[\"s\"]") = %v, want 0.5 (Str parsed as float)`, got)
	}

	env = NewEnvFromMap(map[string]any{"s": "not-a-number"})
	if got := mustEval(t, `env["s"]`, env); got != 0 {
		t.Errorf(`Evaluate("env[\"s\"]") = %v, want 0 (unparseable Str -> 0.0)`, got)
	}
}

func TestValidate(t *testing.T) {
	if !Validate(`eq(1, 1)`) {
		t.Errorf("expected eq(1,1) to validate")
	}

	if Validate(`eq(1,`) {
		t.Errorf("expected truncated formula to fail validation")
	}
}

func TestEvaluate_UnknownFunction(t *testing.T) {
	if _, err := Evaluate(`bogus(1)`, nil); err == nil {
		t.Fatalf("expected error for unknown function")
	}
}

func TestEvaluate_ArityMismatch(t *testing.T) {
	if _, err := Evaluate(`eq(1)`, nil); err == nil {
		t.Fatalf("expected arity error")
	}
}

func TestEvaluate_RangeLoGreaterThanHiIsDomainError(t *testing.T) {
	if _, err := Evaluate(`if(contains(1, [5:1]), 1, 0)`, nil); err == nil {
		t.Fatalf("expected domain error for inverted range")
	}
}
