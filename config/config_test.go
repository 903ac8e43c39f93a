package config

import "testing"

const validDoc = `
rules:
  - name: holiday-banner
    formula: map(datetime("2021-11-08"), datetime("2021-11-16"), 0, 1, now())
  - name: beta-users
    formula: contains(env["user.email"], ["a@x.test", "b@x.test"])
defaults:
  user.locale: en-US
`

func TestParse_Valid(t *testing.T) {
	rs, err := Parse([]byte(validDoc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, ok := rs.Formula("beta-users")
	if !ok {
		t.Fatalf("expected beta-users to be registered")
	}

	if f == "" {
		t.Errorf("expected non-empty formula text")
	}

	if _, ok := rs.Formula("does-not-exist"); ok {
		t.Errorf("expected lookup of unknown rule to fail")
	}
}

func TestParse_ReportsEveryInvalidFormula(t *testing.T) {
	doc := `
rules:
  - name: broken-one
    formula: "eq(1,"
  - name: broken-two
    formula: "nope("
  - name: fine
    formula: "eq(1, 1)"
`

	_, err := Parse([]byte(doc))
	if err == nil {
		t.Fatalf("expected error for invalid rule set")
	}

	msg := err.Error()
	if !contains(msg, "broken-one") || !contains(msg, "broken-two") {
		t.Errorf("expected error to name both invalid rules, got: %v", msg)
	}
}

func TestRuleSet_Env_MergesDefaultsAndOverrides(t *testing.T) {
	rs, err := Parse([]byte(validDoc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env := rs.Env(map[string]any{"user.locale": "fr-FR"})
	if env.Get("user.locale").Str != "fr-FR" {
		t.Errorf("expected override to win, got %v", env.Get("user.locale"))
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}

	return false
}
