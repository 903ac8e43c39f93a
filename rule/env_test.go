package rule

import "testing"

func TestNewEnvFromJSON_Coercion(t *testing.T) {
	doc := []byte(`{
		"name": "ada",
		"age": 36,
		"score": 3.5,
		"active": true,
		"missing_is_null": null,
		"tags": ["a", "b"],
		"nested_list": [[1, 2], "keep", {"x": 1}],
		"profile": {"email": "ada@example.com"}
	}`)

	env, err := NewEnvFromJSON(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		key  string
		kind vkind
	}{
		{"name", KindStr},
		{"age", KindInt},
		{"score", KindFloat},
		{"active", KindBool},
		{"missing_is_null", KindNull},
		{"does_not_exist", KindNull},
		{"tags", KindList},
		{"profile", KindNull},
	}

	for _, c := range cases {
		v := env.Get(c.key)
		if v.Kind != c.kind {
			t.Errorf("Get(%q).Kind = %v, want %v", c.key, v.Kind, c.kind)
		}
	}

	nested := env.Get("nested_list")
	if nested.Kind != KindList || len(nested.List) != 1 {
		t.Fatalf("expected nested array and object dropped, got %#v", nested)
	}

	if elem := nested.List[0]; elem.Kind != KindStr || elem.Str != "keep" {
		t.Errorf("nested_list[0] = %#v, want Str \"keep\"", elem)
	}
}

func TestCoerceNumber_IntVsFloat(t *testing.T) {
	env, err := NewEnvFromJSON([]byte(`{"a": 10, "b": 10.0, "c": 1e2}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if env.Get("a").Kind != KindInt {
		t.Errorf("expected 10 to be Int")
	}

	if env.Get("b").Kind != KindFloat {
		t.Errorf("expected 10.0 to be Float")
	}

	if env.Get("c").Kind != KindFloat {
		t.Errorf("expected 1e2 to be Float")
	}
}

func TestNewEnvFromMap(t *testing.T) {
	env := NewEnvFromMap(map[string]any{
		"count": 3,
		"ratio": 0.5,
	})

	if env.Get("count").Kind != KindInt {
		t.Errorf("expected count to be Int")
	}

	if env.Get("ratio").Kind != KindFloat {
		t.Errorf("expected ratio to be Float")
	}
}
