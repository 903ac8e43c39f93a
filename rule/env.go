package rule

import (
	"bytes"
	"encoding/json"
	"io"
)

// Env is the coerced form of an evaluation context: a flat map from
// string keys to [Value]s, ready for [EnvGet] lookups. Construct one
// with [NewEnv], [NewEnvFromJSON], or [NewEnvFromMap].
type Env struct {
	data map[string]Value
}

// Get returns the value bound to key, or Null if key is absent. A
// missing key and a key explicitly bound to JSON null are
// indistinguishable, per the coercion rules.
func (e *Env) Get(key string) Value {
	if e == nil {
		return Null
	}

	if v, ok := e.data[key]; ok {
		return v
	}

	return Null
}

// NewEnv reads a JSON object from r and coerces it into an [Env].
//
// Coercion rules, applied per top-level field:
//
//   - JSON null, or a field absent entirely: [KindNull]
//   - JSON true/false: [KindBool]
//   - a JSON number written without '.', 'e', or 'E' (an integer
//     literal): [KindInt]
//   - any other JSON number (fractional or exponential form): [KindFloat]
//   - a JSON string: [KindStr], verbatim
//   - a JSON array: [KindList], with any array or object elements
//     inside it dropped rather than nested further; the remaining
//     elements keep their order
//   - a JSON object (only possible as a nested field, since the root
//     must itself be an object): [KindNull]
func NewEnv(r io.Reader) (*Env, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw map[string]any

	if err := dec.Decode(&raw); err != nil {
		return nil, ErrType.Wrap(err)
	}

	return newEnvFromRaw(raw), nil
}

// NewEnvFromJSON is a convenience wrapper around [NewEnv] for
// callers that already hold the JSON document in memory.
func NewEnvFromJSON(doc []byte) (*Env, error) {
	return NewEnv(bytes.NewReader(doc))
}

// NewEnvFromMap coerces an already-decoded Go map, as produced by a
// caller that built its context programmatically instead of parsing
// JSON. Since there is no source token to classify, int and int64
// values become [KindInt] and float32/float64 values become
// [KindFloat]; everything else follows the same rules as [NewEnv].
func NewEnvFromMap(m map[string]any) *Env {
	data := make(map[string]Value, len(m))
	for k, v := range m {
		data[k] = coerce(v, true)
	}

	return &Env{data: data}
}

func newEnvFromRaw(raw map[string]any) *Env {
	data := make(map[string]Value, len(raw))
	for k, v := range raw {
		data[k] = coerce(v, true)
	}

	return &Env{data: data}
}

// coerce converts a decoded JSON (or programmatic) value into a Value.
// top is true only for a field's own value; nested array elements are
// never allowed to nest further.
func coerce(a any, top bool) Value {
	switch t := a.(type) {
	case nil:
		return Null
	case bool:
		return boolValue(t)
	case json.Number:
		return coerceNumber(t)
	case int:
		return intValue(int64(t))
	case int64:
		return intValue(t)
	case float32:
		return floatValue(float64(t))
	case float64:
		return floatValue(t)
	case string:
		return strValue(t)
	case []any:
		if !top {
			return Null
		}

		list := make([]Value, 0, len(t))
		for _, e := range t {
			switch e.(type) {
			case []any, map[string]any:
				continue
			}

			list = append(list, coerce(e, false))
		}

		return listValue(list)
	case map[string]any:
		return Null
	default:
		return Null
	}
}

// coerceNumber classifies a json.Number by its literal token shape:
// any '.', 'e', or 'E' in the source text makes it a Float, otherwise
// it is an Int. This preserves the caller's intent for values like
// "10" that would otherwise round-trip ambiguously through float64.
func coerceNumber(n json.Number) Value {
	s := n.String()

	for _, c := range s {
		if c == '.' || c == 'e' || c == 'E' {
			f, err := n.Float64()
			if err != nil {
				return Null
			}

			return floatValue(f)
		}
	}

	i, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return Null
		}

		return floatValue(f)
	}

	return intValue(i)
}
