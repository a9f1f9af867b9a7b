package sandbox

import "encoding/json"

// inferSchema derives a JSON Schema from a JSON-decoded value (the
// shapes produced by encoding/json: map[string]interface{},
// []interface{}, float64, string, bool, nil). Missing or null leaves
// an unconstrained any-equivalent schema ({}). Mixed-type arrays are
// deliberately conservative: rather than attempt a union type, the
// item schema collapses to {}.
func inferSchema(v any) map[string]any {
	switch val := v.(type) {
	case nil:
		return map[string]any{}
	case bool:
		return map[string]any{"type": "boolean"}
	case float64:
		return map[string]any{"type": "number"}
	case string:
		return map[string]any{"type": "string"}
	case []any:
		return inferArraySchema(val)
	case map[string]any:
		return inferObjectSchema(val)
	default:
		return map[string]any{}
	}
}

func inferObjectSchema(m map[string]any) map[string]any {
	props := make(map[string]any, len(m))
	for k, v := range m {
		props[k] = inferSchema(v)
	}
	return map[string]any{"type": "object", "properties": props}
}

func inferArraySchema(arr []any) map[string]any {
	if len(arr) == 0 {
		return map[string]any{"type": "array", "items": map[string]any{}}
	}
	want := leafType(arr[0])
	for _, el := range arr[1:] {
		if leafType(el) != want {
			return map[string]any{"type": "array", "items": map[string]any{}}
		}
	}
	return map[string]any{"type": "array", "items": inferSchema(arr[0])}
}

func leafType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}

// inferSchemaJSON is inferSchema marshaled to a JSON document, the
// form the metadata store and registry expect.
func inferSchemaJSON(v any) json.RawMessage {
	raw, err := json.Marshal(inferSchema(v))
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return raw
}
