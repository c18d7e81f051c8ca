package normalize

// Clone returns a structurally independent deep copy of a JSON-decoded
// value (map[string]any, []any, string, float64, bool, nil). Mutating the
// copy never affects the original and vice versa.
//
// Values outside the JSON vocabulary (e.g. json.Number, typed structs
// injected by a caller) are copied by reference; the normalizer never
// descends into them, so shared references are safe there.
func Clone(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = Clone(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Clone(elem)
		}
		return out
	default:
		// Scalars are immutable.
		return val
	}
}
