package normalize

// Normalize returns a deep copy of doc with the well-known optional fields
// of each choice message coerced to consistent types:
//
//   - tool_calls: explicit null becomes []. An absent key stays absent.
//   - function_call: explicit null becomes {}. An absent key stays absent.
//   - annotations: absent or null becomes []. Unlike the other two fields,
//     absence and null are treated identically here.
//
// In strict mode a document without a choices array fails with
// *InvalidStructureError, and a choice without a message mapping fails with
// *MissingMessageError carrying the choice index. In lenient mode both
// conditions leave the data as-is and produce no error.
//
// The input document is never mutated.
func Normalize(doc any, strict bool) (any, error) {
	out, _, err := NormalizeWithStats(doc, strict)
	return out, err
}

// Stats counts the coercions one Normalize call performed, by field.
type Stats struct {
	ToolCalls    int
	FunctionCall int
	Annotations  int
}

// Total returns the number of coerced fields across all rules.
func (s Stats) Total() int {
	return s.ToolCalls + s.FunctionCall + s.Annotations
}

// NormalizeWithStats is Normalize plus a per-field count of the coercions
// applied, for callers that report metrics.
func NormalizeWithStats(doc any, strict bool) (any, Stats, error) {
	var stats Stats
	out := Clone(doc)

	root, ok := out.(map[string]any)
	if !ok {
		if strict {
			return nil, stats, &InvalidStructureError{Reason: "document is not an object"}
		}
		return out, stats, nil
	}

	choices, ok := root["choices"].([]any)
	if !ok {
		// Covers a missing key, an explicit null, and a non-array value.
		// Strict mode reports the whole document rather than per element.
		if strict {
			return nil, stats, &InvalidStructureError{}
		}
		return out, stats, nil
	}

	for i, choice := range choices {
		elem, ok := choice.(map[string]any)
		if !ok {
			if strict {
				return nil, stats, &MissingMessageError{ChoiceIndex: i}
			}
			continue
		}

		msg, ok := elem["message"].(map[string]any)
		if !ok {
			if strict {
				return nil, stats, &MissingMessageError{ChoiceIndex: i}
			}
			continue
		}

		coerceMessageFields(msg, &stats)
	}

	return out, stats, nil
}

// coerceMessageFields applies the field coercion rules to a message map in
// place. The rules are independent of each other; order does not matter.
func coerceMessageFields(msg map[string]any, stats *Stats) {
	if v, present := msg["tool_calls"]; present && v == nil {
		msg["tool_calls"] = []any{}
		stats.ToolCalls++
	}

	if v, present := msg["function_call"]; present && v == nil {
		msg["function_call"] = map[string]any{}
		stats.FunctionCall++
	}

	// annotations: absence and explicit null coerce identically.
	if v, present := msg["annotations"]; !present || v == nil {
		msg["annotations"] = []any{}
		stats.Annotations++
	}
}
