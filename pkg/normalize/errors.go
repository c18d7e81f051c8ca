package normalize

import "fmt"

// InvalidStructureError reports a document without a usable choices array.
// Raised only in strict mode; in lenient mode the document passes through
// unchanged instead.
type InvalidStructureError struct {
	Reason string
}

// Error implements the error interface.
func (e *InvalidStructureError) Error() string {
	if e.Reason != "" {
		return "invalid response structure: " + e.Reason
	}
	return "invalid response structure: missing or non-array choices"
}

// MissingMessageError reports a choice element without a message mapping.
// Raised only in strict mode; carries the index of the offending choice.
type MissingMessageError struct {
	ChoiceIndex int
}

// Error implements the error interface.
func (e *MissingMessageError) Error() string {
	return fmt.Sprintf("choice %d has no message field", e.ChoiceIndex)
}
