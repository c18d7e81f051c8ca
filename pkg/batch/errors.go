package batch

import "fmt"

// MissingFieldError reports a record whose configured input field is
// absent or empty. Raised only in strict mode.
type MissingFieldError struct {
	Field     string
	ItemIndex int
}

// Error implements the error interface.
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("record %d: field %q is missing or empty", e.ItemIndex, e.Field)
}

// ParseError reports an input field holding a string that is not valid
// JSON. Raised only in strict mode.
type ParseError struct {
	Field     string
	ItemIndex int
	Err       error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("record %d: field %q is not valid JSON: %v", e.ItemIndex, e.Field, e.Err)
}

// Unwrap returns the underlying JSON decoding error.
func (e *ParseError) Unwrap() error { return e.Err }

// RecordError wraps any other failure during record processing (normalizer
// errors, recovered panics) with the offending record index so batch
// callers can locate the problem.
type RecordError struct {
	ItemIndex int
	Err       error
}

// Error implements the error interface.
func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.ItemIndex, e.Err)
}

// Unwrap returns the wrapped error, letting errors.As reach the
// normalizer's typed errors.
func (e *RecordError) Unwrap() error { return e.Err }
