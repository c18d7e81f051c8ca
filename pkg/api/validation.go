package api

import "fmt"

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxRecords int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxRecords: 1000,
	}
}

// ValidateRunRequest checks a RunRequest for validity. It returns an
// *APIError describing the first validation failure, or nil if the request
// is valid. A batch of zero records is valid: the run completes with an
// empty output sequence.
func ValidateRunRequest(req *RunRequest, cfg ValidationConfig) *APIError {
	if req.Records == nil {
		return NewInvalidRequestError("records", "records is required")
	}

	if cfg.MaxRecords > 0 && len(req.Records) > cfg.MaxRecords {
		return NewInvalidRequestError("records",
			fmt.Sprintf("records exceeds maximum of %d", cfg.MaxRecords))
	}

	for i, rec := range req.Records {
		if rec.JSON == nil {
			return NewInvalidRequestError(
				fmt.Sprintf("records[%d].json", i), "json payload is required")
		}
	}

	return nil
}

// ResolveStore returns the effective store value, defaulting to true when nil.
func ResolveStore(req *RunRequest) bool {
	if req.Store != nil {
		return *req.Store
	}
	return true
}
