package api

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestAPIErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			name: "with param",
			err:  NewInvalidRequestError("records", "records is required"),
			want: "invalid_request: records is required (param: records)",
		},
		{
			name: "without param",
			err:  NewServerError("boom"),
			want: "server_error: boom",
		},
		{
			name: "validation error carries code",
			err:  NewValidationError("missing_message", "records[2]", "choice 0 has no message field"),
			want: "validation_error: choice 0 has no message field (param: records[2])",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIErrorAsError(t *testing.T) {
	var err error = NewNotFoundError("run run_x not found")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatal("errors.As failed to unwrap *APIError")
	}
	if apiErr.Type != ErrorTypeNotFound {
		t.Errorf("Type = %q, want %q", apiErr.Type, ErrorTypeNotFound)
	}
}

func TestErrorResponseSerialization(t *testing.T) {
	resp := ErrorResponse{Error: NewValidationError("parse_error", "data", "record 3: field is not valid JSON")}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	for _, want := range []string{`"type":"validation_error"`, `"code":"parse_error"`, `"param":"data"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("serialized error missing %s: %s", want, data)
		}
	}
}
