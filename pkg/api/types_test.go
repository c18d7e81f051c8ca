package api

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestBatchOptionsWithDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   BatchOptions
		want BatchOptions
	}{
		{
			name: "zero value gets all defaults",
			in:   BatchOptions{},
			want: BatchOptions{InputField: "data", OutputField: "data", ProcessAllItems: boolPtr(true)},
		},
		{
			name: "explicit values preserved",
			in:   BatchOptions{InputField: "response", OutputField: "normalized", ProcessAllItems: boolPtr(false), StrictMode: true},
			want: BatchOptions{InputField: "response", OutputField: "normalized", ProcessAllItems: boolPtr(false), StrictMode: true},
		},
		{
			name: "explicit false for processAllItems survives",
			in:   BatchOptions{ProcessAllItems: boolPtr(false)},
			want: BatchOptions{InputField: "data", OutputField: "data", ProcessAllItems: boolPtr(false)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.WithDefaults()
			if got.InputField != tt.want.InputField || got.OutputField != tt.want.OutputField ||
				got.StrictMode != tt.want.StrictMode || got.ProcessAll() != tt.want.ProcessAll() {
				t.Errorf("WithDefaults() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBatchOptionsProcessAll(t *testing.T) {
	if !(BatchOptions{}).ProcessAll() {
		t.Error("nil ProcessAllItems should default to true")
	}
	if (BatchOptions{ProcessAllItems: boolPtr(false)}).ProcessAll() {
		t.Error("explicit false not honored")
	}
}

func TestRecordRoundTripPreservesExtras(t *testing.T) {
	in := Record{
		JSON: map[string]any{"data": map[string]any{"choices": []any{}}, "meta": "keep"},
		Binary: map[string]Attachment{
			"file": {Data: "aGVsbG8=", MIMEType: "text/plain", FileName: "hello.txt"},
		},
		PairedItems: []PairedItem{{Item: 3, Input: 1}},
	}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	var got Record
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if !reflect.DeepEqual(got, in) {
		t.Errorf("round-trip mismatch\n got: %+v\nwant: %+v", got, in)
	}
}

func TestRunRequestOptionsDecoding(t *testing.T) {
	body := `{"records":[{"json":{"data":"{}"}}],"options":{"inputField":"data","processAllItems":false,"strictMode":true}}`

	var req RunRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if len(req.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(req.Records))
	}
	if req.Options.ProcessAll() {
		t.Error("processAllItems=false not decoded")
	}
	if !req.Options.StrictMode {
		t.Error("strictMode=true not decoded")
	}
}

func boolPtr(b bool) *bool { return &b }
