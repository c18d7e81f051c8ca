package api

// Record is one item of a batch. It mirrors the record model of workflow
// hosts: a JSON payload plus optional binary attachments and lineage
// metadata. The runner only ever touches the configured input/output
// fields of JSON; everything else is preserved byte for byte.
type Record struct {
	JSON        map[string]any        `json:"json"`
	Binary      map[string]Attachment `json:"binary,omitempty"`
	PairedItems []PairedItem          `json:"pairedItem,omitempty"`
}

// Attachment is a binary payload carried alongside a record's JSON data.
type Attachment struct {
	Data     string `json:"data"` // base64-encoded content
	MIMEType string `json:"mimeType,omitempty"`
	FileName string `json:"fileName,omitempty"`
}

// PairedItem links a record back to the upstream item it was derived from.
type PairedItem struct {
	Item  int `json:"item"`
	Input int `json:"input,omitempty"`
}

// BatchOptions configures one batch run.
type BatchOptions struct {
	// InputField names the JSON field holding the response document.
	// Default: "data".
	InputField string `json:"inputField,omitempty"`

	// OutputField names the JSON field the normalized document is written
	// to. May equal InputField. Default: "data".
	OutputField string `json:"outputField,omitempty"`

	// ProcessAllItems selects whether every record is processed (true,
	// the default) or only the first, with the rest passed through.
	ProcessAllItems *bool `json:"processAllItems,omitempty"`

	// StrictMode turns structural problems into errors instead of
	// silent pass-through. Default: false.
	StrictMode bool `json:"strictMode,omitempty"`
}

// WithDefaults returns a copy of the options with unset fields resolved
// to their defaults.
func (o BatchOptions) WithDefaults() BatchOptions {
	if o.InputField == "" {
		o.InputField = "data"
	}
	if o.OutputField == "" {
		o.OutputField = "data"
	}
	if o.ProcessAllItems == nil {
		all := true
		o.ProcessAllItems = &all
	}
	return o
}

// ProcessAll reports the effective batch scope, defaulting to true.
func (o BatchOptions) ProcessAll() bool {
	if o.ProcessAllItems == nil {
		return true
	}
	return *o.ProcessAllItems
}

// RunRequest is the body of POST /v1/runs.
type RunRequest struct {
	Records []Record     `json:"records"`
	Options BatchOptions `json:"options"`

	// Store controls whether the run is persisted. Defaults to true when
	// a store is configured.
	Store *bool `json:"store,omitempty"`
}

// RunStatus is the terminal state of a run.
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunCounts summarizes what a run did.
type RunCounts struct {
	RecordsIn     int `json:"records_in"`
	RecordsOut    int `json:"records_out"`
	FieldsCoerced int `json:"fields_coerced"`
}

// Run is the result of one batch execution.
type Run struct {
	ID        string       `json:"id"`
	Object    string       `json:"object"` // always "run"
	Status    RunStatus    `json:"status"`
	Options   BatchOptions `json:"options"`
	Records   []Record     `json:"records,omitempty"`
	Counts    RunCounts    `json:"counts"`
	Error     *APIError    `json:"error,omitempty"`
	CreatedAt int64        `json:"created_at"`
}
