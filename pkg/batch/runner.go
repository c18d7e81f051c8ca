package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glatt-dev/glatt/pkg/api"
	"github.com/glatt-dev/glatt/pkg/debug"
	"github.com/glatt-dev/glatt/pkg/normalize"
	"github.com/glatt-dev/glatt/pkg/observability"
)

// Config holds runner settings.
type Config struct {
	Validation api.ValidationConfig

	// Defaults fills in request options the caller left unset. A true
	// Defaults.StrictMode makes strict mode mandatory for all runs.
	Defaults api.BatchOptions
}

// Runner executes batch normalization runs. It holds no per-run state and
// is safe for concurrent use.
type Runner struct {
	cfg Config
}

// New creates a Runner with the given configuration.
func New(cfg Config) *Runner {
	if cfg.Validation == (api.ValidationConfig{}) {
		cfg.Validation = api.DefaultValidationConfig()
	}
	return &Runner{cfg: cfg}
}

// RunBatch validates the request, executes the run, and assembles the Run
// result. It implements transport.BatchRunner. A strict-mode failure is
// returned as an error; the transport layer decides how to surface it.
func (r *Runner) RunBatch(ctx context.Context, req *api.RunRequest) (*api.Run, error) {
	if apiErr := api.ValidateRunRequest(req, r.cfg.Validation); apiErr != nil {
		return nil, apiErr
	}

	opts := r.effectiveOptions(req.Options)
	mode := "lenient"
	if opts.StrictMode {
		mode = "strict"
	}

	observability.RunsInFlight.Inc()
	defer observability.RunsInFlight.Dec()

	start := time.Now()
	out, stats, err := r.Run(ctx, req.Records, opts)
	observability.RunDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())

	if err != nil {
		observability.RunsTotal.WithLabelValues(mode, "failed").Inc()
		return nil, err
	}
	observability.RunsTotal.WithLabelValues(mode, "completed").Inc()

	return &api.Run{
		ID:      api.NewRunID(),
		Object:  "run",
		Status:  api.RunStatusCompleted,
		Options: opts,
		Records: out,
		Counts: api.RunCounts{
			RecordsIn:     len(req.Records),
			RecordsOut:    len(out),
			FieldsCoerced: stats.Total(),
		},
		CreatedAt: time.Now().Unix(),
	}, nil
}

// effectiveOptions layers the request options over the configured
// defaults, then resolves the remaining unset fields.
func (r *Runner) effectiveOptions(opts api.BatchOptions) api.BatchOptions {
	d := r.cfg.Defaults
	if opts.InputField == "" {
		opts.InputField = d.InputField
	}
	if opts.OutputField == "" {
		opts.OutputField = d.OutputField
	}
	if opts.ProcessAllItems == nil {
		opts.ProcessAllItems = d.ProcessAllItems
	}
	if d.StrictMode {
		opts.StrictMode = true
	}
	return opts.WithDefaults()
}

// Run processes the record sequence and returns the output sequence plus
// aggregate coercion stats. Records are independent; the first error
// aborts the run. An empty input yields an empty output.
func (r *Runner) Run(ctx context.Context, records []api.Record, opts api.BatchOptions) ([]api.Record, normalize.Stats, error) {
	opts = opts.WithDefaults()

	var total normalize.Stats
	out := make([]api.Record, 0, len(records))

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, total, err
		}

		// Only-first policy: everything after record 0 passes through in
		// original order.
		if i > 0 && !opts.ProcessAll() {
			out = append(out, rec)
			continue
		}

		processed, stats, err := r.processRecord(rec, i, opts)
		if err != nil {
			debug.Log("batch", "record failed", "index", i, "error", err)
			return nil, total, err
		}

		total.ToolCalls += stats.ToolCalls
		total.FunctionCall += stats.FunctionCall
		total.Annotations += stats.Annotations
		out = append(out, processed)
	}

	observability.FieldsCoercedTotal.WithLabelValues("tool_calls").Add(float64(total.ToolCalls))
	observability.FieldsCoercedTotal.WithLabelValues("function_call").Add(float64(total.FunctionCall))
	observability.FieldsCoercedTotal.WithLabelValues("annotations").Add(float64(total.Annotations))

	debug.Log("batch", "run completed",
		"records", len(records), "coerced", total.Total(), "strict", opts.StrictMode)

	return out, total, nil
}

// processRecord normalizes one record. Panics during processing are
// converted to a *RecordError carrying the record index.
func (r *Runner) processRecord(rec api.Record, index int, opts api.BatchOptions) (out api.Record, stats normalize.Stats, retErr error) {
	defer func() {
		if p := recover(); p != nil {
			retErr = &RecordError{ItemIndex: index, Err: fmt.Errorf("unexpected error: %v", p)}
		}
	}()

	value, present := rec.JSON[opts.InputField]
	if !present || isFalsy(value) {
		if opts.StrictMode {
			return api.Record{}, stats, &MissingFieldError{Field: opts.InputField, ItemIndex: index}
		}
		debug.Log("batch", "record passed through", "index", index, "reason", "missing field")
		observability.RecordsProcessedTotal.WithLabelValues("passed_through").Inc()
		return rec, stats, nil
	}

	// String payloads are parsed as JSON before normalization.
	doc := value
	if s, ok := value.(string); ok {
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err != nil {
			if opts.StrictMode {
				observability.RecordsProcessedTotal.WithLabelValues("failed").Inc()
				return api.Record{}, stats, &ParseError{Field: opts.InputField, ItemIndex: index, Err: err}
			}
			debug.Log("batch", "record passed through", "index", index, "reason", "unparseable string")
			observability.RecordsProcessedTotal.WithLabelValues("passed_through").Inc()
			return rec, stats, nil
		}
		doc = parsed
	}

	normalized, stats, err := normalize.NormalizeWithStats(doc, opts.StrictMode)
	if err != nil {
		observability.RecordsProcessedTotal.WithLabelValues("failed").Inc()
		return api.Record{}, stats, &RecordError{ItemIndex: index, Err: err}
	}

	// Rebuild the JSON payload with the result in the output field. All
	// other fields, attachments, and lineage are carried over untouched.
	outJSON := make(map[string]any, len(rec.JSON)+1)
	for k, v := range rec.JSON {
		outJSON[k] = v
	}
	outJSON[opts.OutputField] = normalized

	observability.RecordsProcessedTotal.WithLabelValues("normalized").Inc()

	return api.Record{
		JSON:        outJSON,
		Binary:      rec.Binary,
		PairedItems: rec.PairedItems,
	}, stats, nil
}

// isFalsy mirrors the host platform's truthiness test for extracted field
// values: null, empty string, false, and numeric zero all count as absent.
func isFalsy(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case bool:
		return !val
	case float64:
		return val == 0
	}
	return false
}
