package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/glatt-dev/glatt/pkg/api"
	"github.com/glatt-dev/glatt/pkg/batch"
	"github.com/glatt-dev/glatt/pkg/normalize"
	"github.com/glatt-dev/glatt/pkg/storage"
	"github.com/glatt-dev/glatt/pkg/transport"
)

// Adapter serves the batch normalization API over HTTP.
// It routes requests to the appropriate handler and serializes responses.
type Adapter struct {
	runner transport.BatchRunner
	store  transport.RunStore // nil if stateless-only
	mux    *http.ServeMux
	config Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	Addr            string
	MaxBodySize     int64
	ShutdownTimeout int // seconds
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		MaxBodySize:     10 << 20, // 10 MB
		ShutdownTimeout: 30,
	}
}

// NewAdapter creates an HTTP adapter with the given BatchRunner and options.
// The RunStore is optional; when nil, GET and DELETE endpoints return
// an error indicating the operation is not available.
// Middleware is applied to the BatchRunner in the given order.
func NewAdapter(runner transport.BatchRunner, store transport.RunStore, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if len(middlewares) > 0 {
		runner = transport.Chain(middlewares...)(runner)
	}

	a := &Adapter{
		runner: runner,
		store:  store,
		mux:    http.NewServeMux(),
		config: cfg,
	}

	a.mux.HandleFunc("POST /v1/runs", a.handleCreateRun)
	a.mux.HandleFunc("GET /v1/runs/{id}", a.handleGetRun)
	a.mux.HandleFunc("GET /v1/runs", a.handleListRuns)
	a.mux.HandleFunc("DELETE /v1/runs/{id}", a.handleDeleteRun)

	return a
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest. The returned handler includes
// HTTP-level middleware for request ID propagation.
func (a *Adapter) Handler() http.Handler {
	return httpRequestIDMiddleware(a.mux)
}

// httpRequestIDMiddleware is HTTP-level middleware that propagates the
// X-Request-ID header. If present in the request, it is forwarded into
// the context so the transport-level RequestID middleware reuses it, and
// the final request ID is echoed on the response.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Request-ID"); id != "" {
			ctx := transport.ContextWithRequestID(r.Context(), id)
			r = r.WithContext(ctx)
		}
		rw := &requestIDResponseWriter{ResponseWriter: w, r: r}
		next.ServeHTTP(rw, r)
	})
}

// requestIDResponseWriter wraps http.ResponseWriter to inject the
// X-Request-ID header before the first write.
type requestIDResponseWriter struct {
	http.ResponseWriter
	r           *http.Request
	headersSent bool
}

func (w *requestIDResponseWriter) WriteHeader(statusCode int) {
	w.ensureRequestIDHeader()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *requestIDResponseWriter) Write(b []byte) (int, error) {
	w.ensureRequestIDHeader()
	return w.ResponseWriter.Write(b)
}

// Unwrap returns the underlying ResponseWriter for http.NewResponseController.
func (w *requestIDResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *requestIDResponseWriter) ensureRequestIDHeader() {
	if w.headersSent {
		return
	}
	w.headersSent = true
	if id := transport.RequestIDFromContext(w.r.Context()); id != "" {
		w.ResponseWriter.Header().Set("X-Request-ID", id)
	}
}

// handleCreateRun handles POST /v1/runs.
func (a *Adapter) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
			http.StatusUnsupportedMediaType,
		)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	var req api.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	run, err := a.runner.RunBatch(r.Context(), &req)
	if err != nil {
		a.writeHandlerError(w, err)
		return
	}

	if a.store != nil && api.ResolveStore(&req) {
		if err := a.store.SaveRun(r.Context(), run); err != nil {
			a.writeHandlerError(w, err)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run)
}

// handleGetRun handles GET /v1/runs/{id}.
func (a *Adapter) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("", "run retrieval is not available (no store configured)"),
			http.StatusNotImplemented,
		)
		return
	}

	id := r.PathValue("id")
	if !api.ValidateRunID(id) {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("id", "malformed run ID"),
			http.StatusBadRequest,
		)
		return
	}

	run, err := a.store.GetRun(r.Context(), id)
	if err != nil {
		a.writeStoreError(w, id, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run)
}

// handleDeleteRun handles DELETE /v1/runs/{id}.
func (a *Adapter) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("", "run deletion is not available (no store configured)"),
			http.StatusNotImplemented,
		)
		return
	}

	id := r.PathValue("id")
	if !api.ValidateRunID(id) {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("id", "malformed run ID"),
			http.StatusBadRequest,
		)
		return
	}

	if err := a.store.DeleteRun(r.Context(), id); err != nil {
		a.writeStoreError(w, id, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleListRuns handles GET /v1/runs.
func (a *Adapter) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("", "run listing is not available (no store configured)"),
			http.StatusNotImplemented,
		)
		return
	}

	opts, optsErr := parseListOptions(r)
	if optsErr != nil {
		transport.WriteErrorResponse(w, optsErr, http.StatusBadRequest)
		return
	}

	result, err := a.store.ListRuns(r.Context(), opts)
	if err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			transport.WriteAPIError(w, apiErr)
		} else {
			transport.WriteAPIError(w, api.NewServerError(err.Error()))
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// parseListOptions extracts pagination parameters from the query string.
func parseListOptions(r *http.Request) (transport.ListOptions, *api.APIError) {
	q := r.URL.Query()
	opts := transport.ListOptions{
		After:  q.Get("after"),
		Before: q.Get("before"),
		Status: q.Get("status"),
		Order:  q.Get("order"),
	}

	if opts.After != "" && opts.Before != "" {
		return opts, api.NewInvalidRequestError("after", "cannot use both 'after' and 'before' cursors")
	}

	if opts.Status != "" && opts.Status != string(api.RunStatusCompleted) && opts.Status != string(api.RunStatusFailed) {
		return opts, api.NewInvalidRequestError("status", "status must be 'completed' or 'failed'")
	}

	if opts.Order != "" && opts.Order != "asc" && opts.Order != "desc" {
		return opts, api.NewInvalidRequestError("order", "order must be 'asc' or 'desc'")
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > 100 {
			return opts, api.NewInvalidRequestError("limit", "limit must be an integer between 1 and 100")
		}
		opts.Limit = limit
	}

	return opts, nil
}

// writeHandlerError writes an error response from the run handler.
// Strict-mode batch failures become validation errors; anything else
// unrecognized becomes a server error.
func (a *Adapter) writeHandlerError(w http.ResponseWriter, err error) {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		apiErr = classifyBatchError(err)
	}
	transport.WriteAPIError(w, apiErr)
}

// classifyBatchError maps the batch error taxonomy onto the API error codes.
func classifyBatchError(err error) *api.APIError {
	var missingField *batch.MissingFieldError
	if errors.As(err, &missingField) {
		return api.NewValidationError("missing_field", missingField.Field, err.Error())
	}

	var parseErr *batch.ParseError
	if errors.As(err, &parseErr) {
		return api.NewValidationError("parse_error", parseErr.Field, err.Error())
	}

	var invalidStructure *normalize.InvalidStructureError
	if errors.As(err, &invalidStructure) {
		return api.NewValidationError("invalid_structure", "", err.Error())
	}

	var missingMessage *normalize.MissingMessageError
	if errors.As(err, &missingMessage) {
		return api.NewValidationError("missing_message", "", err.Error())
	}

	var recordErr *batch.RecordError
	if errors.As(err, &recordErr) {
		return api.NewValidationError("unexpected_error", "", err.Error())
	}

	return api.NewServerError(err.Error())
}

// writeStoreError maps store errors to API error responses.
func (a *Adapter) writeStoreError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		transport.WriteAPIError(w, api.NewNotFoundError("run "+id+" not found"))
		return
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		transport.WriteAPIError(w, apiErr)
		return
	}
	transport.WriteAPIError(w, api.NewServerError(err.Error()))
}
