package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glatt-dev/glatt/pkg/api"
	"github.com/glatt-dev/glatt/pkg/transport"
)

// mockRunner is a configurable mock BatchRunner for testing.
type mockRunner struct {
	run *api.Run
	err error
}

func (m *mockRunner) RunBatch(ctx context.Context, req *api.RunRequest) (*api.Run, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.run != nil {
		return m.run, nil
	}
	return &api.Run{ID: api.NewRunID(), Object: "run", Status: api.RunStatusCompleted}, nil
}

// mockStore is a configurable mock RunStore for testing.
type mockStore struct {
	runs map[string]*api.Run
}

func (m *mockStore) SaveRun(_ context.Context, run *api.Run) error {
	if m.runs == nil {
		m.runs = make(map[string]*api.Run)
	}
	m.runs[run.ID] = run
	return nil
}

func (m *mockStore) GetRun(_ context.Context, id string) (*api.Run, error) {
	run, ok := m.runs[id]
	if !ok {
		return nil, api.NewNotFoundError("run not found: " + id)
	}
	return run, nil
}

func (m *mockStore) DeleteRun(_ context.Context, id string) error {
	if _, ok := m.runs[id]; !ok {
		return api.NewNotFoundError("run not found: " + id)
	}
	delete(m.runs, id)
	return nil
}

func (m *mockStore) ListRuns(_ context.Context, opts transport.ListOptions) (*transport.RunList, error) {
	list := &transport.RunList{Object: "list", Data: []*api.Run{}}
	for _, run := range m.runs {
		list.Data = append(list.Data, run)
	}
	return list, nil
}

func (m *mockStore) HealthCheck(_ context.Context) error { return nil }
func (m *mockStore) Close() error                        { return nil }

func newTestAdapter(runner transport.BatchRunner, store transport.RunStore) *Adapter {
	return NewAdapter(runner, store, DefaultConfig())
}

func postJSON(t *testing.T, srv *httptest.Server, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	resp, err := http.Post(srv.URL+"/v1/runs", "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	return resp
}

func TestCreateRunReturnsJSON(t *testing.T) {
	runner := &mockRunner{
		run: &api.Run{
			ID:     "run_testABC12345678901234567",
			Object: "run",
			Status: api.RunStatusCompleted,
			Counts: api.RunCounts{RecordsIn: 1, RecordsOut: 1},
		},
	}

	adapter := newTestAdapter(runner, nil)
	srv := httptest.NewServer(adapter.Handler())
	defer srv.Close()

	req := api.RunRequest{
		Records: []api.Record{{JSON: map[string]any{"data": map[string]any{}}}},
	}
	resp := postJSON(t, srv, req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var got api.Run
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if got.ID != "run_testABC12345678901234567" {
		t.Errorf("run ID = %q, want %q", got.ID, "run_testABC12345678901234567")
	}
}

func TestInvalidJSONBodyReturns400(t *testing.T) {
	adapter := newTestAdapter(&mockRunner{}, nil)
	srv := httptest.NewServer(adapter.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/runs", "application/json", strings.NewReader("{invalid"))
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	var errResp api.ErrorResponse
	json.NewDecoder(resp.Body).Decode(&errResp)
	if errResp.Error.Type != api.ErrorTypeInvalidRequest {
		t.Errorf("error type = %q, want %q", errResp.Error.Type, api.ErrorTypeInvalidRequest)
	}
}

func TestOversizedBodyReturns413(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBodySize = 10 // 10 bytes max
	adapter := NewAdapter(&mockRunner{}, nil, cfg)
	srv := httptest.NewServer(adapter.Handler())
	defer srv.Close()

	bigBody := strings.NewReader(`{"records":[{"json":{"data":"{}"}}]}`)
	resp, err := http.Post(srv.URL+"/v1/runs", "application/json", bigBody)
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusRequestEntityTooLarge)
	}
}

func TestWrongContentTypeReturns415(t *testing.T) {
	adapter := newTestAdapter(&mockRunner{}, nil)
	srv := httptest.NewServer(adapter.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/runs", "text/plain", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnsupportedMediaType)
	}
}

func TestUnknownPathReturns404(t *testing.T) {
	adapter := newTestAdapter(&mockRunner{}, nil)
	srv := httptest.NewServer(adapter.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/nonexistent")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        *api.APIError
		wantStatus int
	}{
		{"invalid_request -> 400", api.NewInvalidRequestError("records", "required"), http.StatusBadRequest},
		{"validation_error -> 422", api.NewValidationError("missing_field", "data", "field not set"), http.StatusUnprocessableEntity},
		{"not_found -> 404", api.NewNotFoundError("not found"), http.StatusNotFound},
		{"too_many_requests -> 429", api.NewTooManyRequestsError("rate limit"), http.StatusTooManyRequests},
		{"server_error -> 500", api.NewServerError("internal"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockRunner{err: tt.err}
			adapter := newTestAdapter(runner, nil)
			srv := httptest.NewServer(adapter.Handler())
			defer srv.Close()

			req := api.RunRequest{Records: []api.Record{{JSON: map[string]any{}}}}
			resp := postJSON(t, srv, req)
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			var errResp api.ErrorResponse
			json.NewDecoder(resp.Body).Decode(&errResp)
			if errResp.Error.Type != tt.err.Type {
				t.Errorf("error type = %q, want %q", errResp.Error.Type, tt.err.Type)
			}
		})
	}
}

func TestGetWithoutStoreReturnsError(t *testing.T) {
	adapter := newTestAdapter(&mockRunner{}, nil) // no store
	srv := httptest.NewServer(adapter.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/runs/run_abc123456789012345678901")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotImplemented)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	adapter := newTestAdapter(&mockRunner{}, nil)
	srv := httptest.NewServer(adapter.Handler())
	defer srv.Close()

	req, _ := http.NewRequest("PUT", srv.URL+"/v1/runs", strings.NewReader("{}"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}

func TestCreateRunStoresResult(t *testing.T) {
	run := &api.Run{ID: "run_stored1234567890123456ab", Object: "run", Status: api.RunStatusCompleted}
	store := &mockStore{}
	adapter := newTestAdapter(&mockRunner{run: run}, store)
	srv := httptest.NewServer(adapter.Handler())
	defer srv.Close()

	resp := postJSON(t, srv, api.RunRequest{Records: []api.Record{{JSON: map[string]any{}}}})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if _, ok := store.runs[run.ID]; !ok {
		t.Error("run was not saved to the store")
	}
}

func TestCreateRunStoreFalseSkipsPersistence(t *testing.T) {
	run := &api.Run{ID: "run_skip123456789012345678ab", Object: "run", Status: api.RunStatusCompleted}
	store := &mockStore{}
	adapter := newTestAdapter(&mockRunner{run: run}, store)
	srv := httptest.NewServer(adapter.Handler())
	defer srv.Close()

	noStore := false
	resp := postJSON(t, srv, api.RunRequest{
		Records: []api.Record{{JSON: map[string]any{}}},
		Store:   &noStore,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if len(store.runs) != 0 {
		t.Error("run should not have been persisted with store=false")
	}
}

func TestGetReturnsStoredRun(t *testing.T) {
	store := &mockStore{
		runs: map[string]*api.Run{
			"run_abc123456789012345678901": {
				ID:     "run_abc123456789012345678901",
				Object: "run",
				Status: api.RunStatusCompleted,
			},
		},
	}

	adapter := newTestAdapter(&mockRunner{}, store)
	srv := httptest.NewServer(adapter.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/runs/run_abc123456789012345678901")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got api.Run
	json.NewDecoder(resp.Body).Decode(&got)
	if got.ID != "run_abc123456789012345678901" {
		t.Errorf("run ID = %q, want %q", got.ID, "run_abc123456789012345678901")
	}
}

func TestGetUnknownIDReturns404(t *testing.T) {
	store := &mockStore{runs: map[string]*api.Run{}}
	adapter := newTestAdapter(&mockRunner{}, store)
	srv := httptest.NewServer(adapter.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/runs/run_unknown12345678901234567")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestGetMalformedIDReturns400(t *testing.T) {
	store := &mockStore{runs: map[string]*api.Run{}}
	adapter := newTestAdapter(&mockRunner{}, store)
	srv := httptest.NewServer(adapter.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/runs/bad-id")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestDeleteReturns204(t *testing.T) {
	store := &mockStore{
		runs: map[string]*api.Run{
			"run_abc123456789012345678901": {ID: "run_abc123456789012345678901"},
		},
	}

	adapter := newTestAdapter(&mockRunner{}, store)
	srv := httptest.NewServer(adapter.Handler())
	defer srv.Close()

	req, _ := http.NewRequest("DELETE", srv.URL+"/v1/runs/run_abc123456789012345678901", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
}

func TestDeleteUnknownIDReturns404(t *testing.T) {
	store := &mockStore{runs: map[string]*api.Run{}}
	adapter := newTestAdapter(&mockRunner{}, store)
	srv := httptest.NewServer(adapter.Handler())
	defer srv.Close()

	req, _ := http.NewRequest("DELETE", srv.URL+"/v1/runs/run_unknown12345678901234567", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestDeleteMalformedIDReturns400(t *testing.T) {
	store := &mockStore{runs: map[string]*api.Run{}}
	adapter := newTestAdapter(&mockRunner{}, store)
	srv := httptest.NewServer(adapter.Handler())
	defer srv.Close()

	req, _ := http.NewRequest("DELETE", srv.URL+"/v1/runs/bad-id", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestListRuns(t *testing.T) {
	store := &mockStore{
		runs: map[string]*api.Run{
			"run_abc123456789012345678901": {ID: "run_abc123456789012345678901"},
		},
	}
	adapter := newTestAdapter(&mockRunner{}, store)
	srv := httptest.NewServer(adapter.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/runs")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var list transport.RunList
	json.NewDecoder(resp.Body).Decode(&list)
	if list.Object != "list" || len(list.Data) != 1 {
		t.Errorf("unexpected list: %+v", list)
	}
}

func TestListRunsInvalidParams(t *testing.T) {
	store := &mockStore{}
	adapter := newTestAdapter(&mockRunner{}, store)
	srv := httptest.NewServer(adapter.Handler())
	defer srv.Close()

	for _, query := range []string{
		"?limit=0",
		"?limit=999",
		"?order=sideways",
		"?status=pending",
		"?after=run_a&before=run_b",
	} {
		resp, err := http.Get(srv.URL + "/v1/runs" + query)
		if err != nil {
			t.Fatalf("GET error: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("query %q: status = %d, want 400", query, resp.StatusCode)
		}
	}
}

func TestRequestIDEchoedOnResponse(t *testing.T) {
	adapter := NewAdapter(&mockRunner{}, nil, DefaultConfig(), transport.RequestID())
	srv := httptest.NewServer(adapter.Handler())
	defer srv.Close()

	data, _ := json.Marshal(api.RunRequest{Records: []api.Record{{JSON: map[string]any{}}}})
	req, _ := http.NewRequest("POST", srv.URL+"/v1/runs", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "client-id-42")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("X-Request-ID"); got != "client-id-42" {
		t.Errorf("X-Request-ID = %q, want client-id-42", got)
	}
}
