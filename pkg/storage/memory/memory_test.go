package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/glatt-dev/glatt/pkg/api"
	"github.com/glatt-dev/glatt/pkg/storage"
	"github.com/glatt-dev/glatt/pkg/transport"
)

func makeRun(id string) *api.Run {
	return &api.Run{
		ID:     id,
		Object: "run",
		Status: api.RunStatusCompleted,
		Options: api.BatchOptions{
			InputField:  "data",
			OutputField: "data",
		},
		Records: []api.Record{
			{JSON: map[string]any{"data": map[string]any{"id": "chatcmpl-1"}}},
		},
		Counts:    api.RunCounts{RecordsIn: 1, RecordsOut: 1, FieldsCoerced: 2},
		CreatedAt: 1000,
	}
}

func TestSaveAndGet(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	run := makeRun("run_test1")
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := s.GetRun(ctx, "run_test1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}

	if got.ID != "run_test1" {
		t.Errorf("ID = %q, want %q", got.ID, "run_test1")
	}
	if got.Status != api.RunStatusCompleted {
		t.Errorf("Status = %q, want completed", got.Status)
	}
	if len(got.Records) != 1 {
		t.Errorf("len(Records) = %d, want 1", len(got.Records))
	}
	if got.Counts.FieldsCoerced != 2 {
		t.Errorf("FieldsCoerced = %d, want 2", got.Counts.FieldsCoerced)
	}
}

func TestGetNotFound(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	_, err := s.GetRun(ctx, "run_missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSoftDelete(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	s.SaveRun(ctx, makeRun("run_del"))

	if err := s.DeleteRun(ctx, "run_del"); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}

	// GetRun should return not-found.
	_, err := s.GetRun(ctx, "run_del")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// A second delete is also not-found.
	if err := s.DeleteRun(ctx, "run_del"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for repeated delete, got %v", err)
	}
}

func TestDuplicateSave(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	run := makeRun("run_dup")
	s.SaveRun(ctx, run)

	err := s.SaveRun(ctx, run)
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate, got %v", err)
	}
}

func TestDeleteNotFound(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	err := s.DeleteRun(ctx, "run_missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	s := New(0)
	if err := s.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}
}

func TestLRUEviction(t *testing.T) {
	s := New(3) // max 3 entries
	ctx := context.Background()

	s.SaveRun(ctx, makeRun("run_a"))
	s.SaveRun(ctx, makeRun("run_b"))
	s.SaveRun(ctx, makeRun("run_c"))

	// All three should be accessible.
	for _, id := range []string{"run_a", "run_b", "run_c"} {
		if _, err := s.GetRun(ctx, id); err != nil {
			t.Fatalf("expected %s to exist, got %v", id, err)
		}
	}

	// Save a 4th: oldest (run_a) should be evicted.
	s.SaveRun(ctx, makeRun("run_d"))

	if _, err := s.GetRun(ctx, "run_a"); !errors.Is(err, storage.ErrNotFound) {
		t.Error("expected run_a to be evicted")
	}

	// run_b, run_c, run_d should still exist.
	for _, id := range []string{"run_b", "run_c", "run_d"} {
		if _, err := s.GetRun(ctx, id); err != nil {
			t.Errorf("expected %s to exist after eviction, got %v", id, err)
		}
	}
}

func TestLRUEviction_Unlimited(t *testing.T) {
	s := New(0) // unlimited
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		s.SaveRun(ctx, makeRun(fmt.Sprintf("run_%03d", i)))
	}

	// All should exist (no eviction).
	s.mu.RLock()
	count := len(s.entries)
	s.mu.RUnlock()

	if count != 100 {
		t.Errorf("expected 100 entries, got %d", count)
	}
}

func TestTenantIsolation(t *testing.T) {
	s := New(0)

	ctxA := storage.SetTenant(context.Background(), "tenant-a")
	ctxB := storage.SetTenant(context.Background(), "tenant-b")
	ctxNone := context.Background()

	s.SaveRun(ctxA, makeRun("run_a1"))

	// Tenant A can retrieve.
	if _, err := s.GetRun(ctxA, "run_a1"); err != nil {
		t.Fatalf("tenant A should retrieve own run: %v", err)
	}

	// Tenant B cannot retrieve.
	if _, err := s.GetRun(ctxB, "run_a1"); !errors.Is(err, storage.ErrNotFound) {
		t.Error("tenant B should not see tenant A's run")
	}

	// No tenant (single-tenant mode) can retrieve.
	if _, err := s.GetRun(ctxNone, "run_a1"); err != nil {
		t.Fatalf("no-tenant context should see all runs: %v", err)
	}
}

func TestTenantIsolation_Delete(t *testing.T) {
	s := New(0)

	ctxA := storage.SetTenant(context.Background(), "tenant-a")
	ctxB := storage.SetTenant(context.Background(), "tenant-b")

	s.SaveRun(ctxA, makeRun("run_a2"))

	// Tenant B cannot delete tenant A's run.
	if err := s.DeleteRun(ctxB, "run_a2"); !errors.Is(err, storage.ErrNotFound) {
		t.Error("tenant B should not delete tenant A's run")
	}

	// Tenant A can delete.
	if err := s.DeleteRun(ctxA, "run_a2"); err != nil {
		t.Fatalf("tenant A should delete own run: %v", err)
	}
}

func TestListRuns(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		run := makeRun(fmt.Sprintf("run_list_%d", i))
		run.CreatedAt = int64(1000 + i)
		if i == 4 {
			run.Status = api.RunStatusFailed
		}
		s.SaveRun(ctx, run)
	}

	// Default order: newest first.
	result, err := s.ListRuns(ctx, transport.ListOptions{})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(result.Data) != 5 {
		t.Fatalf("len(Data) = %d, want 5", len(result.Data))
	}
	if result.Data[0].ID != "run_list_4" {
		t.Errorf("first ID = %q, want run_list_4", result.Data[0].ID)
	}
	if result.HasMore {
		t.Error("HasMore should be false")
	}
	if result.FirstID != "run_list_4" || result.LastID != "run_list_0" {
		t.Errorf("FirstID/LastID = %q/%q", result.FirstID, result.LastID)
	}

	// Ascending order.
	result, _ = s.ListRuns(ctx, transport.ListOptions{Order: "asc"})
	if result.Data[0].ID != "run_list_0" {
		t.Errorf("asc first ID = %q, want run_list_0", result.Data[0].ID)
	}

	// Status filter.
	result, _ = s.ListRuns(ctx, transport.ListOptions{Status: "failed"})
	if len(result.Data) != 1 || result.Data[0].ID != "run_list_4" {
		t.Errorf("status filter returned %d runs", len(result.Data))
	}

	// Limit with pagination.
	result, _ = s.ListRuns(ctx, transport.ListOptions{Limit: 2})
	if len(result.Data) != 2 || !result.HasMore {
		t.Fatalf("limit 2: got %d runs, hasMore=%v", len(result.Data), result.HasMore)
	}

	// After cursor picks up where the first page ended.
	result, _ = s.ListRuns(ctx, transport.ListOptions{Limit: 2, After: result.LastID})
	if len(result.Data) != 2 || result.Data[0].ID != "run_list_2" {
		t.Errorf("after cursor: got %d runs, first %q", len(result.Data), result.Data[0].ID)
	}
}

func TestListRunsExcludesDeleted(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	s.SaveRun(ctx, makeRun("run_keep"))
	s.SaveRun(ctx, makeRun("run_gone"))
	s.DeleteRun(ctx, "run_gone")

	result, err := s.ListRuns(ctx, transport.ListOptions{})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(result.Data) != 1 || result.Data[0].ID != "run_keep" {
		t.Errorf("expected only run_keep, got %d runs", len(result.Data))
	}
}
