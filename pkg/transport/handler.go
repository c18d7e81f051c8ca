package transport

import (
	"context"

	"github.com/glatt-dev/glatt/pkg/api"
)

// BatchRunner executes one batch normalization run. It is the primary
// handler contract; implementations receive a validated request and return
// the completed run or an error.
type BatchRunner interface {
	RunBatch(ctx context.Context, req *api.RunRequest) (*api.Run, error)
}

// BatchRunnerFunc is an adapter that allows using an ordinary function
// as a BatchRunner.
type BatchRunnerFunc func(ctx context.Context, req *api.RunRequest) (*api.Run, error)

// RunBatch calls f(ctx, req).
func (f BatchRunnerFunc) RunBatch(ctx context.Context, req *api.RunRequest) (*api.Run, error) {
	return f(ctx, req)
}

// ListOptions controls pagination, filtering, and ordering for list operations.
type ListOptions struct {
	After  string // Cursor: return runs after this ID.
	Before string // Cursor: return runs before this ID.
	Limit  int    // Maximum number of runs to return (default 20, max 100).
	Status string // Filter runs by status ("completed" or "failed").
	Order  string // Sort order: "asc" or "desc" (default "desc").
}

// RunList holds a paginated list of runs.
type RunList struct {
	Object  string     `json:"object"`
	Data    []*api.Run `json:"data"`
	HasMore bool       `json:"has_more"`
	FirstID string     `json:"first_id"`
	LastID  string     `json:"last_id"`
}

// RunStore handles persistence, retrieval, and deletion of stored runs.
// It is only available in deployments with persistence configured.
type RunStore interface {
	// SaveRun persists a completed run to the store.
	SaveRun(ctx context.Context, run *api.Run) error

	// GetRun retrieves a run by ID. Returns an error if the run does not
	// exist or has been deleted (soft delete).
	GetRun(ctx context.Context, id string) (*api.Run, error)

	// DeleteRun soft-deletes a run by ID.
	DeleteRun(ctx context.Context, id string) error

	// ListRuns returns a paginated list of stored runs. Results are
	// filtered by tenant (when present in context) and optionally by
	// status. Supports cursor-based pagination and ordering.
	ListRuns(ctx context.Context, opts ListOptions) (*RunList, error)

	// HealthCheck verifies the store connection is functional.
	HealthCheck(ctx context.Context) error

	// Close releases database connections and resources.
	Close() error
}
