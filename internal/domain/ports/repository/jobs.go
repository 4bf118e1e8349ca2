package repository

import (
	"context"
	"time"

	"github.com/dong881/audio-processor/internal/domain/model"
)

// JobRepository is the single source of truth for job state. Implementations
// must be safe for concurrent use; Get and List hand out copies so callers
// never share memory with the worker mutating the record.
type JobRepository interface {
	Create(ctx context.Context, job *model.Job) error
	Get(ctx context.Context, id string) (*model.Job, error)
	List(ctx context.Context, filter model.JobFilter) ([]*model.Job, error)
	// Update applies fn to the stored record under the repository lock. fn
	// must be quick and must not do I/O.
	Update(ctx context.Context, id string, fn func(*model.Job)) error
	// DeleteTerminalBefore removes terminal jobs whose last update is older
	// than cutoff and returns how many were evicted.
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error)
}
