// Package jobstore provides JobRepository implementations. The in-memory
// store is the default and matches the source system's behavior (job history
// is lost on restart); the Redis store is a drop-in durable alternative.
package jobstore

import (
	"context"
	"sync"
	"time"

	"github.com/dong881/audio-processor/internal/domain"
	"github.com/dong881/audio-processor/internal/domain/model"
	"github.com/dong881/audio-processor/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*MemoryStore)(nil)

// MemoryStore keeps all job records behind one mutex. Critical sections only
// copy records in or out; no I/O happens under the lock.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*model.Job)}
}

func (s *MemoryStore) Create(_ context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return domain.ErrInvalidArgument
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return j.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context, filter model.JobFilter) ([]*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if filter.Matches(j) {
			out = append(out, j.Clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn func(*model.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(j)
	j.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) DeleteTerminalBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, j := range s.jobs {
		if j.Status.Terminal() && j.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
			n++
		}
	}
	return n, nil
}
