package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dong881/audio-processor/internal/domain/ports/repository"
	"github.com/dong881/audio-processor/internal/infra/metrics"
)

// Janitor periodically evicts terminal jobs older than the retention TTL so
// the in-memory store does not grow without bound.
type Janitor struct {
	interval time.Duration
	ttl      time.Duration
	jobs     repository.JobRepository
	log      *zerolog.Logger
}

func NewJanitor(interval, ttl time.Duration, jobs repository.JobRepository, logger *zerolog.Logger) *Janitor {
	l := logger.With().Str("component", "Janitor").Logger()
	return &Janitor{interval: interval, ttl: ttl, jobs: jobs, log: &l}
}

func (w *Janitor) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Dur("ttl", w.ttl).Msg("starting job janitor")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping job janitor")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.jobs.DeleteTerminalBefore(ctx, time.Now().Add(-w.ttl))
			if err != nil {
				w.log.Error().Err(err).Msg("janitor sweep error")
				continue
			}
			if n > 0 {
				metrics.AddJobsEvicted(n)
				w.log.Info().Int("count", n).Msg("evicted terminal jobs")
			}
		}
	}
}
