package jobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/dong881/audio-processor/internal/config"
	"github.com/dong881/audio-processor/internal/domain"
	"github.com/dong881/audio-processor/internal/domain/model"
	"github.com/dong881/audio-processor/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*RedisStore)(nil)

const jobKeyPrefix = "job:"

// RedisStore persists job records as JSON values so job history survives
// process restarts. The single-writer-per-job invariant makes the
// get-modify-set in Update safe without a distributed lock.
type RedisStore struct {
	cli *redis.Client
	ttl time.Duration
}

func NewRedisStore(ctx context.Context, cfg *config.RedisConfig) (*RedisStore, error) {
	cli := redis.NewClient(&redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisStore{cli: cli, ttl: ttl}, nil
}

func (s *RedisStore) Close() error { return s.cli.Close() }

func (s *RedisStore) Create(ctx context.Context, job *model.Job) error {
	b, err := json.Marshal(job)
	if err != nil {
		return err
	}
	ok, err := s.cli.SetNX(ctx, jobKeyPrefix+job.ID, b, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidArgument
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*model.Job, error) {
	raw, err := s.cli.Get(ctx, jobKeyPrefix+id).Result()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var j model.Job
	if err := json.Unmarshal([]byte(raw), &j); err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *RedisStore) List(ctx context.Context, filter model.JobFilter) ([]*model.Job, error) {
	var out []*model.Job
	iter := s.cli.Scan(ctx, 0, jobKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		raw, err := s.cli.Get(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}
		var j model.Job
		if err := json.Unmarshal([]byte(raw), &j); err != nil {
			continue
		}
		if filter.Matches(&j) {
			out = append(out, &j)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RedisStore) Update(ctx context.Context, id string, fn func(*model.Job)) error {
	j, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	fn(j)
	j.UpdatedAt = time.Now()
	b, err := json.Marshal(j)
	if err != nil {
		return err
	}
	return s.cli.Set(ctx, jobKeyPrefix+id, b, s.ttl).Err()
}

func (s *RedisStore) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error) {
	n := 0
	iter := s.cli.Scan(ctx, 0, jobKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		raw, err := s.cli.Get(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}
		var j model.Job
		if err := json.Unmarshal([]byte(raw), &j); err != nil {
			continue
		}
		if j.Status.Terminal() && j.UpdatedAt.Before(cutoff) {
			if s.cli.Del(ctx, iter.Val()).Err() == nil {
				n++
			}
		}
	}
	return n, iter.Err()
}
