package worker

import (
	"context"
	"sync"

	"github.com/dong881/audio-processor/internal/domain"
)

// Task is one unit of background work. The context is the pool's run
// context; tasks must return promptly once it is cancelled.
type Task func(ctx context.Context)

// Pool runs submitted tasks on a fixed number of goroutines. Each job
// function runs to completion on its worker; there is no preemption.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan Task
	quit chan struct{}
	once sync.Once
	n    int
}

func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 3
	}
	// The queue buffers bursts so Submit stays non-blocking.
	return &Pool{jobs: make(chan Task, workers*8), quit: make(chan struct{}), n: workers}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task := <-p.jobs:
					if task != nil {
						task(ctx)
					}
				}
			}
		}()
	}
}

// Stop signals workers to exit and waits for in-flight tasks to finish.
func (p *Pool) Stop() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}

// Submit enqueues a task without blocking. A saturated queue is rejected so
// the HTTP layer can surface back-pressure instead of hanging.
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return domain.ErrInvalidArgument
	}
	select {
	case p.jobs <- task:
		return nil
	default:
		return domain.ErrQueueFull
	}
}
