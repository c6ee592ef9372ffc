// Package jobs provides a small in-process worker pool with retries.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNotStarted = errors.New("queue not started")
	ErrStopped    = errors.New("queue stopped")
	ErrFull       = errors.New("queue full")
)

// Config configures worker pool behaviour.
type Config struct {
	Workers     int
	BufferSize  int
	MaxAttempts int
	RetryDelay  time.Duration
	Logger      *zap.Logger
}

// Queue runs a handler over submitted items on a fixed set of workers. A
// failed item is retried in place with linear backoff until MaxAttempts.
// Stop drains items already accepted, retries included, before returning.
type Queue[T any] struct {
	name    string
	handler func(context.Context, T) error
	cfg     Config

	items   chan T
	ctx     context.Context
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	stopped bool
}

// New builds a queue; call Start before Submit.
func New[T any](name string, handler func(context.Context, T) error, cfg Config) *Queue[T] {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue[T]{
		name:    name,
		handler: handler,
		cfg:     cfg,
		items:   make(chan T, cfg.BufferSize),
	}
}

// Start launches the workers. Handlers receive a context carrying ctx's
// values but not its cancellation, so a shutdown signal does not abort the
// drain.
func (q *Queue[T]) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx = context.WithoutCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.cfg.Logger.Info("queue started", zap.String("queue", q.name), zap.Int("workers", q.cfg.Workers))
}

// Stop refuses new items and waits for workers to finish the accepted ones.
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	if !q.started || q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.items)
	q.mu.Unlock()

	q.wg.Wait()
	q.cfg.Logger.Info("queue stopped", zap.String("queue", q.name))
}

// Submit hands item to the workers without blocking.
func (q *Queue[T]) Submit(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	switch {
	case !q.started:
		return ErrNotStarted
	case q.stopped:
		return ErrStopped
	}
	select {
	case q.items <- item:
		return nil
	default:
		return ErrFull
	}
}

func (q *Queue[T]) worker() {
	defer q.wg.Done()
	for item := range q.items {
		q.process(item)
	}
}

func (q *Queue[T]) process(item T) {
	for attempt := 1; ; attempt++ {
		err := q.handler(q.ctx, item)
		if err == nil {
			return
		}
		if attempt >= q.cfg.MaxAttempts {
			q.cfg.Logger.Warn("job exhausted retries", zap.String("queue", q.name), zap.Int("attempts", attempt), zap.Error(err))
			return
		}
		time.Sleep(q.cfg.RetryDelay * time.Duration(attempt))
	}
}
