package jobqueue

import (
	"context"
	"log/slog"
	"sync"

	"github.com/urbansims/microgreens/internal/domain/tracker"
)

// HandlerQueue supports setting a handler for job delivery.
type HandlerQueue interface {
	tracker.JobQueue
	SetHandler(handler Handler)
	Close() error
}

// Handler executes a single job.
type Handler func(ctx context.Context, name string, payload map[string]any) error

// ImmediateQueue runs the handler in a goroutine on enqueue.
type ImmediateQueue struct {
	mu      sync.RWMutex
	handler Handler
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewImmediateQueue constructs the queue.
func NewImmediateQueue(logger *slog.Logger) *ImmediateQueue {
	return &ImmediateQueue{logger: logger.With("component", "jobqueue.immediate")}
}

// SetHandler replaces the handler used for queued jobs.
func (q *ImmediateQueue) SetHandler(handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handler = handler
}

// Enqueue invokes the handler asynchronously, detached from the caller's cancellation.
func (q *ImmediateQueue) Enqueue(ctx context.Context, name string, payload any) error {
	typed, ok := payload.(map[string]any)
	if !ok {
		typed = map[string]any{}
	}
	q.mu.RLock()
	handler := q.handler
	q.mu.RUnlock()
	if handler == nil {
		return nil
	}
	jobCtx := context.WithoutCancel(ctx)
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := handler(jobCtx, name, typed); err != nil {
			q.logger.Warn("job failed", "job", name, "error", err)
		}
	}()
	return nil
}

// Close waits for in-flight jobs.
func (q *ImmediateQueue) Close() error {
	q.wg.Wait()
	return nil
}

var _ HandlerQueue = (*ImmediateQueue)(nil)
