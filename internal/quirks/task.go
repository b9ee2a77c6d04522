package quirks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Task is a cancellable background job started by a capability unit.
type Task struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Go runs fn in a goroutine under a context derived from parent. Failures
// are logged; a panic in fn is recovered and reported as the task error.
func Go(parent context.Context, name string, logger *slog.Logger, fn func(ctx context.Context) error) *Task {
	ctx, cancel := context.WithCancel(parent)
	t := &Task{name: name, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				t.err = fmt.Errorf("task %s panic: %v", name, r)
				logger.Error("task panic", "task", name, "panic", r)
			}
		}()
		t.err = fn(ctx)
		switch {
		case t.err == nil:
		case errors.Is(t.err, context.Canceled):
			logger.Debug("task cancelled", "task", name)
		default:
			logger.Warn("task failed", "task", name, "err", t.err)
		}
	}()
	return t
}

// Cancel stops the task at its next suspension point.
func (t *Task) Cancel() { t.cancel() }

// Wait blocks until the task returns and reports its error.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}

func (t *Task) Done() <-chan struct{} { return t.done }

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
