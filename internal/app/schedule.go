package app

import (
	"context"
	"sync"
	"time"
)

// Task is a repeating scheduled job. It runs until its function reports
// completion, its parent context ends, or Cancel is called.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Schedule runs fn immediately and then once per interval until fn returns
// true. fn receives the task's context, which is cancelled as soon as the task
// is cancelled so in-flight work can abort.
func Schedule(ctx context.Context, interval time.Duration, fn func(ctx context.Context) bool) *Task {
	taskCtx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)
		defer cancel()

		for {
			if taskCtx.Err() != nil {
				return
			}
			if fn(taskCtx) {
				return
			}

			select {
			case <-taskCtx.Done():
				return
			case <-time.After(interval):
			}
		}
	}()

	return t
}

// Cancel stops the task. It is safe to call more than once and after the task
// has finished on its own.
func (t *Task) Cancel() {
	t.once.Do(t.cancel)
}

// Done is closed once the task goroutine has exited.
func (t *Task) Done() <-chan struct{} {
	return t.done
}
