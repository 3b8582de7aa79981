// Package engine is the boundary to the native inference runtime. The
// scheduler hands it one unit of work at a time; a real SDK build plugs
// the llama.cpp/whisper bindings in behind the same interface.
package engine

import (
	"context"
	"sync"
)

// Engine executes scheduled work and supports best-effort cancellation by
// task id. Cancelling an in-flight task depends entirely on the runtime's
// own cancellation responsiveness.
type Engine interface {
	Exec(ctx context.Context, id string, fn func(context.Context) error) error
	Cancel(id string) bool
}

// Local runs work in-process under a per-task cancellable context.
type Local struct {
	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

func NewLocal() *Local {
	return &Local{inflight: make(map[string]context.CancelFunc)}
}

func (l *Local) Exec(ctx context.Context, id string, fn func(context.Context) error) error {
	taskCtx, cancel := context.WithCancel(ctx)
	l.mu.Lock()
	l.inflight[id] = cancel
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		delete(l.inflight, id)
		l.mu.Unlock()
		cancel()
	}()
	return fn(taskCtx)
}

// Cancel cancels the task's context if it is still in flight and reports
// whether it was found.
func (l *Local) Cancel(id string) bool {
	l.mu.Lock()
	cancel, ok := l.inflight[id]
	l.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}
