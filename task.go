package threadpool

import "context"

type taskKind uint8

const (
	kindWork taskKind = iota
	kindShutdown
)

// Task is a unit of work posted to the pool queue.
//
// A Task is either ordinary work, built with Work or Func, or the shutdown
// sentinel built with Shutdown. The worker that dequeues a shutdown sentinel
// leaves its loop; no other worker and no other task is affected.
// The zero Task is work that does nothing.
type Task struct {
	kind taskKind
	fn   func(context.Context) error
}

// Work wraps fn as ordinary work. A non-nil error returned by fn is a task
// failure and terminates the worker that ran it.
func Work(fn func(context.Context) error) Task {
	return Task{kind: kindWork, fn: fn}
}

// Func wraps fn as ordinary work that cannot fail except by panicking.
func Func(fn func(context.Context)) Task {
	if fn == nil {
		return Task{}
	}
	return Work(func(ctx context.Context) error { fn(ctx); return nil })
}

// Shutdown returns the sentinel that stops exactly one worker.
func Shutdown() Task {
	return Task{kind: kindShutdown}
}

// IsShutdown reports whether t is the shutdown sentinel.
func (t Task) IsShutdown() bool { return t.kind == kindShutdown }

func (t Task) run(ctx context.Context) error {
	if t.fn == nil {
		return nil
	}
	return t.fn(ctx)
}
