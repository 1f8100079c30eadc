package threadpool

import (
	"fmt"
	"runtime"
)

// Thread is a handle to a spawned worker thread. The pool is the only party
// that joins it.
type Thread interface {
	// ID identifies the OS thread (the kernel tid where available).
	ID() int
	// Join blocks until the thread's entry function has returned.
	Join()
}

// Spawner starts threads running entry. Implementations are selected at
// build time; the pool itself never branches on platform.
//
// Spawn must run entry on a new thread and return without waiting for it:
// entry blocks until Spawn has returned, so calling it synchronously
// deadlocks. On error, or when no Thread is returned, an entry that was
// started anyway returns immediately without running any task.
type Spawner interface {
	Spawn(name string, entry func()) (Thread, error)
}

// SpawnerFunc adapts a function to Spawner.
type SpawnerFunc func(name string, entry func()) (Thread, error)

func (f SpawnerFunc) Spawn(name string, entry func()) (Thread, error) { return f(name, entry) }

// OSThreads returns the default backend: every thread is a goroutine locked
// to its own OS thread for its whole life. The lock is never released, so
// the OS thread exits together with the worker.
func OSThreads() Spawner { return osSpawner{} }

type osSpawner struct{}

type osThread struct {
	id   int
	done chan struct{}
}

func (t *osThread) ID() int { return t.id }
func (t *osThread) Join()   { <-t.done }

// running reports whether the thread's entry function has not returned yet.
// Until then its tid cannot have been reused by another thread.
func (t *osThread) running() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

func (osSpawner) Spawn(name string, entry func()) (Thread, error) {
	t := &osThread{done: make(chan struct{})}
	ready := make(chan error, 1)

	go func() {
		runtime.LockOSThread()
		defer close(t.done)

		id, err := setupThread(name)
		if err != nil {
			ready <- err
			return
		}
		t.id = id
		ready <- nil

		entry()
	}()

	if err := <-ready; err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrSpawnFailed, name, err)
	}
	return t, nil
}
