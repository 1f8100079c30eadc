// Package managed models a managed runtime that OS threads must attach to
// before running code against it, and detach from before they exit.
package managed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

const Namespace = "managed"

var (
	ErrAlreadyRegistered = errors.New(Namespace + ": runtime already registered")
	ErrNilRuntime        = errors.New(Namespace + ": nil runtime")
	ErrSealed            = errors.New(Namespace + ": runtime handle sealed, registration is closed")
)

// Env is the per-thread environment returned by a successful Attach.
// Its concrete type is defined by the Runtime implementation.
type Env any

// Runtime is a managed runtime keyed on the calling OS thread.
// Attach and Detach are called from the same locked OS thread.
type Runtime interface {
	Attach() (Env, error)
	Detach(Env) error
}

// Guard holds one attachment. Release detaches exactly once.
type Guard struct {
	rt   Runtime
	env  Env
	once sync.Once
	err  error
}

// Attach attaches the calling thread to rt and returns a guard to be released
// on every exit path of the thread. A nil rt yields a guard that does nothing.
func Attach(rt Runtime) (*Guard, error) {
	if rt == nil {
		return &Guard{}, nil
	}
	env, err := rt.Attach()
	if err != nil {
		return nil, err
	}
	return &Guard{rt: rt, env: env}, nil
}

// Env returns the attached environment, nil for a no-op guard.
func (g *Guard) Env() Env { return g.env }

// Release detaches from the runtime. Subsequent calls return the first result.
func (g *Guard) Release() error {
	g.once.Do(func() {
		if g.rt != nil {
			g.err = g.rt.Detach(g.env)
		}
	})
	return g.err
}

// Handle is a single-assignment slot for a process-wide Runtime.
// It is written once during host startup and only read afterwards.
// Seal closes registration: after it, Set fails even if nothing was stored.
type Handle struct {
	state atomic.Pointer[holder]
}

type holder struct {
	rt     Runtime
	sealed bool
}

// Set stores rt. Only the first successful Set wins, and only before Seal.
func (h *Handle) Set(rt Runtime) error {
	if rt == nil {
		return ErrNilRuntime
	}
	cur := h.state.Load()
	if cur != nil {
		if cur.rt != nil {
			return ErrAlreadyRegistered
		}
		return ErrSealed
	}
	if !h.state.CompareAndSwap(nil, &holder{rt: rt}) {
		// lost to a concurrent Set or Seal
		if h.state.Load().rt != nil {
			return ErrAlreadyRegistered
		}
		return ErrSealed
	}
	return nil
}

// Seal closes registration and returns the runtime stored so far, if any.
// Sealing twice is allowed.
func (h *Handle) Seal() (Runtime, bool) {
	for {
		cur := h.state.Load()
		if cur != nil && cur.sealed {
			return cur.rt, cur.rt != nil
		}
		next := &holder{sealed: true}
		if cur != nil {
			next.rt = cur.rt
		}
		if h.state.CompareAndSwap(cur, next) {
			return next.rt, next.rt != nil
		}
	}
}

// Get returns the stored runtime.
func (h *Handle) Get() (Runtime, bool) {
	p := h.state.Load()
	if p == nil || p.rt == nil {
		return nil, false
	}
	return p.rt, true
}

// IsSet reports whether a runtime has been stored.
func (h *Handle) IsSet() bool {
	_, ok := h.Get()
	return ok
}

// IsSealed reports whether Seal has been called.
func (h *Handle) IsSealed() bool {
	p := h.state.Load()
	return p != nil && p.sealed
}

type envKey struct{}

// WithEnv returns a copy of ctx carrying env.
func WithEnv(ctx context.Context, env Env) context.Context {
	return context.WithValue(ctx, envKey{}, env)
}

// EnvFromContext returns the env attached to the executing worker thread.
func EnvFromContext(ctx context.Context) (Env, bool) {
	env := ctx.Value(envKey{})
	return env, env != nil
}
