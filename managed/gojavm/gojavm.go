// Package gojavm implements managed.Runtime on top of the goja JavaScript VM.
//
// A goja.Runtime must never be used from more than one goroutine, so every
// attached worker thread gets its own VM. Tasks reach the VM of the thread
// they run on through FromContext.
package gojavm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dop251/goja"

	"github.com/ygrebnov/threadpool/managed"
)

var (
	ErrNotAttached = errors.New(managed.Namespace + ": goja: thread is not attached")
	ErrForeignEnv  = errors.New(managed.Namespace + ": goja: env was not created by this runtime")
)

// Runtime hands out one VM per attached thread.
type Runtime struct {
	bootstrap string
	setup     func(*goja.Runtime) error

	mu  sync.Mutex
	vms map[*goja.Runtime]struct{}
}

var _ managed.Runtime = (*Runtime)(nil)

// Option configures a Runtime.
type Option func(*Runtime)

// WithBootstrap evaluates src in every VM right after it is created.
func WithBootstrap(src string) Option {
	return func(r *Runtime) { r.bootstrap = src }
}

// WithSetup runs fn against every new VM before the bootstrap script,
// typically to install Go bindings with vm.Set.
func WithSetup(fn func(*goja.Runtime) error) Option {
	return func(r *Runtime) { r.setup = fn }
}

// New returns a Runtime with no attached threads.
func New(opts ...Option) *Runtime {
	r := &Runtime{vms: make(map[*goja.Runtime]struct{})}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Attach creates the VM for the calling thread.
func (r *Runtime) Attach() (managed.Env, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	if r.setup != nil {
		if err := r.setup(vm); err != nil {
			return nil, fmt.Errorf("%s: goja setup: %w", managed.Namespace, err)
		}
	}
	if r.bootstrap != "" {
		if _, err := vm.RunString(r.bootstrap); err != nil {
			return nil, fmt.Errorf("%s: goja bootstrap: %w", managed.Namespace, err)
		}
	}

	r.mu.Lock()
	r.vms[vm] = struct{}{}
	r.mu.Unlock()
	return vm, nil
}

// Detach forgets the VM of the calling thread.
func (r *Runtime) Detach(env managed.Env) error {
	vm, ok := env.(*goja.Runtime)
	if !ok {
		return ErrForeignEnv
	}

	r.mu.Lock()
	_, known := r.vms[vm]
	delete(r.vms, vm)
	r.mu.Unlock()

	if !known {
		return ErrForeignEnv
	}
	vm.ClearInterrupt()
	return nil
}

// Attached returns the number of threads currently attached.
func (r *Runtime) Attached() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.vms)
}

// Interrupt aborts whatever script each attached VM is running.
// It is safe to call from any goroutine.
func (r *Runtime) Interrupt(reason any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for vm := range r.vms {
		vm.Interrupt(reason)
	}
}

// FromContext returns the VM attached to the worker running the task.
func FromContext(ctx context.Context) (*goja.Runtime, bool) {
	env, ok := managed.EnvFromContext(ctx)
	if !ok {
		return nil, false
	}
	vm, ok := env.(*goja.Runtime)
	return vm, ok
}

// Eval runs src on the VM attached to the current worker.
func Eval(ctx context.Context, src string) (goja.Value, error) {
	vm, ok := FromContext(ctx)
	if !ok {
		return nil, ErrNotAttached
	}
	return vm.RunString(src)
}
