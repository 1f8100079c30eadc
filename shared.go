package threadpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ygrebnov/errorc"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ygrebnov/threadpool/managed"
)

// DefaultSharedWorkers is the fixed size of the pool returned by SharedInstance.
const DefaultSharedWorkers = 40

var (
	// runtimeHandle is written once by RegisterRuntime during host startup.
	runtimeHandle = new(managed.Handle)

	requireRuntime atomic.Bool

	shared struct {
		once sync.Once
		mu   sync.Mutex
		pool *ThreadPool
	}

	// abort terminates the process on unrecoverable misconfiguration.
	abort = func(err error) {
		abortLogger().Fatal("thread pool cannot be used", zap.Error(err))
	}
)

func init() {
	requireRuntime.Store(platformRequiresRuntime)
}

// RegisterRuntime sets the process-wide managed runtime used by the workers
// of SharedInstance. It succeeds only once, and only before the first
// SharedInstance call: afterwards it returns ErrRuntimeRegisteredLate.
func RegisterRuntime(rt managed.Runtime) error {
	err := runtimeHandle.Set(rt)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, managed.ErrAlreadyRegistered):
		return ErrRuntimeAlreadyRegistered
	case errors.Is(err, managed.ErrSealed):
		return errorc.With(ErrRuntimeRegisteredLate, errorc.String("shared_pool", "already constructed"))
	default:
		return errors.Join(ErrInvalidConfig, err)
	}
}

// RequireRuntime overrides the platform default for whether SharedInstance
// needs a registered runtime. Hosts call it before first use.
func RequireRuntime(required bool) { requireRuntime.Store(required) }

// SharedInstance returns the process-wide pool, creating it with
// DefaultSharedWorkers workers on first call. Concurrent first calls
// construct it exactly once.
//
// When a managed runtime is required and none has been registered the
// process is aborted: workers could not attach to anything.
// The pool logs through zap.L().
func SharedInstance() *ThreadPool {
	if requireRuntime.Load() && !runtimeHandle.IsSet() {
		abort(ErrRuntimeNotRegistered)
	}

	shared.once.Do(func() {
		// registration closes here, even when nothing was registered
		rt, _ := runtimeHandle.Seal()
		p, err := New(context.Background(),
			WithWorkers(DefaultSharedWorkers),
			WithRuntime(rt),
			WithLogger(zap.L()),
			WithName("shared"),
		)
		if err != nil {
			abort(err)
			return
		}
		shared.mu.Lock()
		shared.pool = p
		shared.mu.Unlock()
	})

	shared.mu.Lock()
	defer shared.mu.Unlock()
	return shared.pool
}

// ShutdownShared closes the shared pool if it was ever created.
// Hosts call it at process teardown; the pool is not recreated afterwards.
func ShutdownShared() error {
	shared.mu.Lock()
	p := shared.pool
	shared.mu.Unlock()

	if p == nil {
		return nil
	}
	return p.Close()
}

// abortLogger returns zap.L() or, when the global logger discards fatal
// entries, a production logger so the reason reaches stderr.
func abortLogger() *zap.Logger {
	l := zap.L()
	if l.Core().Enabled(zapcore.FatalLevel) {
		return l
	}
	if pl, err := zap.NewProduction(); err == nil {
		return pl
	}
	return l
}
