package threadpool

import (
	"runtime"
	"strconv"

	"github.com/ygrebnov/errorc"
	"go.uber.org/zap"

	"github.com/ygrebnov/threadpool/managed"
	"github.com/ygrebnov/threadpool/metrics"
)

// SpawnPolicy decides what New does when a worker thread cannot be spawned.
type SpawnPolicy int

const (
	// SpawnTolerant skips failed spawns and runs with fewer workers than
	// requested. The shortfall is logged and counted, never retried.
	SpawnTolerant SpawnPolicy = iota

	// SpawnStrict stops the workers spawned so far and makes New fail.
	SpawnStrict
)

func (p SpawnPolicy) String() string {
	switch p {
	case SpawnTolerant:
		return "tolerant"
	case SpawnStrict:
		return "strict"
	default:
		return "SpawnPolicy(" + strconv.Itoa(int(p)) + ")"
	}
}

// ParseSpawnPolicy is the inverse of SpawnPolicy.String.
func ParseSpawnPolicy(s string) (SpawnPolicy, error) {
	switch s {
	case "", "tolerant":
		return SpawnTolerant, nil
	case "strict":
		return SpawnStrict, nil
	default:
		return 0, errorc.With(ErrInvalidConfig, errorc.String("spawn_policy", s))
	}
}

// config holds ThreadPool configuration.
type config struct {
	// Workers is the number of worker threads to spawn.
	// Default: runtime.GOMAXPROCS(0)
	Workers int

	// QueueHint sizes the queue for the expected number of consumers.
	// Default: 0 (use Workers)
	QueueHint int

	// SpawnPolicy selects how spawn failures are handled.
	// Default: SpawnTolerant
	SpawnPolicy SpawnPolicy

	// Name prefixes worker thread names ("<name>-<id>").
	// Default: "pool"
	Name string

	Spawner   Spawner
	Runtime   managed.Runtime
	Logger    *zap.Logger
	Metrics   metrics.Provider
	OnFailure func(WorkerFailure)
}

// defaultConfig centralizes default values for config.
func defaultConfig() config {
	return config{
		Workers:     runtime.GOMAXPROCS(0),
		SpawnPolicy: SpawnTolerant,
		Name:        "pool",
		Spawner:     OSThreads(),
		Logger:      zap.NewNop(),
		Metrics:     metrics.NewNoopProvider(),
	}
}

// validateConfig checks cross-field invariants that single options cannot.
func validateConfig(cfg *config) error {
	if cfg.Workers < 0 {
		return errorc.With(ErrInvalidConfig, errorc.String("workers", strconv.Itoa(cfg.Workers)))
	}
	switch cfg.SpawnPolicy {
	case SpawnTolerant, SpawnStrict:
	default:
		return errorc.With(ErrInvalidConfig, errorc.String("spawn_policy", cfg.SpawnPolicy.String()))
	}
	if cfg.Spawner == nil || cfg.Logger == nil || cfg.Metrics == nil {
		return errorc.With(ErrInvalidConfig, errorc.String("", "spawner, logger and metrics must be set"))
	}
	return nil
}

// Option configures a ThreadPool. Use New(ctx, opts...) to construct a pool.
type Option func(*config) error

// WithWorkers sets the number of worker threads. Zero is valid and yields a
// pool that never runs anything.
func WithWorkers(n int) Option {
	return func(cfg *config) error {
		if n < 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithWorkers requires n >= 0"))
		}
		cfg.Workers = n
		return nil
	}
}

// WithQueueHint overrides the concurrency hint passed to the queue.
func WithQueueHint(n int) Option {
	return func(cfg *config) error { cfg.QueueHint = n; return nil }
}

// WithSpawnPolicy selects how spawn failures are handled.
func WithSpawnPolicy(p SpawnPolicy) Option {
	return func(cfg *config) error { cfg.SpawnPolicy = p; return nil }
}

// WithName sets the worker thread name prefix.
func WithName(name string) Option {
	return func(cfg *config) error {
		if name == "" {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithName requires a non-empty name"))
		}
		cfg.Name = name
		return nil
	}
}

// WithSpawner replaces the OS thread backend.
func WithSpawner(s Spawner) Option {
	return func(cfg *config) error {
		if s == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithSpawner requires a non-nil spawner"))
		}
		cfg.Spawner = s
		return nil
	}
}

// WithRuntime makes every worker attach to rt before its first task and
// detach from it when it exits.
func WithRuntime(rt managed.Runtime) Option {
	return func(cfg *config) error { cfg.Runtime = rt; return nil }
}

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(cfg *config) error {
		if l == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithLogger requires a non-nil logger"))
		}
		cfg.Logger = l
		return nil
	}
}

// WithMetrics sets the metrics provider. Default: metrics.NoopProvider.
func WithMetrics(p metrics.Provider) Option {
	return func(cfg *config) error {
		if p == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithMetrics requires a non-nil provider"))
		}
		cfg.Metrics = p
		return nil
	}
}

// WithFailureHandler registers fn to be called, from the failing worker's
// thread, each time a worker terminates because of a task failure or an
// attach failure.
func WithFailureHandler(fn func(WorkerFailure)) Option {
	return func(cfg *config) error { cfg.OnFailure = fn; return nil }
}
