package threadpool

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ygrebnov/threadpool/queue"
)

// ThreadPool runs a fixed set of worker threads that pull tasks from one
// shared queue until the pool is closed.
// Methods are safe for concurrent use.
type ThreadPool struct {
	// noCopy prevents accidental copying of the pool.
	//go:nocopy
	nc noCopy

	cfg    *config
	logger *zap.Logger
	inst   instruments

	exec      *Executor
	workers   []*worker
	requested int
	alive     atomic.Int32

	// context handed to tasks, canceled by Close
	ctx    context.Context
	cancel context.CancelFunc

	lc       *lifecycleCoordinator
	closeErr error
}

// noCopy is a vet-recognized marker to discourage copying types with this field embedded.
// It works with the "-copylocks" analyzer via the presence of Lock/Unlock methods.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// New creates the executor and spawns the configured number of worker
// threads, each of which starts pulling tasks immediately.
//
// Under SpawnTolerant (the default) threads that fail to spawn are skipped:
// Size reports the effective count. Under SpawnStrict the first spawn
// failure closes the pool and New returns an error wrapping ErrSpawnFailed.
// ctx is the parent of the context passed to tasks.
func New(ctx context.Context, opts ...Option) (*ThreadPool, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	hint := cfg.QueueHint
	if hint <= 0 {
		hint = cfg.Workers
	}

	p := &ThreadPool{
		cfg:       &cfg,
		logger:    cfg.Logger.Named(Namespace),
		inst:      newInstruments(cfg.Metrics),
		exec:      newExecutor(hint),
		workers:   make([]*worker, 0, cfg.Workers),
		requested: cfg.Workers,
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.lc = newLifecycleCoordinator(
		p.exec.keepAlive.Release,
		p.exec.queue.Stop,
		p.cancel,
		p.joinWorkers,
	)

	for i := 0; i < cfg.Workers; i++ {
		w, err := p.spawn(i)
		if err != nil {
			p.inst.spawnFailures.Add(1)
			if cfg.SpawnPolicy == SpawnStrict {
				p.logger.Error("worker spawn failed, closing pool", zap.Int("worker", i), zap.Error(err))
				_ = p.Close()
				return nil, err
			}
			p.logger.Warn("worker spawn failed, continuing without it", zap.Int("worker", i), zap.Error(err))
			continue
		}
		p.workers = append(p.workers, w)
	}

	p.logger.Info("thread pool started",
		zap.Int("requested", p.requested),
		zap.Int("workers", len(p.workers)),
		zap.Stringer("spawn_policy", cfg.SpawnPolicy),
	)
	return p, nil
}

func (p *ThreadPool) spawn(id int) (*worker, error) {
	w := &worker{id: id, started: make(chan struct{})}
	name := p.cfg.Name + "-" + strconv.Itoa(id)

	th, err := p.cfg.Spawner.Spawn(name, func() { p.runWorker(w) })
	if err == nil && th == nil {
		err = errors.New("spawner returned no thread")
	}
	if err != nil {
		// an entry the spawner started anyway must return without running
		close(w.started)
		if !errors.Is(err, ErrSpawnFailed) {
			err = fmt.Errorf("%w: %q: %w", ErrSpawnFailed, name, err)
		}
		return nil, err
	}

	w.thread = th
	w.spawned = true
	close(w.started)
	p.inst.workersSpawned.Add(1)
	return w, nil
}

// joinWorkers waits for every spawned worker thread and collects failures.
func (p *ThreadPool) joinWorkers() {
	var errs []error
	for _, w := range p.workers {
		w.thread.Join()
		p.logger.Debug("worker joined", zap.Int("worker", w.id), zap.Int("thread", w.thread.ID()))
		if w.err != nil {
			errs = append(errs, w.err)
		}
	}
	p.closeErr = errors.Join(errs...)
}

// Executor returns the executor handle workers pull from.
func (p *ThreadPool) Executor() *Executor { return p.exec }

// Queue is shorthand for p.Executor().Queue().
func (p *ThreadPool) Queue() *queue.Queue[Task] { return p.exec.Queue() }

// Post enqueues fn as ordinary work.
// After Close it returns an error matching both ErrClosed and queue.ErrStopped.
func (p *ThreadPool) Post(fn func(context.Context) error) error {
	return p.post(Work(fn))
}

// RemoveWorker posts one shutdown sentinel. Whichever worker dequeues it
// stops; the pool does not replace it.
func (p *ThreadPool) RemoveWorker() error {
	return p.post(Shutdown())
}

func (p *ThreadPool) post(t Task) error {
	if err := p.exec.Queue().Post(t); err != nil {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	return nil
}

// Size returns the number of worker threads actually spawned.
func (p *ThreadPool) Size() int { return len(p.workers) }

// Requested returns the number of worker threads New was asked to spawn.
func (p *ThreadPool) Requested() int { return p.requested }

// Alive returns the number of workers still running their loop.
func (p *ThreadPool) Alive() int { return int(p.alive.Load()) }

// Close stops the pool and blocks until every worker thread has exited.
//
// Semantics:
// - Idempotent and safe for concurrent use; every call returns the same result.
// - Releases the queue keep-alive and stops the queue first, so idle workers
//   wake up; tasks still queued are not run.
// - Cancels the context passed to tasks, then joins every worker. There is no
//   timeout: a task that never returns keeps Close blocked.
// - Returns the joined errors of workers lost to task or attach failures.
// - Called from a task, Close would wait for its own thread. On linux with
//   the default spawner that is detected: Close returns ErrCloseFromWorker
//   and the pool keeps running. Elsewhere it deadlocks; call Close from
//   another goroutine instead.
func (p *ThreadPool) Close() error {
	if p.onWorkerThread() {
		return ErrCloseFromWorker
	}
	p.lc.Close()
	return p.closeErr
}

// onWorkerThread reports whether the caller runs on a live worker thread
// of the default backend.
func (p *ThreadPool) onWorkerThread() bool {
	tid, ok := currentThreadID()
	if !ok {
		return false
	}
	for _, w := range p.workers {
		if t, ok := w.thread.(*osThread); ok && t.id == tid && t.running() {
			return true
		}
	}
	return false
}
