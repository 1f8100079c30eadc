package threadpool

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ygrebnov/threadpool/managed"
)

// WorkerFailure describes a worker terminated by a task failure or by a
// failed runtime attach. The pool does not replace lost workers.
type WorkerFailure struct {
	Worker int
	Thread int
	Err    error
}

type worker struct {
	id     int
	thread Thread
	// closed once the spawn outcome is known; the entry function waits on it
	started chan struct{}
	// set before started is closed; false when the spawn was rejected
	spawned bool
	logger  *zap.Logger
	// written by the worker thread before it exits, read after Join
	err error
}

type workerKey struct{}

// WorkerID returns the id of the worker running the task that owns ctx.
func WorkerID(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(workerKey{}).(int)
	return id, ok
}

// runWorker is the entry function of every worker thread.
func (p *ThreadPool) runWorker(w *worker) {
	<-w.started
	if !w.spawned {
		return
	}
	w.logger = p.logger.With(zap.Int("worker", w.id), zap.Int("thread", w.thread.ID()))

	p.alive.Add(1)
	p.inst.workersAlive.Add(1)
	defer func() {
		p.alive.Add(-1)
		p.inst.workersAlive.Add(-1)
	}()

	err := p.loop(w)
	if err == nil {
		w.logger.Debug("worker stopped")
		return
	}

	w.err = fmt.Errorf("%w: worker %d: %w", ErrWorkerFailed, w.id, err)
	w.logger.Error("worker terminated", zap.Error(err))
	if p.cfg.OnFailure != nil {
		p.cfg.OnFailure(WorkerFailure{Worker: w.id, Thread: w.thread.ID(), Err: w.err})
	}
}

// loop attaches to the managed runtime and runs tasks until the queue stops,
// a shutdown sentinel arrives or a task fails. Detach happens on every one of
// those paths, including a panicking task.
func (p *ThreadPool) loop(w *worker) error {
	guard, err := managed.Attach(p.cfg.Runtime)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAttachFailed, err)
	}
	defer func() {
		if err := guard.Release(); err != nil {
			w.logger.Warn("detach failed", zap.Error(err))
		}
	}()

	ctx := context.WithValue(p.ctx, workerKey{}, w.id)
	if env := guard.Env(); env != nil {
		ctx = managed.WithEnv(ctx, env)
	}
	w.logger.Debug("worker started")

	q := p.exec.Queue()
	for {
		t, ok := q.Next()
		if !ok {
			return nil
		}
		if t.IsShutdown() {
			w.logger.Debug("worker cancelled")
			return nil
		}
		if err := p.execute(ctx, t); err != nil {
			p.inst.taskFailures.Add(1)
			return err
		}
	}
}

// execute runs one task, turning a panic into an error.
func (p *ThreadPool) execute(ctx context.Context, t Task) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
		p.inst.tasksExecuted.Add(1)
		p.inst.taskDuration.Record(time.Since(start).Seconds())
	}()
	return t.run(ctx)
}
