// Package threadpool provides a fixed-size pool of OS threads that execute
// work pulled from one shared queue.
//
// Constructors
//   - New(ctx, opts...): a pool with its own queue and workers.
//   - SharedInstance(): the process-wide pool of DefaultSharedWorkers workers,
//     created on first use.
//
// Defaults
// Unless overridden, the following defaults apply to a newly created pool:
//   - Workers: runtime.GOMAXPROCS(0)
//   - SpawnPolicy: SpawnTolerant (run with fewer workers if spawns fail)
//   - Name: "pool" (threads are named "pool-0", "pool-1", ...)
//   - Logger: zap.NewNop()
//   - Metrics: metrics.NoopProvider
//
// Tasks
// Post Work or Func tasks through ThreadPool.Post or the executor queue.
// A task that returns an error or panics terminates the worker that ran it;
// the pool keeps running with one worker less. Post Shutdown() (or call
// RemoveWorker) to stop exactly one worker.
//
// Lifecycle
// Close releases the queue keep-alive, stops the queue, cancels the task
// context and joins every worker. It waits without timeout, so a task that
// never returns blocks Close. Tasks still queued when Close runs are dropped.
//
// Managed runtimes
// WithRuntime makes every worker attach to a managed.Runtime before its
// first task and detach when it exits, on every exit path. For the shared
// pool, hosts call RegisterRuntime once during startup; where a runtime is
// required (android builds, or RequireRuntime(true)) SharedInstance aborts
// the process if none was registered.
package threadpool
