package threadpool

import (
	"sync"
)

// lifecycleCoordinator encapsulates the shutdown sequence of a ThreadPool.
// It is a wiring helper: it owns nothing and only orders the steps.
//
// Close() is safe for concurrent calls; the sequence executes exactly once
// and every caller returns after it has completed.
type lifecycleCoordinator struct {
	releaseKeepAlive func()
	stopQueue        func()
	cancel           func()
	join             func()

	once sync.Once
}

func newLifecycleCoordinator(
	releaseKeepAlive func(),
	stopQueue func(),
	cancel func(),
	join func(),
) *lifecycleCoordinator {
	return &lifecycleCoordinator{
		releaseKeepAlive: releaseKeepAlive,
		stopQueue:        stopQueue,
		cancel:           cancel,
		join:             join,
	}
}

// Close executes the shutdown sequence exactly once:
// 1) release the queue keep-alive
// 2) stop the queue, waking every worker parked waiting for work
// 3) cancel the context handed to tasks
// 4) join every worker thread
//
// Joining before 2) would block forever on workers parked in the queue.
func (lc *lifecycleCoordinator) Close() {
	lc.once.Do(func() {
		if lc.releaseKeepAlive != nil {
			lc.releaseKeepAlive()
		}
		if lc.stopQueue != nil {
			lc.stopQueue()
		}
		if lc.cancel != nil {
			lc.cancel()
		}
		if lc.join != nil {
			lc.join()
		}
	})
}
