package threadpool

import "github.com/ygrebnov/threadpool/queue"

// Executor owns the queue workers pull from and the keep-alive guard that
// keeps idle workers parked in it. The guard lives as long as the pool.
type Executor struct {
	queue     *queue.Queue[Task]
	keepAlive *queue.Work
}

func newExecutor(concurrencyHint int) *Executor {
	q := queue.New[Task](concurrencyHint)
	return &Executor{
		queue:     q,
		keepAlive: q.NewWork(),
	}
}

// Queue returns the shared queue. Post Work, Func or Shutdown tasks to it.
func (e *Executor) Queue() *queue.Queue[Task] { return e.queue }
