package threadpool

import "github.com/ygrebnov/threadpool/metrics"

// Instrument names recorded by every pool.
const (
	MetricWorkersSpawned = Namespace + "_workers_spawned_total"
	MetricSpawnFailures  = Namespace + "_spawn_failures_total"
	MetricWorkersAlive   = Namespace + "_workers_alive"
	MetricTasksExecuted  = Namespace + "_tasks_executed_total"
	MetricTaskFailures   = Namespace + "_task_failures_total"
	MetricTaskDuration   = Namespace + "_task_duration_seconds"
)

type instruments struct {
	workersSpawned metrics.Counter
	spawnFailures  metrics.Counter
	workersAlive   metrics.UpDownCounter
	tasksExecuted  metrics.Counter
	taskFailures   metrics.Counter
	taskDuration   metrics.Histogram
}

func newInstruments(p metrics.Provider) instruments {
	return instruments{
		workersSpawned: p.Counter(MetricWorkersSpawned,
			metrics.WithDescription("Worker threads spawned."), metrics.WithUnit("1")),
		spawnFailures: p.Counter(MetricSpawnFailures,
			metrics.WithDescription("Worker threads that could not be spawned."), metrics.WithUnit("1")),
		workersAlive: p.UpDownCounter(MetricWorkersAlive,
			metrics.WithDescription("Worker threads currently running their loop."), metrics.WithUnit("1")),
		tasksExecuted: p.Counter(MetricTasksExecuted,
			metrics.WithDescription("Tasks run to completion or failure."), metrics.WithUnit("1")),
		taskFailures: p.Counter(MetricTaskFailures,
			metrics.WithDescription("Tasks that failed and terminated their worker."), metrics.WithUnit("1")),
		taskDuration: p.Histogram(MetricTaskDuration,
			metrics.WithDescription("Task execution time."), metrics.WithUnit("seconds")),
	}
}
