package threadpool

import "errors"

const Namespace = "threadpool"

var (
	ErrInvalidConfig = errors.New(Namespace + ": invalid configuration")
	ErrSpawnFailed   = errors.New(Namespace + ": worker thread could not be spawned")
	ErrWorkerFailed  = errors.New(Namespace + ": worker terminated by task failure")
	ErrTaskPanicked  = errors.New(Namespace + ": task execution panicked")
	ErrAttachFailed  = errors.New(Namespace + ": worker could not attach to the managed runtime")
	ErrClosed        = errors.New(Namespace + ": pool closed")

	ErrRuntimeNotRegistered     = errors.New(Namespace + ": managed runtime must be registered before first use")
	ErrRuntimeAlreadyRegistered = errors.New(Namespace + ": managed runtime already registered")
	ErrRuntimeRegisteredLate    = errors.New(Namespace + ": managed runtime registered after the shared pool was created")
	ErrCloseFromWorker          = errors.New(Namespace + ": Close called from one of the pool's own workers")
)
