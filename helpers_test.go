package threadpool

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ygrebnov/threadpool/managed"
)

var errInjected = errors.New("injected spawn failure")

// recordingThread counts joins and runs an optional hook before each one.
type recordingThread struct {
	Thread
	joins  atomic.Int32
	onJoin func()
}

func (t *recordingThread) Join() {
	if t.onJoin != nil {
		t.onJoin()
	}
	t.Thread.Join()
	t.joins.Add(1)
}

// recordingSpawner spawns real OS threads, fails the indices listed in fail
// and remembers every thread it handed out.
type recordingSpawner struct {
	fail   map[int]bool
	onJoin func()

	mu      sync.Mutex
	calls   int
	threads []*recordingThread
}

func (s *recordingSpawner) Spawn(name string, entry func()) (Thread, error) {
	s.mu.Lock()
	i := s.calls
	s.calls++
	s.mu.Unlock()

	if s.fail[i] {
		return nil, errInjected
	}
	th, err := OSThreads().Spawn(name, entry)
	if err != nil {
		return nil, err
	}
	rt := &recordingThread{Thread: th, onJoin: s.onJoin}
	s.mu.Lock()
	s.threads = append(s.threads, rt)
	s.mu.Unlock()
	return rt, nil
}

func (s *recordingSpawner) spawned() []*recordingThread {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*recordingThread(nil), s.threads...)
}

// fakeRuntime counts attachments; every env is a distinct *int.
type fakeRuntime struct {
	attachErr error
	attached  atomic.Int32
	detached  atomic.Int32
}

func (r *fakeRuntime) Attach() (managed.Env, error) {
	if r.attachErr != nil {
		return nil, r.attachErr
	}
	n := int(r.attached.Add(1))
	return &n, nil
}

func (r *fakeRuntime) Detach(managed.Env) error {
	r.detached.Add(1)
	return nil
}

// waitTimeout reports whether fn returned within d.
func waitTimeout(d time.Duration, fn func()) bool {
	done := make(chan struct{})
	go func() { fn(); close(done) }()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}
