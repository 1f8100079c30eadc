package queue

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recvNext runs q.Next in a goroutine and reports its outcome, or false on timeout.
func recvNext[T any](q *Queue[T], d time.Duration) (T, bool, bool) {
	type res struct {
		v  T
		ok bool
	}
	ch := make(chan res, 1)
	go func() {
		v, ok := q.Next()
		ch <- res{v, ok}
	}()
	select {
	case r := <-ch:
		return r.v, r.ok, true
	case <-time.After(d):
		var zero T
		return zero, false, false
	}
}

func TestQueue_FIFOAndGrowth(t *testing.T) {
	q := New[int](1)
	w := q.NewWork()
	defer w.Release()

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Post(i))
	}
	require.Equal(t, 10, q.Len())

	for i := 0; i < 10; i++ {
		v, ok := q.Next()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	require.Equal(t, 0, q.Len())
}

func TestQueue_Next(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(q *Queue[string]) (cleanup func())
		wantValue string
		wantOK    bool
		wantBlock bool
	}{
		{
			name:   "empty without guard returns immediately",
			setup:  func(*Queue[string]) func() { return func() {} },
			wantOK: false,
		},
		{
			name: "pending item is dispatched without guard",
			setup: func(q *Queue[string]) func() {
				_ = q.Post("a")
				return func() {}
			},
			wantValue: "a",
			wantOK:    true,
		},
		{
			name: "empty with guard blocks",
			setup: func(q *Queue[string]) func() {
				w := q.NewWork()
				return func() { w.Release() }
			},
			wantBlock: true,
		},
		{
			name: "stopped queue returns false even with pending items",
			setup: func(q *Queue[string]) func() {
				w := q.NewWork()
				_ = q.Post("a")
				q.Stop()
				return func() { w.Release() }
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New[string](2)
			cleanup := tt.setup(q)

			v, ok, returned := recvNext(q, 100*time.Millisecond)
			if tt.wantBlock {
				require.False(t, returned, "Next should block")
				cleanup()
				return
			}
			cleanup()
			require.True(t, returned, "Next should not block")
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.wantValue, v)
		})
	}
}

func TestQueue_ReleaseWakesIdleConsumers(t *testing.T) {
	q := New[int](4)
	w := q.NewWork()

	const consumers = 4
	var wg sync.WaitGroup
	wg.Add(consumers)
	for i := 0; i < consumers; i++ {
		go func() {
			defer wg.Done()
			_, ok := q.Next()
			require.False(t, ok)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	w.Release()
	w.Release() // idempotent

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumers were not released")
	}
}

func TestQueue_StopWakesGuardedConsumers(t *testing.T) {
	q := New[int](1)
	w := q.NewWork()
	defer w.Release()

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Next()
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	q.Stop()
	q.Stop()

	select {
	case ok := <-done:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Stop did not release the consumer")
	}
	require.True(t, q.Stopped())
	require.ErrorIs(t, q.Post(1), ErrStopped)
}

func TestQueue_ConcurrentProducersConsumers(t *testing.T) {
	const (
		producers = 8
		perProd   = 250
		consumers = 4
	)
	q := New[int](consumers)
	w := q.NewWork()

	var (
		mu  sync.Mutex
		got []int
		cwg sync.WaitGroup
	)
	cwg.Add(consumers)
	for i := 0; i < consumers; i++ {
		go func() {
			defer cwg.Done()
			for {
				v, ok := q.Next()
				if !ok {
					return
				}
				mu.Lock()
				got = append(got, v)
				mu.Unlock()
			}
		}()
	}

	var pwg sync.WaitGroup
	pwg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer pwg.Done()
			for i := 0; i < perProd; i++ {
				require.NoError(t, q.Post(p*perProd+i))
			}
		}(p)
	}
	pwg.Wait()
	// no guard left: consumers drain what remains and return
	w.Release()
	cwg.Wait()

	require.Len(t, got, producers*perProd)
	sort.Ints(got)
	for i, v := range got {
		require.Equal(t, i, v)
	}
}

func TestQueue_ConcurrencyHint(t *testing.T) {
	require.Equal(t, 1, New[int](0).ConcurrencyHint())
	require.Equal(t, 40, New[int](40).ConcurrencyHint())
}
