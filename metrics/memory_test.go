package metrics

import (
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryProvider_SameNameSameInstrument(t *testing.T) {
	p := NewMemoryProvider()

	c1 := p.Counter("tasks", WithDescription("tasks run"), WithUnit("1"))
	c2 := p.Counter("tasks")
	require.Same(t, c1, c2)
	require.NotSame(t, c1, p.Counter("other"))

	// counters and up/down counters live in separate namespaces
	require.NotSame(t, c1, p.UpDownCounter("tasks"))

	cfg, ok := p.Config("tasks")
	require.True(t, ok)
	require.Equal(t, "tasks run", cfg.Description)
	require.Equal(t, "1", cfg.Unit)
}

func TestMemoryProvider_Values(t *testing.T) {
	p := NewMemoryProvider()

	p.Counter("c").Add(3)
	p.Counter("c").Add(2)
	require.Equal(t, int64(5), p.CounterValue("c"))
	require.Equal(t, int64(0), p.CounterValue("missing"))

	u := p.UpDownCounter("alive")
	u.Add(4)
	u.Add(-1)
	require.Equal(t, int64(3), p.UpDownValue("alive"))

	h := p.Histogram("seconds")
	h.Record(0.1)
	h.Record(0.3)
	h.Record(0.2)
	s := p.HistogramSnapshot("seconds")
	require.Equal(t, int64(3), s.Count)
	require.Equal(t, 0.1, s.Min)
	require.Equal(t, 0.3, s.Max)
	require.InDelta(t, 0.6, s.Sum, 1e-9)
	require.InDelta(t, 0.2, s.Mean, 1e-9)

	require.Equal(t, HistSnapshot{}, p.HistogramSnapshot("missing"))
}

func TestMemoryProvider_Concurrent(t *testing.T) {
	p := NewMemoryProvider()

	workers := runtime.NumCPU() * 2
	const iters = 1000

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			for i := 0; i < iters; i++ {
				p.Counter("hits").Add(1)
				if (i+id)%2 == 0 {
					p.UpDownCounter("inflight").Add(1)
				} else {
					p.UpDownCounter("inflight").Add(-1)
				}
				p.Histogram("latency").Record(float64(i%10) / 100)
			}
		}(w)
	}
	wg.Wait()

	require.Equal(t, int64(workers*iters), p.CounterValue("hits"))
	require.Equal(t, int64(0), p.UpDownValue("inflight"))
	s := p.HistogramSnapshot("latency")
	require.Equal(t, int64(workers*iters), s.Count)
	require.Equal(t, 0.0, s.Min)
	require.Equal(t, 0.09, s.Max)
}

func TestNoopProvider(t *testing.T) {
	var p Provider = NewNoopProvider()
	require.NotPanics(t, func() {
		p.Counter("c").Add(1)
		p.UpDownCounter("u").Add(-1)
		p.Histogram("h").Record(1)
	})
}
