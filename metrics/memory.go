package metrics

import (
	"sync"
	"sync/atomic"
)

// MemoryProvider keeps every instrument in memory and lets callers read
// values back by name. Safe for concurrent use.
type MemoryProvider struct {
	mu         sync.RWMutex
	counters   map[string]*MemoryCounter
	updowns    map[string]*MemoryCounter
	histograms map[string]*MemoryHistogram
	meta       map[string]InstrumentConfig
}

// NewMemoryProvider returns an empty MemoryProvider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		counters:   make(map[string]*MemoryCounter),
		updowns:    make(map[string]*MemoryCounter),
		histograms: make(map[string]*MemoryHistogram),
		meta:       make(map[string]InstrumentConfig),
	}
}

// lookupOrCreate returns m[name], creating it with newFn under the write lock.
func lookupOrCreate[T any](p *MemoryProvider, m map[string]T, name string, opts []InstrumentOption, newFn func() T) T {
	p.mu.RLock()
	v, ok := m[name]
	p.mu.RUnlock()
	if ok {
		return v
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok = m[name]; ok {
		return v
	}
	p.meta[name] = NewInstrumentConfig(opts...)
	v = newFn()
	m[name] = v
	return v
}

func (p *MemoryProvider) Counter(name string, opts ...InstrumentOption) Counter {
	return lookupOrCreate(p, p.counters, name, opts, func() *MemoryCounter { return &MemoryCounter{} })
}

func (p *MemoryProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	return lookupOrCreate(p, p.updowns, name, opts, func() *MemoryCounter { return &MemoryCounter{} })
}

func (p *MemoryProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	return lookupOrCreate(p, p.histograms, name, opts, func() *MemoryHistogram { return &MemoryHistogram{} })
}

// CounterValue returns the current value of the named counter, 0 if unknown.
func (p *MemoryProvider) CounterValue(name string) int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if c, ok := p.counters[name]; ok {
		return c.Value()
	}
	return 0
}

// UpDownValue returns the current value of the named up/down counter, 0 if unknown.
func (p *MemoryProvider) UpDownValue(name string) int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if c, ok := p.updowns[name]; ok {
		return c.Value()
	}
	return 0
}

// HistogramSnapshot returns the named histogram's state, zero if unknown.
func (p *MemoryProvider) HistogramSnapshot(name string) HistSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if h, ok := p.histograms[name]; ok {
		return h.Snapshot()
	}
	return HistSnapshot{}
}

// Config returns the metadata the named instrument was created with.
func (p *MemoryProvider) Config(name string) (InstrumentConfig, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.meta[name]
	return c, ok
}

// MemoryCounter backs both Counter and UpDownCounter.
type MemoryCounter struct {
	val atomic.Int64
}

func (c *MemoryCounter) Add(n int64)  { c.val.Add(n) }
func (c *MemoryCounter) Value() int64 { return c.val.Load() }

// MemoryHistogram tracks count, sum, min and max. It keeps no buckets.
type MemoryHistogram struct {
	mu    sync.Mutex
	count int64
	sum   float64
	min   float64
	max   float64
}

func (h *MemoryHistogram) Record(v float64) {
	h.mu.Lock()
	if h.count == 0 || v < h.min {
		h.min = v
	}
	if h.count == 0 || v > h.max {
		h.max = v
	}
	h.count++
	h.sum += v
	h.mu.Unlock()
}

// HistSnapshot is an immutable copy of a MemoryHistogram.
type HistSnapshot struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
	Mean  float64
}

func (h *MemoryHistogram) Snapshot() HistSnapshot {
	h.mu.Lock()
	s := HistSnapshot{Count: h.count, Sum: h.sum, Min: h.min, Max: h.max}
	h.mu.Unlock()
	if s.Count > 0 {
		s.Mean = s.Sum / float64(s.Count)
	}
	return s
}
