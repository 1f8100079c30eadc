// Package prommetrics implements metrics.Provider with Prometheus collectors.
package prommetrics

import (
	"errors"
	"fmt"
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/ygrebnov/threadpool/metrics"
)

// Options controls collector configuration.
type Options struct {
	// Namespace prefixes every metric name. Optional.
	Namespace string
	// Registerer receives the collectors. Default: prom.DefaultRegisterer.
	Registerer prom.Registerer
	// DurationBuckets are used for every histogram. Default: prom.DefBuckets.
	DurationBuckets []float64
	// ConstLabels are attached to every collector, e.g. {"pool": "ingest"}.
	ConstLabels prom.Labels
}

// Provider creates and registers one collector per instrument name.
type Provider struct {
	opts Options

	mu         sync.Mutex
	counters   map[string]prom.Counter
	gauges     map[string]prom.Gauge
	histograms map[string]prom.Histogram
	errs       []error
}

var _ metrics.Provider = (*Provider)(nil)

// New returns a Provider that registers its collectors with opts.Registerer.
func New(opts Options) *Provider {
	if opts.Registerer == nil {
		opts.Registerer = prom.DefaultRegisterer
	}
	if len(opts.DurationBuckets) == 0 {
		opts.DurationBuckets = prom.DefBuckets
	}
	return &Provider{
		opts:       opts,
		counters:   make(map[string]prom.Counter),
		gauges:     make(map[string]prom.Gauge),
		histograms: make(map[string]prom.Histogram),
	}
}

// Err returns the registration errors seen so far. An instrument whose
// collector could not be registered still records, it is just not exported.
func (p *Provider) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.errs...)
}

func (p *Provider) Counter(name string, opts ...metrics.InstrumentOption) metrics.Counter {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.counters[name]
	if !ok {
		cfg := metrics.NewInstrumentConfig(opts...)
		c = register(p, prom.NewCounter(prom.CounterOpts{
			Namespace:   p.opts.Namespace,
			Name:        name,
			Help:        help(name, cfg),
			ConstLabels: p.labels(cfg),
		}))
		p.counters[name] = c
	}
	return counter{c}
}

func (p *Provider) UpDownCounter(name string, opts ...metrics.InstrumentOption) metrics.UpDownCounter {
	p.mu.Lock()
	defer p.mu.Unlock()
	g, ok := p.gauges[name]
	if !ok {
		cfg := metrics.NewInstrumentConfig(opts...)
		g = register(p, prom.NewGauge(prom.GaugeOpts{
			Namespace:   p.opts.Namespace,
			Name:        name,
			Help:        help(name, cfg),
			ConstLabels: p.labels(cfg),
		}))
		p.gauges[name] = g
	}
	return gauge{g}
}

func (p *Provider) Histogram(name string, opts ...metrics.InstrumentOption) metrics.Histogram {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.histograms[name]
	if !ok {
		cfg := metrics.NewInstrumentConfig(opts...)
		h = register(p, prom.NewHistogram(prom.HistogramOpts{
			Namespace:   p.opts.Namespace,
			Name:        name,
			Help:        help(name, cfg),
			Buckets:     p.opts.DurationBuckets,
			ConstLabels: p.labels(cfg),
		}))
		p.histograms[name] = h
	}
	return histogram{h}
}

// labels merges provider-wide labels with the instrument attributes.
func (p *Provider) labels(cfg metrics.InstrumentConfig) prom.Labels {
	if len(p.opts.ConstLabels) == 0 && len(cfg.Attributes) == 0 {
		return nil
	}
	l := make(prom.Labels, len(p.opts.ConstLabels)+len(cfg.Attributes))
	for k, v := range p.opts.ConstLabels {
		l[k] = v
	}
	for k, v := range cfg.Attributes {
		l[k] = v
	}
	return l
}

func help(name string, cfg metrics.InstrumentConfig) string {
	if cfg.Description != "" {
		return cfg.Description
	}
	return name
}

// register adds collector to the registerer, reusing an identical collector
// registered earlier (e.g. by another pool sharing the registry).
// Caller holds p.mu.
func register[T prom.Collector](p *Provider, collector T) T {
	err := p.opts.Registerer.Register(collector)
	if err == nil {
		return collector
	}

	var already prom.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(T); ok {
			return existing
		}
		err = fmt.Errorf("collector type mismatch for %T", collector)
	}
	p.errs = append(p.errs, err)
	return collector
}

type counter struct{ c prom.Counter }

// Add ignores negative deltas, which Prometheus counters reject.
func (c counter) Add(n int64) {
	if n > 0 {
		c.c.Add(float64(n))
	}
}

type gauge struct{ g prom.Gauge }

func (g gauge) Add(n int64) { g.g.Add(float64(n)) }

type histogram struct{ h prom.Histogram }

func (h histogram) Record(v float64) { h.h.Observe(v) }
