package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ygrebnov/threadpool"
	"github.com/ygrebnov/threadpool/internal/config"
	"github.com/ygrebnov/threadpool/managed/gojavm"
	"github.com/ygrebnov/threadpool/metrics/prommetrics"
)

var errAllWorkersLost = errors.New("poolrun: every worker terminated before the job finished")

// summary is what runJob reports once the pool is closed.
type summary struct {
	requested int
	workers   int
	posted    int64
	succeeded int64
	failed    int64
	lost      int64
	elapsed   time.Duration
}

func (s summary) print(w io.Writer) {
	fmt.Fprintf(w, "workers:   %d/%d\n", s.workers, s.requested)
	fmt.Fprintf(w, "posted:    %d\n", s.posted)
	fmt.Fprintf(w, "succeeded: %d\n", s.succeeded)
	fmt.Fprintf(w, "failed:    %d\n", s.failed)
	fmt.Fprintf(w, "workers lost: %d\n", s.lost)
	fmt.Fprintf(w, "elapsed:   %s\n", s.elapsed.Round(time.Millisecond))
}

func runJob(outW io.Writer, logger *zap.Logger, o *options) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	provider := prommetrics.New(prommetrics.Options{Registerer: reg})

	var lost atomic.Int64
	opts := append(cfg.Options(),
		threadpool.WithLogger(logger),
		threadpool.WithMetrics(provider),
		threadpool.WithFailureHandler(func(threadpool.WorkerFailure) { lost.Add(1) }),
	)

	var script string
	if cfg.Runtime != nil {
		var rtOpts []gojavm.Option
		if cfg.Runtime.Bootstrap != nil {
			rtOpts = append(rtOpts, gojavm.WithBootstrap(*cfg.Runtime.Bootstrap))
		}
		opts = append(opts, threadpool.WithRuntime(gojavm.New(rtOpts...)))
		if cfg.Job.Script != nil {
			script = *cfg.Job.Script
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	start := time.Now()
	pool, err := threadpool.New(ctx, opts...)
	if err != nil {
		return err
	}
	if err := provider.Err(); err != nil {
		logger.Warn("metrics registration", zap.Error(err))
	}

	stopServer := serveMetrics(o.metricsAddr, reg, logger)
	defer stopServer()

	s := summary{requested: pool.Requested(), workers: pool.Size()}

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
		failed    atomic.Int64
		posted    atomic.Int64
	)
	task := func(ctx context.Context) error {
		defer wg.Done()
		if script == "" {
			succeeded.Add(1)
			return nil
		}
		if _, err := gojavm.Eval(ctx, script); err != nil {
			failed.Add(1)
			return err
		}
		succeeded.Add(1)
		return nil
	}

	wg.Add(cfg.Job.Tasks)
	g := new(errgroup.Group)
	for p := 0; p < o.producers; p++ {
		g.Go(func() error {
			for i := p; i < cfg.Job.Tasks; i += o.producers {
				if err := pool.Post(task); err != nil {
					return err
				}
				posted.Add(1)
			}
			return nil
		})
	}
	postErr := g.Wait()
	if postErr != nil {
		logger.Error("posting tasks", zap.Error(postErr))
	}

	waitErr := waitDone(&wg, pool)
	closeErr := pool.Close()

	s.posted = posted.Load()
	s.succeeded = succeeded.Load()
	s.failed = failed.Load()
	s.lost = lost.Load()
	s.elapsed = time.Since(start)
	s.print(outW)

	if closeErr != nil {
		logger.Warn("pool closed with worker failures", zap.Error(closeErr))
	}
	return errors.Join(postErr, waitErr)
}

// waitDone waits for every posted task or until no worker is left to run
// the remaining ones.
func waitDone(wg *sync.WaitGroup, pool *threadpool.ThreadPool) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return nil
		case <-ticker.C:
			if pool.Alive() == 0 {
				select {
				case <-done:
					return nil
				default:
					return errAllWorkersLost
				}
			}
		}
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) func() {
	if addr == "" {
		return func() {}
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
