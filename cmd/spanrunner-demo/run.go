package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	spanrunner "github.com/Swind/go-span-runner"
	"github.com/Swind/go-span-runner/core"
	obs "github.com/Swind/go-span-runner/observability/prometheus"
	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

var checkoutSteps = []string{"reserve", "charge", "ship"}

func newRunCmd() *cobra.Command {
	var (
		orders      int
		workers     int
		logLevel    string
		metricsAddr string
		linger      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fan checkout steps of traced orders out to a worker pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			if orders < 1 || workers < 1 {
				return errors.New("--orders and --workers must be at least 1")
			}
			if logLevel != "" {
				l := core.NewDefaultLogger(logLevel)
				defer func() { _ = l.Sync() }()
				core.SetLogger(l)
			}

			config := core.DefaultPoolConfig()
			if metricsAddr != "" {
				stop, err := serveMetrics(cmd.Context(), metricsAddr, config)
				if err != nil {
					return err
				}
				defer stop()
			}

			pool := spanrunner.NewGoroutineThreadPoolWithConfig("checkout", workers, config)
			pool.Start(cmd.Context())
			defer pool.Stop()
			if metricsAddr != "" {
				defer startPoller(cmd.Context(), pool)()
			}

			tp := sdktrace.NewTracerProvider()
			defer func() { _ = tp.Shutdown(context.Background()) }()

			executor := spanrunner.Traced(pool)
			tracer := tp.Tracer("spanrunner-demo")
			for i := 0; i < orders; i++ {
				if err := checkout(cmd, executor, tracer, "order-"+uuid.NewString()); err != nil {
					return err
				}
			}

			stats := pool.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "pool %s: workers=%d queued=%d active=%d backend=%v\n",
				stats.ID, stats.Workers, stats.Queued, stats.Active, core.CurrentBackend())

			if metricsAddr != "" && linger > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "metrics at http://%s/metrics for %v\n", metricsAddr, linger)
				time.Sleep(linger)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&orders, "orders", 3, "Number of traced orders")
	cmd.Flags().IntVar(&workers, "workers", 2, "Pool worker goroutines")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Logger level (debug, info, warn, error)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().DurationVar(&linger, "linger", 0, "Keep the metrics endpoint up this long after the run")
	return cmd
}

// checkout runs every step of one order on the pool under the order's span.
func checkout(cmd *cobra.Command, executor spanrunner.ExecutorService, tracer trace.Tracer, orderID string) error {
	_, span := tracer.Start(cmd.Context(), orderID)
	defer span.End()

	d := spanrunner.Activate(span)
	defer spanrunner.Deactivate(d)

	tasks := make([]spanrunner.Callable, len(checkoutSteps))
	for i, step := range checkoutSteps {
		tasks[i] = func(ctx context.Context) (any, error) {
			if trace.SpanFromContext(ctx) != spanrunner.ActiveSpan() {
				return nil, fmt.Errorf("%s: context span differs from active span", step)
			}
			return fmt.Sprintf("%s saw %s", step, observedName(spanrunner.ActiveSpan())), nil
		}
	}

	futures, err := executor.InvokeAll(cmd.Context(), tasks)
	if err != nil {
		return err
	}
	for _, f := range futures {
		line, err := f.Get(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", orderID, line)
	}
	return nil
}

func observedName(span spanrunner.Span) string {
	if ro, ok := span.(sdktrace.ReadOnlySpan); ok {
		return ro.Name()
	}
	return "<none>"
}

var metricsRegistry = prom.NewRegistry()

func serveMetrics(ctx context.Context, addr string, config *core.PoolConfig) (stop func(), err error) {
	exporter, err := obs.NewMetricsExporter("", metricsRegistry, obs.ExporterOptions{})
	if err != nil {
		return nil, err
	}
	config.Metrics = exporter
	core.SetMetrics(exporter)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			core.GetLogger().Error("metrics server failed", core.F("addr", addr), core.F("error", err))
		}
	}()

	return func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = server.Shutdown(sctx)
	}, nil
}

func startPoller(ctx context.Context, pool *spanrunner.GoroutineThreadPool) (stop func()) {
	poller, err := obs.NewSnapshotPoller("", metricsRegistry, time.Second)
	if err != nil {
		core.GetLogger().Warn("snapshot poller disabled", core.F("error", err))
		return func() {}
	}
	poller.AddPool(pool.ID(), pool)
	poller.Start(ctx)
	return poller.Stop
}
