package prometheus

import (
	"context"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Swind/go-span-runner/core"
)

type poolStub struct {
	stats core.PoolStats
}

func (s poolStub) Stats() core.PoolStats { return s.stats }

func TestSnapshotPoller_CollectsPoolStats(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller("spanrunner", reg, 10*time.Millisecond)
	require.NoError(t, err)

	poller.AddPool("pool-a", poolStub{stats: core.PoolStats{
		Queued:   4,
		Active:   2,
		Workers:  8,
		Running:  true,
		Shutdown: false,
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	require.Eventually(t, func() bool {
		queued := testutil.ToFloat64(poller.gauges["pool_queued"].WithLabelValues("pool-a"))
		active := testutil.ToFloat64(poller.gauges["pool_active"].WithLabelValues("pool-a"))
		return queued == 4 && active == 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 8.0, testutil.ToFloat64(poller.gauges["pool_workers"].WithLabelValues("pool-a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(poller.gauges["pool_running"].WithLabelValues("pool-a")))
	assert.Equal(t, 0.0, testutil.ToFloat64(poller.gauges["pool_shutdown"].WithLabelValues("pool-a")))
}

// TestSnapshotPoller_CountsActiveSpanGoroutines verifies the backend slot gauge
// Given: A fresh GoroutineBackend and one goroutine holding an active span
// When: The poller collects
// Then: The gauge reports one goroutine
func TestSnapshotPoller_CountsActiveSpanGoroutines(t *testing.T) {
	// Arrange
	prev := core.SetBackend(core.NewGoroutineBackend())
	defer core.SetBackend(prev)

	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller("spanrunner", reg, time.Hour)
	require.NoError(t, err)

	_, span := sdktrace.NewTracerProvider().Tracer("poller-test").Start(context.Background(), "poll")
	defer span.End()
	d := core.Activate(span)
	defer core.Deactivate(d)

	// Act
	poller.collectOnce()

	// Assert
	assert.Equal(t, 1.0, testutil.ToFloat64(poller.activeSlots))
}

func TestSnapshotPoller_StartStop_Idempotent(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller("", reg, 20*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller.Start(ctx)
	poller.Start(ctx)
	poller.Stop()
	poller.Stop()

	// A stopped poller can be started again.
	poller.Start(ctx)
	poller.Stop()
}

func TestSnapshotPoller_SharesCollectorsAcrossInstances(t *testing.T) {
	reg := prom.NewRegistry()
	first, err := NewSnapshotPoller("spanrunner", reg, time.Hour)
	require.NoError(t, err)
	second, err := NewSnapshotPoller("spanrunner", reg, time.Hour)
	require.NoError(t, err)

	assert.Same(t, first.gauges["pool_queued"], second.gauges["pool_queued"])
}
