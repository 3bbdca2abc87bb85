package prometheus

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Swind/go-span-runner/core"
)

func TestMetricsExporter_RecordMethods(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("spanrunner", reg, ExporterOptions{})
	require.NoError(t, err)

	exporter.RecordBackendFailure(core.OpActivate)
	exporter.RecordTaskWrapped("callable")
	exporter.RecordTaskWrapped("callable")
	exporter.RecordTaskDuration("pool-a", 250*time.Millisecond)
	exporter.RecordTaskPanic("pool-a", "panic")
	exporter.RecordQueueDepth("pool-a", 7)
	exporter.RecordTaskRejected("pool-a", "")

	assert.Equal(t, 1.0, testutil.ToFloat64(exporter.backendFailureTotal.WithLabelValues("activate")))
	assert.Equal(t, 2.0, testutil.ToFloat64(exporter.taskWrappedTotal.WithLabelValues("callable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(exporter.taskPanicTotal.WithLabelValues("pool-a")))
	assert.Equal(t, 7.0, testutil.ToFloat64(exporter.queueDepth.WithLabelValues("pool-a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(exporter.taskRejectedTotal.WithLabelValues("pool-a", "unknown")))

	histCount, err := histogramSampleCount(exporter.taskDurationSeconds.WithLabelValues("pool-a"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), histCount)
}

func TestMetricsExporter_AlreadyRegisteredReuse(t *testing.T) {
	reg := prom.NewRegistry()
	first, err := NewMetricsExporter("spanrunner", reg, ExporterOptions{})
	require.NoError(t, err)
	second, err := NewMetricsExporter("spanrunner", reg, ExporterOptions{})
	require.NoError(t, err)

	first.RecordBackendFailure(core.OpDeactivate)
	second.RecordBackendFailure(core.OpDeactivate)

	got := testutil.ToFloat64(first.backendFailureTotal.WithLabelValues("deactivate"))
	assert.Equal(t, 2.0, got, "collectors should be shared")
}

func TestMetricsExporter_NilReceiver(t *testing.T) {
	var exporter *MetricsExporter

	assert.NotPanics(t, func() {
		exporter.RecordBackendFailure(core.OpActive)
		exporter.RecordTaskWrapped("task")
		exporter.RecordTaskDuration("pool", time.Second)
		exporter.RecordTaskPanic("pool", nil)
		exporter.RecordQueueDepth("pool", 1)
		exporter.RecordTaskRejected("pool", "shut down")
	})
}

// TestMetricsExporter_CountsMaskedBackendFailures verifies the exporter wired as global metrics
// Given: The exporter installed with core.SetMetrics and a backend that always fails
// When: ActiveSpan and ClearAll are called
// Then: One failure per operation is counted
func TestMetricsExporter_CountsMaskedBackendFailures(t *testing.T) {
	// Arrange
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("spanrunner", reg, ExporterOptions{})
	require.NoError(t, err)

	prevMetrics := core.SetMetrics(exporter)
	defer core.SetMetrics(prevMetrics)
	prevLogger := core.SetLogger(core.NewNoOpLogger())
	defer core.SetLogger(prevLogger)
	prevBackend := core.SetBackend(failingBackend{})
	defer core.SetBackend(prevBackend)

	// Act
	span := core.ActiveSpan()
	cleared := core.ClearAll()

	// Assert
	assert.True(t, core.IsNoopSpan(span))
	assert.False(t, cleared)
	assert.Equal(t, 1.0, testutil.ToFloat64(exporter.backendFailureTotal.WithLabelValues(core.OpActive)))
	assert.Equal(t, 1.0, testutil.ToFloat64(exporter.backendFailureTotal.WithLabelValues(core.OpClearAll)))
}

type failingBackend struct{}

func (failingBackend) Active() (core.Span, error)                     { return nil, assert.AnError }
func (failingBackend) SetActive(core.Span) (*core.Deactivator, error) { return nil, assert.AnError }
func (failingBackend) Restore(*core.Deactivator) error                { return assert.AnError }
func (failingBackend) ClearAll() (bool, error)                        { return true, assert.AnError }

func histogramSampleCount(observer prom.Observer) (uint64, error) {
	collector, ok := observer.(prom.Collector)
	if !ok {
		return 0, nil
	}

	metricCh := make(chan prom.Metric, 1)
	collector.Collect(metricCh)
	close(metricCh)
	for metric := range metricCh {
		msg := &dto.Metric{}
		if err := metric.Write(msg); err != nil {
			return 0, err
		}
		if msg.Histogram != nil {
			return msg.Histogram.GetSampleCount(), nil
		}
	}
	return 0, nil
}
