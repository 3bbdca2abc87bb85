package core

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a fire-and-forget task panics on a pool worker.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a task panics.
	//
	// Parameters:
	// - ctx: The worker context the task ran with
	// - poolName: The name of the pool whose worker ran the task
	// - workerID: The ID of the worker
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, poolName string, workerID int, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler logs panics through the package logger.
type DefaultPanicHandler struct{}

// HandlePanic logs the panic at error level.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, poolName string, workerID int, panicInfo any, stackTrace []byte) {
	logger().Error("task panicked",
		F("pool", poolName),
		F("worker", workerID),
		F("panic", fmt.Sprint(panicInfo)),
		F("stack", string(stackTrace)))
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting propagation and pool metrics.
//
// Methods should be non-blocking and fast to avoid impacting task execution performance.
type Metrics interface {
	// RecordBackendFailure records a masked backend failure.
	// op is one of "active", "activate", "deactivate", "clear_all".
	RecordBackendFailure(op string)

	// RecordTaskWrapped records a task wrapped by the span-aware executor.
	// kind is "task" or "callable".
	RecordTaskWrapped(kind string)

	// RecordTaskDuration records how long a task took on a pool worker.
	RecordTaskDuration(poolName string, duration time.Duration)

	// RecordTaskPanic records that a task panicked during execution.
	RecordTaskPanic(poolName string, panicInfo any)

	// RecordQueueDepth records the current queue depth.
	RecordQueueDepth(poolName string, depth int)

	// RecordTaskRejected records that a task was rejected (e.g., during shutdown).
	RecordTaskRejected(poolName string, reason string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordBackendFailure(op string)                             {}
func (m *NilMetrics) RecordTaskWrapped(kind string)                              {}
func (m *NilMetrics) RecordTaskDuration(poolName string, duration time.Duration) {}
func (m *NilMetrics) RecordTaskPanic(poolName string, panicInfo any)             {}
func (m *NilMetrics) RecordQueueDepth(poolName string, depth int)                {}
func (m *NilMetrics) RecordTaskRejected(poolName string, reason string)          {}

type metricsHolder struct{ Metrics }

var globalMetrics atomic.Pointer[metricsHolder]

// SetMetrics installs the Metrics used by the package-level API and the
// span-aware executor and returns the previous one, or nil if none was
// installed. Passing nil restores NilMetrics.
func SetMetrics(m Metrics) Metrics {
	var prev *metricsHolder
	if m == nil {
		prev = globalMetrics.Swap(nil)
	} else {
		prev = globalMetrics.Swap(&metricsHolder{m})
	}
	if prev == nil {
		return nil
	}
	return prev.Metrics
}

func metrics() Metrics {
	if h := globalMetrics.Load(); h != nil {
		return h.Metrics
	}
	return &NilMetrics{}
}

// =============================================================================
// RejectedTaskHandler: Interface for handling rejected tasks
// =============================================================================

// RejectedTaskHandler is called when a pool refuses a task, which happens
// once the pool has been shut down.
//
// Implementations should be thread-safe as they may be called concurrently.
type RejectedTaskHandler interface {
	HandleRejectedTask(poolName string, reason string)
}

// DefaultRejectedTaskHandler logs rejected tasks at warn level.
type DefaultRejectedTaskHandler struct{}

// HandleRejectedTask logs the rejected task.
func (h *DefaultRejectedTaskHandler) HandleRejectedTask(poolName string, reason string) {
	logger().Warn("task rejected", F("pool", poolName), F("reason", reason))
}

// =============================================================================
// PoolConfig: Configuration for GoroutineThreadPool
// =============================================================================

// PoolConfig holds configuration options for a thread pool.
// All handlers are optional; if not provided, default implementations will be used.
type PoolConfig struct {
	// PanicHandler is called when a task panics. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// Metrics is called to record task execution metrics. Defaults to NilMetrics.
	Metrics Metrics

	// RejectedTaskHandler is called when a task is rejected. Defaults to DefaultRejectedTaskHandler.
	RejectedTaskHandler RejectedTaskHandler
}

// DefaultPoolConfig returns a config with default handlers.
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		PanicHandler:        &DefaultPanicHandler{},
		Metrics:             &NilMetrics{},
		RejectedTaskHandler: &DefaultRejectedTaskHandler{},
	}
}

// WithDefaults returns a copy of c with every nil handler replaced by its default.
func (c *PoolConfig) WithDefaults() PoolConfig {
	out := *DefaultPoolConfig()
	if c == nil {
		return out
	}
	if c.PanicHandler != nil {
		out.PanicHandler = c.PanicHandler
	}
	if c.Metrics != nil {
		out.Metrics = c.Metrics
	}
	if c.RejectedTaskHandler != nil {
		out.RejectedTaskHandler = c.RejectedTaskHandler
	}
	return out
}
