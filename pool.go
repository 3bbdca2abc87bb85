package spanrunner

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/Swind/go-span-runner/core"
	"go.uber.org/multierr"
)

// ErrNoTasks is returned by InvokeAny for an empty task slice.
var ErrNoTasks = errors.New("no tasks to invoke")

// GoroutineThreadPool manages a set of worker goroutines
// Responsible for pulling tasks from the scheduler and executing them
type GoroutineThreadPool struct {
	id        string
	workers   int
	scheduler *core.TaskScheduler
	config    core.PoolConfig
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	running   bool
	runningMu sync.RWMutex

	terminated    chan struct{}
	terminateOnce sync.Once

	// pending holds the futures whose tasks are queued but not started.
	pendingMu sync.Mutex
	pending   map[*futureTask]struct{}
}

var _ core.ExecutorService = (*GoroutineThreadPool)(nil)

// NewGoroutineThreadPool creates a new GoroutineThreadPool
func NewGoroutineThreadPool(id string, workers int) *GoroutineThreadPool {
	return NewGoroutineThreadPoolWithConfig(id, workers, core.DefaultPoolConfig())
}

// NewGoroutineThreadPoolWithConfig creates a pool with custom handlers.
// Panics if workers is less than 1.
func NewGoroutineThreadPoolWithConfig(id string, workers int, config *core.PoolConfig) *GoroutineThreadPool {
	if workers < 1 {
		panic("GoroutineThreadPool: workers must be at least 1")
	}
	return &GoroutineThreadPool{
		id:         id,
		workers:    workers,
		scheduler:  core.NewTaskScheduler(workers),
		config:     config.WithDefaults(),
		terminated: make(chan struct{}),
		pending:    make(map[*futureTask]struct{}),
	}
}

// Start starts all worker goroutines. The pool shuts down on its own when
// ctx is done. Starting a pool that was shut down is a no-op.
func (tg *GoroutineThreadPool) Start(ctx context.Context) {
	tg.runningMu.Lock()
	defer tg.runningMu.Unlock()

	if tg.running || tg.scheduler.IsShutdown() {
		return
	}

	tg.ctx, tg.cancel = context.WithCancel(ctx)
	tg.running = true

	for i := 0; i < tg.workers; i++ {
		tg.wg.Add(1)
		go tg.workerLoop(i, tg.ctx)
	}

	go func() {
		tg.wg.Wait()
		tg.scheduler.Shutdown()
		tg.runningMu.Lock()
		tg.running = false
		tg.runningMu.Unlock()
		tg.tryTerminate()
	}()
}

// Stop discards queued tasks and waits for running ones to finish.
func (tg *GoroutineThreadPool) Stop() {
	tg.ShutdownNow()
	<-tg.terminated
}

// StopGraceful stops the thread pool gracefully, waiting for queued tasks to complete
// Returns error if timeout is exceeded before tasks complete
func (tg *GoroutineThreadPool) StopGraceful(timeout time.Duration) error {
	tg.Shutdown()
	if tg.AwaitTermination(timeout) {
		return nil
	}
	tg.Stop()
	return fmt.Errorf("shutdown graceful timeout after %v, forced clearing", timeout)
}

// ID returns the ID of the thread pool
func (tg *GoroutineThreadPool) ID() string {
	return tg.id
}

// IsRunning returns whether the worker goroutines are running
func (tg *GoroutineThreadPool) IsRunning() bool {
	tg.runningMu.RLock()
	defer tg.runningMu.RUnlock()
	return tg.running
}

// WorkerCount returns the number of workers
func (tg *GoroutineThreadPool) WorkerCount() int {
	return tg.workers
}

func (tg *GoroutineThreadPool) QueuedTaskCount() int {
	return tg.scheduler.QueuedTaskCount()
}

func (tg *GoroutineThreadPool) ActiveTaskCount() int {
	return tg.scheduler.ActiveTaskCount()
}

// Stats returns current observability data for this pool.
func (tg *GoroutineThreadPool) Stats() core.PoolStats {
	return core.PoolStats{
		ID:         tg.id,
		Workers:    tg.workers,
		Queued:     tg.QueuedTaskCount(),
		Active:     tg.ActiveTaskCount(),
		Running:    tg.IsRunning(),
		Shutdown:   tg.IsShutdown(),
		Terminated: tg.IsTerminated(),
	}
}

// workerLoop is the main loop for each worker
func (tg *GoroutineThreadPool) workerLoop(id int, ctx context.Context) {
	defer tg.wg.Done()
	stopCh := ctx.Done()

	for {
		task, ok := tg.scheduler.GetWork(stopCh)
		if !ok {
			return
		}
		tg.runTask(id, ctx, task)
	}
}

func (tg *GoroutineThreadPool) runTask(id int, ctx context.Context, task core.Task) {
	tg.scheduler.OnTaskStart()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			tg.config.Metrics.RecordTaskPanic(tg.id, r)
			tg.config.PanicHandler.HandlePanic(ctx, tg.id, id, r, debug.Stack())
		}
		tg.config.Metrics.RecordTaskDuration(tg.id, time.Since(start))
		tg.scheduler.OnTaskEnd()

		// Worker goroutines are reused: never let a span leak into the next task.
		if core.ClearAll() {
			core.GetLogger().Debug("span left active by task was cleared", core.F("pool", tg.id), core.F("worker", id))
		}
	}()

	task(ctx)
}

// =============================================================================
// ExecutorService: submission
// =============================================================================

func (tg *GoroutineThreadPool) Execute(task core.Task) {
	if task == nil {
		panic("GoroutineThreadPool: task must not be nil")
	}
	tg.post(task)
}

func (tg *GoroutineThreadPool) Submit(task core.Task) core.Future {
	return tg.SubmitWithResult(task, nil)
}

func (tg *GoroutineThreadPool) SubmitWithResult(task core.Task, result any) core.Future {
	if task == nil {
		panic("GoroutineThreadPool: task must not be nil")
	}
	return tg.SubmitCallable(func(ctx context.Context) (any, error) {
		task(ctx)
		return result, nil
	})
}

func (tg *GoroutineThreadPool) SubmitCallable(task core.Callable) core.Future {
	if task == nil {
		panic("GoroutineThreadPool: task must not be nil")
	}
	f := newFutureTask(task)
	tg.track(f)
	queued := func(ctx context.Context) {
		tg.untrack(f)
		f.run(ctx)
	}
	if !tg.post(queued) {
		tg.untrack(f)
		f.fail(core.ErrRejected)
	}
	return f
}

func (tg *GoroutineThreadPool) track(f *futureTask) {
	tg.pendingMu.Lock()
	defer tg.pendingMu.Unlock()
	tg.pending[f] = struct{}{}
}

func (tg *GoroutineThreadPool) untrack(f *futureTask) {
	tg.pendingMu.Lock()
	defer tg.pendingMu.Unlock()
	delete(tg.pending, f)
}

// cancelPending completes every future whose task never started with
// ErrCancelled.
func (tg *GoroutineThreadPool) cancelPending() {
	tg.pendingMu.Lock()
	pending := tg.pending
	tg.pending = make(map[*futureTask]struct{})
	tg.pendingMu.Unlock()

	for f := range pending {
		f.Cancel()
	}
}

func (tg *GoroutineThreadPool) post(task core.Task) bool {
	if !tg.scheduler.Post(task) {
		tg.config.RejectedTaskHandler.HandleRejectedTask(tg.id, "shut down")
		tg.config.Metrics.RecordTaskRejected(tg.id, "shut down")
		return false
	}
	tg.config.Metrics.RecordQueueDepth(tg.id, tg.scheduler.QueuedTaskCount())
	return true
}

func (tg *GoroutineThreadPool) submitAll(tasks []core.Callable) []core.Future {
	futures := make([]core.Future, len(tasks))
	for i, task := range tasks {
		futures[i] = tg.SubmitCallable(task)
	}
	return futures
}

// InvokeAll runs every task and waits until all of them are done. When ctx
// is done first, tasks that have not started are cancelled and ctx.Err()
// is returned along with the futures.
func (tg *GoroutineThreadPool) InvokeAll(ctx context.Context, tasks []core.Callable) ([]core.Future, error) {
	if tasks == nil {
		return nil, core.ErrNilTasks
	}
	futures := tg.submitAll(tasks)
	for _, f := range futures {
		select {
		case <-f.Done():
		case <-ctx.Done():
			cancelAll(futures)
			return futures, ctx.Err()
		}
	}
	return futures, nil
}

// InvokeAllTimeout is InvokeAll bounded by timeout. Reaching the timeout is
// not an error: unfinished tasks that have not started are cancelled.
func (tg *GoroutineThreadPool) InvokeAllTimeout(ctx context.Context, tasks []core.Callable, timeout time.Duration) ([]core.Future, error) {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	futures, err := tg.InvokeAll(tctx, tasks)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return futures, nil
	}
	return futures, err
}

// InvokeAny returns the result of the first task that succeeds and cancels
// the others. When every task fails the failures are returned combined.
func (tg *GoroutineThreadPool) InvokeAny(ctx context.Context, tasks []core.Callable) (any, error) {
	if tasks == nil {
		return nil, core.ErrNilTasks
	}
	if len(tasks) == 0 {
		return nil, ErrNoTasks
	}

	type outcome struct {
		value any
		err   error
	}
	outcomes := make(chan outcome, len(tasks))
	futures := tg.submitAll(tasks)
	for _, f := range futures {
		go func(f core.Future) {
			<-f.Done()
			v, err := f.Get(context.Background())
			outcomes <- outcome{value: v, err: err}
		}(f)
	}

	var errs error
	for range futures {
		select {
		case o := <-outcomes:
			if o.err == nil {
				cancelAll(futures)
				return o.value, nil
			}
			errs = multierr.Append(errs, o.err)
		case <-ctx.Done():
			cancelAll(futures)
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("all %d tasks failed: %w", len(tasks), errs)
}

// InvokeAnyTimeout is InvokeAny bounded by timeout; reaching it returns
// context.DeadlineExceeded.
func (tg *GoroutineThreadPool) InvokeAnyTimeout(ctx context.Context, tasks []core.Callable, timeout time.Duration) (any, error) {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return tg.InvokeAny(tctx, tasks)
}

func cancelAll(futures []core.Future) {
	for _, f := range futures {
		f.Cancel()
	}
}

// =============================================================================
// ExecutorService: lifecycle
// =============================================================================

// Shutdown stops accepting tasks. Queued tasks still run on a started
// pool; on a pool that never started their futures complete with
// core.ErrCancelled.
func (tg *GoroutineThreadPool) Shutdown() {
	tg.scheduler.Shutdown()
	tg.tryTerminate()
}

// ShutdownNow stops accepting tasks, cancels the worker context and returns
// the tasks that never started. Futures of those tasks are completed with
// core.ErrCancelled, so running a returned task afterwards does nothing
// for them.
func (tg *GoroutineThreadPool) ShutdownNow() []core.Task {
	drained := tg.scheduler.ShutdownNow()
	tg.cancelPending()

	tg.runningMu.RLock()
	cancel := tg.cancel
	tg.runningMu.RUnlock()
	if cancel != nil {
		cancel()
	}

	tg.tryTerminate()
	return drained
}

func (tg *GoroutineThreadPool) IsShutdown() bool {
	return tg.scheduler.IsShutdown()
}

func (tg *GoroutineThreadPool) IsTerminated() bool {
	select {
	case <-tg.terminated:
		return true
	default:
		return false
	}
}

// AwaitTermination blocks until the pool terminated after a shutdown, or
// the timeout elapsed. It reports whether the pool terminated.
func (tg *GoroutineThreadPool) AwaitTermination(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-tg.terminated:
		return true
	case <-timer.C:
		return false
	}
}

func (tg *GoroutineThreadPool) tryTerminate() {
	tg.runningMu.RLock()
	defer tg.runningMu.RUnlock()

	if tg.scheduler.IsShutdown() && !tg.running {
		tg.terminateOnce.Do(func() {
			// No worker is left to run what is still queued, e.g. when the
			// pool was never started or its start ctx was cancelled.
			tg.scheduler.ShutdownNow()
			tg.cancelPending()
			close(tg.terminated)
		})
	}
}

// =============================================================================
// Global Thread Pool Helper (Singleton)
// =============================================================================

var (
	globalThreadPool *GoroutineThreadPool
	globalMu         sync.Mutex
)

// InitGlobalThreadPool initializes the global thread pool with specified number of workers.
// It starts the pool immediately.
func InitGlobalThreadPool(workers int) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalThreadPool != nil {
		return // Already initialized
	}

	globalThreadPool = NewGoroutineThreadPool("global-pool", workers)
	globalThreadPool.Start(context.Background())
}

// GlobalThreadPool returns the global thread pool instance.
// It panics if InitGlobalThreadPool has not been called.
func GlobalThreadPool() *GoroutineThreadPool {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalThreadPool == nil {
		panic("GlobalThreadPool not initialized. Call InitGlobalThreadPool() first.")
	}
	return globalThreadPool
}

// GlobalExecutor returns the global thread pool decorated with span propagation.
// This is the recommended way to submit work that must see the caller's span.
func GlobalExecutor() core.ExecutorService {
	return core.Traced(GlobalThreadPool())
}

// ShutdownGlobalThreadPool stops the global thread pool.
func ShutdownGlobalThreadPool() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalThreadPool != nil {
		globalThreadPool.Stop()
		globalThreadPool = nil
	}
}
