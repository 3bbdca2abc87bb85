package core

import (
	"sync"
	"sync/atomic"
)

// TaskScheduler hands queued tasks to pool workers.
type TaskScheduler struct {
	queue       *TaskQueue
	signal      chan struct{}
	workerCount int

	metricQueued int32 // Waiting in queue
	metricActive int32 // Executing in Worker

	// Lifecycle: postMu orders Post against Shutdown so nothing is queued
	// after quit is closed.
	postMu       sync.RWMutex
	shuttingDown int32 // atomic flag
	quit         chan struct{}
}

func NewTaskScheduler(workerCount int) *TaskScheduler {
	return &TaskScheduler{
		queue:       NewTaskQueue(),
		signal:      make(chan struct{}, workerCount*2),
		workerCount: workerCount,
		quit:        make(chan struct{}),
	}
}

// Post queues task. It returns false when the scheduler is shutting down.
func (s *TaskScheduler) Post(task Task) bool {
	s.postMu.RLock()
	defer s.postMu.RUnlock()

	if atomic.LoadInt32(&s.shuttingDown) == 1 {
		return false
	}

	s.queue.Push(task)
	atomic.AddInt32(&s.metricQueued, 1) // Metric++

	select {
	case s.signal <- struct{}{}:
	default:
		// Signal channel full, but task is already queued
	}
	return true
}

// GetWork (Called by Worker) blocks until a task is available. It returns
// false once stopCh is closed, or once the scheduler is shut down and the
// queue has drained.
func (s *TaskScheduler) GetWork(stopCh <-chan struct{}) (Task, bool) {
	for {
		if task, ok := s.pop(); ok {
			return task, true
		}

		select {
		case <-s.signal:
			continue
		case <-s.quit:
			return s.pop()
		case <-stopCh:
			return nil, false
		}
	}
}

func (s *TaskScheduler) pop() (Task, bool) {
	task, ok := s.queue.Pop()
	if ok {
		atomic.AddInt32(&s.metricQueued, -1) // Metric-- (Left Queue)
	}
	return task, ok
}

// Shutdown stops accepting tasks. Queued tasks are still handed out.
func (s *TaskScheduler) Shutdown() {
	s.postMu.Lock()
	defer s.postMu.Unlock()

	if atomic.CompareAndSwapInt32(&s.shuttingDown, 0, 1) {
		close(s.quit)
	}
}

// ShutdownNow stops accepting tasks and returns the tasks that never started.
func (s *TaskScheduler) ShutdownNow() []Task {
	s.Shutdown()
	drained := s.queue.Drain()
	atomic.AddInt32(&s.metricQueued, -int32(len(drained)))
	return drained
}

func (s *TaskScheduler) IsShutdown() bool {
	return atomic.LoadInt32(&s.shuttingDown) == 1
}

// Metrics
func (s *TaskScheduler) WorkerCount() int     { return s.workerCount }
func (s *TaskScheduler) QueuedTaskCount() int { return int(atomic.LoadInt32(&s.metricQueued)) }
func (s *TaskScheduler) ActiveTaskCount() int { return int(atomic.LoadInt32(&s.metricActive)) }

func (s *TaskScheduler) OnTaskStart() {
	atomic.AddInt32(&s.metricActive, 1)
}

func (s *TaskScheduler) OnTaskEnd() {
	atomic.AddInt32(&s.metricActive, -1)
}
