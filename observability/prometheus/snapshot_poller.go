package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-span-runner/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// PoolSnapshotProvider provides current pool stats snapshots.
type PoolSnapshotProvider interface {
	Stats() core.PoolStats
}

// SlotCounter reports how many goroutines hold an active span.
// core.GoroutineBackend implements it.
type SlotCounter interface {
	Len() int
}

// poolGauges maps each exported per-pool gauge to the Stats field it reads.
var poolGauges = []struct {
	name  string
	help  string
	value func(core.PoolStats) float64
}{
	{"pool_queued", "Queued tasks per pool.", func(s core.PoolStats) float64 { return float64(s.Queued) }},
	{"pool_active", "Active tasks per pool.", func(s core.PoolStats) float64 { return float64(s.Active) }},
	{"pool_workers", "Worker count per pool.", func(s core.PoolStats) float64 { return float64(s.Workers) }},
	{"pool_running", "Pool running state (1=running, 0=stopped).", func(s core.PoolStats) float64 { return boolGauge(s.Running) }},
	{"pool_shutdown", "Pool shutdown state (1=shut down, 0=accepting tasks).", func(s core.PoolStats) float64 { return boolGauge(s.Shutdown) }},
}

// SnapshotPoller periodically exports pool Stats() snapshots and the active
// span slot count of the backend into Prometheus gauges.
type SnapshotPoller struct {
	interval    time.Duration
	gauges      map[string]*prom.GaugeVec
	activeSlots prom.Gauge

	poolsMu sync.RWMutex
	pools   map[string]PoolSnapshotProvider

	mu   sync.Mutex
	stop context.CancelFunc
	done chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
// A zero interval polls once per second.
func NewSnapshotPoller(namespace string, reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if namespace == "" {
		namespace = "spanrunner"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	p := &SnapshotPoller{
		interval: interval,
		gauges:   make(map[string]*prom.GaugeVec, len(poolGauges)),
		pools:    make(map[string]PoolSnapshotProvider),
	}
	for _, def := range poolGauges {
		vec, err := registerCollector(reg, prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      def.name,
			Help:      def.help,
		}, []string{"pool"}))
		if err != nil {
			return nil, err
		}
		p.gauges[def.name] = vec
	}

	slots, err := registerCollector(reg, prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "active_span_goroutines",
		Help:      "Goroutines currently holding an active span.",
	}))
	if err != nil {
		return nil, err
	}
	p.activeSlots = slots
	return p, nil
}

// AddPool adds or replaces a pool snapshot provider by name.
func (p *SnapshotPoller) AddPool(name string, provider PoolSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "pool")
	p.poolsMu.Lock()
	defer p.poolsMu.Unlock()
	p.pools[name] = provider
}

// Start begins periodic polling until ctx is done or Stop is called.
// Calling Start on a running poller does nothing.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		return
	}

	pollCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	p.stop, p.done = stop, done
	go p.loop(pollCtx, done)
}

// Stop stops polling and waits for the poll goroutine to exit.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()

	if stop == nil {
		return
	}
	stop()
	<-done
}

func (p *SnapshotPoller) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.collectOnce()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.poolsMu.RLock()
	for name, provider := range p.pools {
		stats := provider.Stats()
		for _, def := range poolGauges {
			p.gauges[def.name].WithLabelValues(name).Set(def.value(stats))
		}
	}
	p.poolsMu.RUnlock()

	// Only the default backend can count its slots.
	if counter, ok := core.CurrentBackend().(SlotCounter); ok {
		p.activeSlots.Set(float64(counter.Len()))
	}
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
