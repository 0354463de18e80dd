package metric

import (
	"sync"

	"go.uber.org/atomic"
)

// Repository accumulates metrics of a task. It is safe for concurrent use.
type Repository interface {
	AddMetric(name string, delta int64)
	SetMetric(name string, val int64)
	Collect() Metrics
}

type repository struct {
	mu       sync.RWMutex
	counters map[string]*atomic.Int64
}

func NewRepository() Repository {
	return &repository{counters: make(map[string]*atomic.Int64)}
}

func (r *repository) counter(name string) *atomic.Int64 {
	r.mu.RLock()
	c, ok := r.counters[name]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[name]; ok {
		return c
	}
	c = atomic.NewInt64(0)
	r.counters[name] = c
	return c
}

func (r *repository) AddMetric(name string, delta int64) {
	r.counter(name).Add(delta)
}

func (r *repository) SetMetric(name string, val int64) {
	r.counter(name).Store(val)
}

// Collect returns a snapshot of the metrics. Negative values are reported as zero.
func (r *repository) Collect() Metrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metrics := make(Metrics, len(r.counters))
	for name, c := range r.counters {
		if v := c.Load(); v > 0 {
			metrics[name] = uint64(v)
		} else {
			metrics[name] = 0
		}
	}
	return metrics
}
