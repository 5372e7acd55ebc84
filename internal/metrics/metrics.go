package metrics

import "github.com/rcrowley/go-metrics"

// Registry bundles the named counters and timers the engine and AOL update
// during normal operation. One Registry is constructed at startup and
// threaded through both components.
type Registry struct {
	metrics.Registry

	SetOps    metrics.Counter
	GetOps    metrics.Counter
	RemoveOps metrics.Counter
	SetErrors metrics.Counter

	AOLDropped metrics.Counter
	AOLFlush   metrics.Timer
}

// New constructs a fresh registry with every metric pre-registered.
func New() *Registry {
	r := metrics.NewRegistry()
	return &Registry{
		Registry:   r,
		SetOps:     metrics.GetOrRegisterCounter("engine.set.ops", r),
		GetOps:     metrics.GetOrRegisterCounter("engine.get.ops", r),
		RemoveOps:  metrics.GetOrRegisterCounter("engine.remove.ops", r),
		SetErrors:  metrics.GetOrRegisterCounter("engine.set.errors", r),
		AOLDropped: metrics.GetOrRegisterCounter("aol.ops.dropped", r),
		AOLFlush:   metrics.GetOrRegisterTimer("aol.flush.latency", r),
	}
}

// Snapshot is a point-in-time render of the registry's counters, used by the
// info command's aol filter.
type Snapshot struct {
	SetOps        int64
	GetOps        int64
	RemoveOps     int64
	SetErrors     int64
	AOLDropped    int64
	AOLFlushCount int64
	AOLFlushMeanMs float64
}

func (r *Registry) Snapshot() Snapshot {
	return Snapshot{
		SetOps:         r.SetOps.Count(),
		GetOps:         r.GetOps.Count(),
		RemoveOps:      r.RemoveOps.Count(),
		SetErrors:      r.SetErrors.Count(),
		AOLDropped:     r.AOLDropped.Count(),
		AOLFlushCount:  r.AOLFlush.Count(),
		AOLFlushMeanMs: r.AOLFlush.Mean() / 1e6,
	}
}
