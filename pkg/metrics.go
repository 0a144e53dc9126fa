package objrt

// metrics.go contains a thin abstraction over Prometheus so that objrt can
// be used with or without metrics.  When the user passes a
// *prometheus.Registry via Configure(WithMetrics(reg)), labeled metrics are
// created and exposed through the registry.  Otherwise a no-op sink is used
// and the dispatch fast path does not pay for metric updates.
//
// Metric names follow Prometheus best practices, suffixed with "_total" for
// counters.  The `arena_bytes` gauge holds the global arena's used bytes as
// of the last Snapshot call.
//
// ┌──────────────────────────────┬──────┬─────────┐
// │ Metric                       │ Type │ Labels  │
// ├──────────────────────────────┼──────┼─────────┤
// │ dispatch_cache_hits_total    │ Ctr  │ –       │
// │ dispatch_cache_misses_total  │ Ctr  │ –       │
// │ dispatch_sends_total         │ Ctr  │ –       │
// │ forwarding_events_total      │ Ctr  │ event   │
// │ classes_registered           │ Gge  │ –       │
// │ selectors_interned           │ Gge  │ –       │
// │ arena_bytes                  │ Gge  │ –       │
// └──────────────────────────────┴──────┴─────────┘
//
// © 2025 objrt authors. MIT License.

import (
	"github.com/prometheus/client_golang/prometheus"
)

/*
   ---------------- Sink interface ----------------
*/

// metricsSink is an internal interface abstracting away the concrete
// backend (Prometheus vs noop).  It is *not* exposed outside the package;
// dispatch and the registries only know about the generic methods here.
type metricsSink interface {
	incCacheHit()
	incCacheMiss()
	incSend()
	incForwardingEvent(kind string)
	setClasses(n int)
	setSelectors(n int)
	setArenaBytes(n int64)
}

/*
   ---------------- No-op implementation ----------------
*/

type noopMetrics struct{}

func (noopMetrics) incCacheHit()                {}
func (noopMetrics) incCacheMiss()               {}
func (noopMetrics) incSend()                    {}
func (noopMetrics) incForwardingEvent(string)   {}
func (noopMetrics) setClasses(int)              {}
func (noopMetrics) setSelectors(int)            {}
func (noopMetrics) setArenaBytes(int64)         {}

/*
   ---------------- Prometheus implementation ----------------
*/

type promMetrics struct {
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	sends       prometheus.Counter
	forwarding  *prometheus.CounterVec
	classes     prometheus.Gauge
	selectors   prometheus.Gauge
	arenaBytes  prometheus.Gauge
}

func newPromMetrics(reg *prometheus.Registry) *promMetrics {
	pm := &promMetrics{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "objrt",
			Name:      "dispatch_cache_hits_total",
			Help:      "Number of method-cache hits on the dispatch fast path.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "objrt",
			Name:      "dispatch_cache_misses_total",
			Help:      "Number of method-cache misses requiring a full walk.",
		}),
		sends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "objrt",
			Name:      "dispatch_sends_total",
			Help:      "Number of message sends entering the dispatch core.",
		}),
		forwarding: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "objrt",
			Name:      "forwarding_events_total",
			Help:      "Forwarding pipeline events by kind.",
		}, []string{"event"}),
		classes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "objrt",
			Name:      "classes_registered",
			Help:      "Number of classes in the registry.",
		}),
		selectors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "objrt",
			Name:      "selectors_interned",
			Help:      "Number of interned selectors.",
		}),
		arenaBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "objrt",
			Name:      "arena_bytes",
			Help:      "Live bytes consumed in the global arena.",
		}),
	}

	// Register collectors. If registry is nil the caller decided to
	// disable metrics; the factory never calls this with nil.
	reg.MustRegister(pm.cacheHits, pm.cacheMisses, pm.sends, pm.forwarding,
		pm.classes, pm.selectors, pm.arenaBytes)
	return pm
}

/*
   -------- promMetrics implements metricsSink --------
*/

func (m *promMetrics) incCacheHit()  { m.cacheHits.Inc() }
func (m *promMetrics) incCacheMiss() { m.cacheMisses.Inc() }
func (m *promMetrics) incSend()      { m.sends.Inc() }
func (m *promMetrics) incForwardingEvent(kind string) {
	m.forwarding.WithLabelValues(kind).Inc()
}
func (m *promMetrics) setClasses(n int)      { m.classes.Set(float64(n)) }
func (m *promMetrics) setSelectors(n int)    { m.selectors.Set(float64(n)) }
func (m *promMetrics) setArenaBytes(n int64) { m.arenaBytes.Set(float64(n)) }

/*
   ---------------- Factory ----------------
*/

// newMetricsSink decides which implementation to use.
func newMetricsSink(reg *prometheus.Registry) metricsSink {
	if reg == nil {
		return noopMetrics{}
	}
	return newPromMetrics(reg)
}
