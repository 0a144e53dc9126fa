package objrt

// config.go defines the runtime-wide configuration object and the set of
// functional options accepted by Configure.  The runtime never logs on the
// dispatch fast path; only slow events (class registration, forwarding
// diagnostics) are logged.  Metrics, when enabled, are updated on every
// send (the send counter and the method-cache hit/miss counters).
//
// Design notes
// ------------
// • All fields are initialised with sensible defaults in defaultConfig().
// • Options never allocate unless strictly necessary – they just capture
//   pointers to external objects (registry, logger …).
// • The struct is hidden from the public API: callers influence behaviour
//   only via Option, which guarantees forward compatibility.
//
// © 2025 objrt authors. MIT License.

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// DefaultMaxForwardingDepth is the forwarding pipeline's loop-guard ceiling.
const DefaultMaxForwardingDepth = 16

// Option is the functional option passed to Configure.
type Option func(*config)

// config bundles every knob that influences runtime behaviour.
type config struct {
	logger   *zap.Logger
	registry *prometheus.Registry
	maxDepth int
}

func defaultConfig() *config {
	return &config{
		logger:   zap.NewNop(),
		registry: nil, // user must opt-in to metrics
		maxDepth: DefaultMaxForwardingDepth,
	}
}

/*
   ---------------- Functional options exposed to users ----------------
*/

// WithLogger plugs an external zap.Logger.  The runtime never logs on the
// dispatch hot path; only slow events (forwarding events, class
// registration) are emitted, at Debug level.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics enables Prometheus metrics collection for the runtime.
// Passing nil disables metrics (default).
func WithMetrics(reg *prometheus.Registry) Option {
	return func(c *config) {
		c.registry = reg
	}
}

// WithMaxForwardingDepth overrides the forwarding loop-guard ceiling.
// Values < 1 are ignored.
func WithMaxForwardingDepth(depth int) Option {
	return func(c *config) {
		if depth >= 1 {
			c.maxDepth = depth
		}
	}
}

/*
   ---------------- Runtime-wide state ----------------
*/

// rtState carries the installed configuration.  It is swapped wholesale
// under rtMu so readers can grab a coherent snapshot with one load.
type rtState struct {
	logger   *zap.Logger
	metrics  metricsSink
	maxDepth int
}

var (
	rtMu      sync.RWMutex
	rtCurrent = &rtState{
		logger:   zap.NewNop(),
		metrics:  noopMetrics{},
		maxDepth: DefaultMaxForwardingDepth,
	}
)

// Configure installs runtime-wide options, reverting any option not
// supplied to its default.  It may be called at any time; a dispatch in
// flight reads the current snapshot afresh at each step (send accounting,
// cache lookup, forwarding), so it may see the new configuration part-way
// through.
func Configure(opts ...Option) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	st := &rtState{
		logger:   cfg.logger,
		metrics:  newMetricsSink(cfg.registry),
		maxDepth: cfg.maxDepth,
	}

	rtMu.Lock()
	rtCurrent = st
	rtMu.Unlock()
}

// runtimeState returns the current configuration snapshot.
func runtimeState() *rtState {
	rtMu.RLock()
	st := rtCurrent
	rtMu.RUnlock()
	return st
}
