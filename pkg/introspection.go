package objrt

// introspection.go provides read-only views over the runtime's registries:
// class enumeration, per-class method and protocol listings, and the
// diagnostic snapshot served by embedding applications and consumed by
// cmd/objrt-inspect.
//
// © 2025 objrt authors. MIT License.

import "sort"

// AllClasses returns every registered class, sorted by name.
func AllClasses() []*Class {
	reg := getClassRegistry()
	reg.mu.RLock()
	out := make([]*Class, 0, len(reg.classes))
	for _, c := range reg.classes {
		out = append(out, c)
	}
	reg.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// ClassFromName looks a class up by name.
func ClassFromName(name string) (*Class, bool) {
	reg := getClassRegistry()
	reg.mu.RLock()
	c, ok := reg.classes[name]
	reg.mu.RUnlock()
	return c, ok
}

// ClassCount returns the number of registered classes.
func ClassCount() int {
	reg := getClassRegistry()
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.classes)
}

// InstanceMethods returns the class's own methods (inherited and category
// methods excluded), sorted by selector name.
func InstanceMethods(c *Class) []*Method {
	c.methodMu.RLock()
	out := make([]*Method, 0, len(c.methods))
	for _, m := range c.methods {
		out = append(out, m)
	}
	c.methodMu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Selector.Name() < out[j].Selector.Name()
	})
	return out
}

// AdoptedProtocols returns the protocols the class itself declared
// (ancestors excluded).
func AdoptedProtocols(c *Class) []*Protocol {
	c.protoMu.RLock()
	defer c.protoMu.RUnlock()
	out := make([]*Protocol, len(c.protocols))
	copy(out, c.protocols)
	return out
}

// Categories returns the categories attached to the class, in attachment
// order.
func Categories(c *Class) []*Category {
	c.catMu.RLock()
	defer c.catMu.RUnlock()
	out := make([]*Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// Snapshot assembles the diagnostic payload served on the debug endpoint
// of embedding applications.  The object is intentionally generic
// (map[string]any) to avoid version skew between the library and the
// inspector CLI.
func Snapshot() map[string]any {
	stats := GlobalArena().Stats()
	acquires, misses := invocationPoolStats()

	// Refresh the gauges that have no natural update point on the fast
	// path.
	st := runtimeState()
	st.metrics.setArenaBytes(int64(stats.Used))

	return map[string]any{
		"classes":               ClassCount(),
		"selectors":             selectorCount(),
		"interned_strings":      internedStringCount(),
		"forwarded_targets":     forwardedTargetCount(),
		"arena_chunks":          stats.Chunks,
		"arena_capacity_bytes":  stats.Capacity,
		"arena_used_bytes":      stats.Used,
		"invocation_pool_gets":  acquires,
		"invocation_pool_news":  misses,
	}
}
