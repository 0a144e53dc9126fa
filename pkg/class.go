package objrt

// class.go implements the class model: the process-wide registry, single
// inheritance with cycle detection, the mutable method table, the per-class
// method cache, category and protocol attachment, the per-class forwarding
// hook and method swizzling.
//
// Locking
// -------
// Every mutable structure on a class has its own reader/writer lock:
// method table, cache, category list, protocol list, forwarding hook.  A
// LookupImp cache hit takes one cache read lock; the full walk takes
// method-table and category read locks per level of the superclass chain.
// Dispatch runs the full walk after a hit as well, to read the method's
// type encoding.
//
// Cache invalidation is the whole-cache clear strategy: adding a method,
// attaching a category and swizzling all drop every entry.  Simpler than
// per-entry invalidation and still O(1) per dispatch afterwards; the
// owning-class tag kept in each entry makes the read-side staleness check
// explicit.
//
// Method precedence is an explicit choice, not an accident: at every level
// of the superclass walk the class's own method table is consulted before
// its categories, and categories are scanned in attachment order.
//
// © 2025 objrt authors. MIT License.

import (
	"sync"
	"unsafe"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

/* -------------------------------------------------------------------------
   IMP boundary
   ------------------------------------------------------------------------- */

// ObjectPtr is the opaque object-header pointer an IMP receives as self.
// IMPs treat it as opaque unless they cooperate with instance-variable
// layout.
type ObjectPtr = unsafe.Pointer

// Imp is the function shape implementing a method.  `args` points at a
// contiguous array of N machine words, where N equals the method's
// parameter count excluding self and _cmd; each word carries exactly the
// bits the caller supplied.  `ret` is a writable buffer sized per the
// method's declared return type; it is unused for void returns.
type Imp func(self ObjectPtr, cmd SelectorHandle, args *Word, ret unsafe.Pointer)

// Method binds a selector to its implementation and type encoding.
type Method struct {
	Selector Selector
	Imp      Imp
	Types    RuntimeString
}

// NewMethod is a convenience constructor that interns the encoding string.
func NewMethod(sel Selector, imp Imp, types string) Method {
	return Method{Selector: sel, Imp: imp, Types: InternString(types)}
}

/* -------------------------------------------------------------------------
   Class
   ------------------------------------------------------------------------- */

// cacheEntry memoises a resolved IMP together with the class that owns the
// cache; a mismatched owner marks the entry stale.
type cacheEntry struct {
	owner *Class
	imp   Imp
}

// Class is a named method set with an optional superclass.  Classes are
// registered process-wide and live for the program's duration; *Class
// pointers are stable identities.
type Class struct {
	name  RuntimeString
	super *Class

	methodMu sync.RWMutex
	methods  map[uint64]*Method

	cacheMu sync.RWMutex
	cache   map[uint64]cacheEntry

	catMu      sync.RWMutex
	categories []*Category

	protoMu   sync.RWMutex
	protocols []*Protocol

	hookMu sync.RWMutex
	hook   ForwardingHook

	invMu      sync.RWMutex
	invHandler InvocationHandler
}

/*
   ---------------- Registry ----------------
*/

type classRegistry struct {
	mu      sync.RWMutex
	classes map[string]*Class
}

var (
	classRegistryOnce sync.Once
	classRegistryInst *classRegistry
)

func getClassRegistry() *classRegistry {
	classRegistryOnce.Do(func() {
		classRegistryInst = &classRegistry{classes: make(map[string]*Class)}
	})
	return classRegistryInst
}

// NewRootClass creates and registers a class with no superclass.
func NewRootClass(name string) (*Class, error) {
	return newClass(name, nil)
}

// NewClass creates and registers a class inheriting from super.
func NewClass(name string, super *Class) (*Class, error) {
	return newClass(name, super)
}

func newClass(name string, super *Class) (*Class, error) {
	// Cycle check: the new name must not appear anywhere in the
	// prospective superclass chain.
	for anc := super; anc != nil; anc = anc.super {
		if anc.name.String() == name {
			return nil, ErrInheritanceCycle
		}
	}

	c := &Class{
		name:    InternString(name),
		super:   super,
		methods: make(map[uint64]*Method),
		cache:   make(map[uint64]cacheEntry),
	}

	reg := getClassRegistry()
	reg.mu.Lock()
	defer reg.mu.Unlock()
	// Re-check uniqueness under the write lock; a racing registration may
	// have claimed the name.
	if _, dup := reg.classes[name]; dup {
		return nil, ErrClassAlreadyExists
	}
	reg.classes[name] = c

	st := runtimeState()
	st.metrics.setClasses(len(reg.classes))
	st.logger.Debug("class registered",
		zap.String("class", name),
		zap.Bool("root", super == nil),
	)
	return c, nil
}

/*
   ---------------- Identity ----------------
*/

// Name returns the class name.
func (c *Class) Name() string { return c.name.String() }

// Super returns the superclass, or nil for a root class.
func (c *Class) Super() *Class { return c.super }

// IsSubclassOf reports whether c is other or a descendant of other.  A
// class is a subclass of itself.
func (c *Class) IsSubclassOf(other *Class) bool {
	for anc := c; anc != nil; anc = anc.super {
		if anc == other {
			return true
		}
	}
	return false
}

/*
   ---------------- Method table ----------------
*/

// AddMethod installs m in the class's own method table, overwriting any
// prior entry for the same selector, and clears the method cache.  The
// encoding must be valid and its declared return must fit the dispatch
// return buffer; oversized returns are rejected here, at registration time.
func (c *Class) AddMethod(m Method) error {
	enc := m.Types.String()
	if err := ValidateEncoding(enc); err != nil {
		return err
	}
	if size, _ := SizeOfType(enc[0]); size > maxReturnSize {
		return ErrInvalidEncoding
	}

	c.methodMu.Lock()
	mm := m
	c.methods[m.Selector.Hash()] = &mm
	c.methodMu.Unlock()

	c.clearCache()
	return nil
}

// LookupMethod resolves sel with the full walk: at each class from c to the
// root, the class's own table first, then its categories in attachment
// order.  Returns nil when no level defines the selector.
func (c *Class) LookupMethod(sel Selector) *Method {
	hash := sel.Hash()
	for cls := c; cls != nil; cls = cls.super {
		cls.methodMu.RLock()
		m := cls.methods[hash]
		cls.methodMu.RUnlock()
		if m != nil {
			return m
		}

		cls.catMu.RLock()
		cats := cls.categories
		cls.catMu.RUnlock()
		for _, cat := range cats {
			if m := cat.method(hash); m != nil {
				return m
			}
		}
	}
	return nil
}

// LookupImp resolves sel through the per-class cache, falling back to the
// full walk and memoising the result.
func (c *Class) LookupImp(sel Selector) (Imp, bool) {
	hash := sel.Hash()
	st := runtimeState()

	c.cacheMu.RLock()
	ent, hit := c.cache[hash]
	c.cacheMu.RUnlock()
	if hit && ent.owner == c {
		st.metrics.incCacheHit()
		return ent.imp, true
	}

	st.metrics.incCacheMiss()
	m := c.LookupMethod(sel)
	if m == nil {
		return nil, false
	}

	c.cacheMu.Lock()
	c.cache[hash] = cacheEntry{owner: c, imp: m.Imp}
	c.cacheMu.Unlock()
	return m.Imp, true
}

// clearCache drops every memoised entry.
func (c *Class) clearCache() {
	c.cacheMu.Lock()
	clear(c.cache)
	c.cacheMu.Unlock()
}

/*
   ---------------- Swizzling ----------------
*/

// SwizzleMethod atomically replaces the IMP bound to sel in c's own method
// table (never an ancestor's: swizzling is intentionally class-local) and
// returns the prior IMP so the caller can restore it later.
//
// The replacement must honour the original signature; that contract is the
// caller's to assert and the runtime cannot verify it.
func (c *Class) SwizzleMethod(sel Selector, newImp Imp) (Imp, error) {
	hash := sel.Hash()

	c.methodMu.Lock()
	m, found := c.methods[hash]
	if !found {
		c.methodMu.Unlock()
		return nil, ErrSelectorNotFound
	}
	prior := m.Imp
	m.Imp = newImp
	c.methodMu.Unlock()

	c.clearCache()
	return prior, nil
}

/*
   ---------------- Protocols ----------------
*/

// AddProtocol declares conformance to p.  Adding a protocol already in the
// adopted list fails with ErrProtocolAlreadyAdopted.
func (c *Class) AddProtocol(p *Protocol) error {
	c.protoMu.Lock()
	defer c.protoMu.Unlock()
	for _, q := range c.protocols {
		if q == p {
			return ErrProtocolAlreadyAdopted
		}
	}
	c.protocols = append(c.protocols, p)
	return nil
}

// ConformsTo reports declared conformance: p adopted by c or an ancestor,
// directly or through a adopted protocol's base/composition chain.
func (c *Class) ConformsTo(p *Protocol) bool {
	for cls := c; cls != nil; cls = cls.super {
		cls.protoMu.RLock()
		protos := cls.protocols
		cls.protoMu.RUnlock()
		for _, q := range protos {
			if protocolIncludes(q, p) {
				return true
			}
		}
	}
	return false
}

// protocolIncludes reports whether q is p or reaches p through its base or
// adopted protocols.
func protocolIncludes(q, p *Protocol) bool {
	if q == p {
		return true
	}
	if q.base != nil && protocolIncludes(q.base, p) {
		return true
	}
	for _, adopted := range q.AdoptedProtocols() {
		if protocolIncludes(adopted, p) {
			return true
		}
	}
	return false
}

// ValidateProtocolConformance checks that every selector in p's transitive
// required set resolves on c (inherited methods and categories included).
// All misses are reported, each as a MissingProtocolMethodError combined
// into one error value.
func (c *Class) ValidateProtocolConformance(p *Protocol) error {
	var err error
	for _, req := range p.AllRequired() {
		if c.LookupMethod(req.Selector) == nil {
			err = multierr.Append(err, &MissingProtocolMethodError{Selector: req.Selector})
		}
	}
	return err
}

/*
   ---------------- Forwarding hook ----------------
*/

// SetForwardingHook installs the per-class forwarding hook consulted by the
// pipeline after per-object hooks.  Passing nil uninstalls it.
func (c *Class) SetForwardingHook(h ForwardingHook) {
	c.hookMu.Lock()
	c.hook = h
	c.hookMu.Unlock()
}

func (c *Class) forwardingHook() ForwardingHook {
	c.hookMu.RLock()
	h := c.hook
	c.hookMu.RUnlock()
	return h
}

// SetInvocationHandler installs the class's Stage-3 invocation handler,
// consulted (along the superclass chain) before the global handler when
// no target hook resolves a miss.  Passing nil uninstalls it.
func (c *Class) SetInvocationHandler(h InvocationHandler) {
	c.invMu.Lock()
	c.invHandler = h
	c.invMu.Unlock()
}

func (c *Class) invocationHandler() InvocationHandler {
	c.invMu.RLock()
	h := c.invHandler
	c.invMu.RUnlock()
	return h
}

/*
   ---------------- Category attachment (called by Category) ----------------
*/

// attachCategory appends cat under the category write lock and clears the
// method cache so the new methods become visible to dispatch.
func (c *Class) attachCategory(cat *Category) {
	c.catMu.Lock()
	c.categories = append(c.categories, cat)
	c.catMu.Unlock()

	c.clearCache()
}

// hasCategory reports whether a category with the given name is already
// attached.
func (c *Class) hasCategory(name string) bool {
	c.catMu.RLock()
	defer c.catMu.RUnlock()
	for _, cat := range c.categories {
		if cat.name.String() == name {
			return true
		}
	}
	return false
}
