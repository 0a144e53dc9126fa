package objrt

// forwarding.go implements the four-stage pipeline activated when dispatch
// misses, modelled on Objective-C's resolveInstanceMethod: /
// forwardingTargetForSelector: / forwardInvocation: /
// doesNotRecognizeSelector: sequence:
//
//   1. forwarded-target cache – (class, selector) → target, consulted
//      before any hook runs;
//   2. target hooks           – per-object > per-class > global, each
//      returning an optional replacement receiver;
//   3. invocation handlers    – the message is reified as an Invocation and
//      offered to a per-class then a global handler, which may rewrite
//      target/selector/arguments and invoke or answer it;
//   4. does-not-recognize     – if the receiver's class implements
//      doesNotRecognizeSelector: it is invoked with the failing selector's
//      handle, then the send fails with ErrSelectorNotFound.
//
// Loop detection
// --------------
// A depth counter rides the dispatch context threaded through the pipeline
// (the recipe for hosts without thread-local statics).  It is incremented
// on every pipeline entry, spans re-dispatch on a forwarded target so that
// mutual-forwarding cycles accumulate depth, and is decremented on every
// exit path by a deferred guard.
//
// Hook contract: hooks must not re-enter the dispatch system on the same
// (object, selector) pair — not technically enforced beyond depth counting
// — must return quickly, and must not block on runtime locks.
//
// © 2025 objrt authors. MIT License.

import (
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ForwardingHook inspects a missed (object, selector) pair and returns a
// replacement receiver, or ok=false to decline.
type ForwardingHook func(obj Object, sel Selector) (target Object, ok bool)

// InvocationHandler receives the reified message in Stage 3.  Returning
// true claims the invocation: the pipeline replays it (unless the handler
// already called Invoke or stored a return value with SetReturnValue) and
// surfaces its return value to the original sender.
type InvocationHandler func(inv *Invocation) bool

/* -------------------------------------------------------------------------
   Diagnostic events
   ------------------------------------------------------------------------- */

// ForwardingEvent is the sum type delivered to the diagnostic callback.
type ForwardingEvent interface {
	// Kind returns the short event name used for metrics labels.
	Kind() string
}

// ForwardingAttemptEvent marks a pipeline entry.
type ForwardingAttemptEvent struct {
	Object   Object
	Selector Selector
	Depth    int
}

// ForwardingSuccessEvent marks a resolved replacement receiver.
type ForwardingSuccessEvent struct {
	Object   Object
	Selector Selector
	Target   Object
}

// DoesNotRecognizeEvent marks the terminal not-recognised path.
type DoesNotRecognizeEvent struct {
	Object   Object
	Selector Selector
}

// LoopDetectedEvent marks a tripped depth guard.
type LoopDetectedEvent struct {
	Selector Selector
	Depth    int
}

func (ForwardingAttemptEvent) Kind() string { return "attempt" }
func (ForwardingSuccessEvent) Kind() string { return "success" }
func (DoesNotRecognizeEvent) Kind() string  { return "does_not_recognize" }
func (LoopDetectedEvent) Kind() string      { return "loop_detected" }

// ForwardingEventCallback receives diagnostic events synchronously inside
// the pipeline.  It must be fast and must not re-enter dispatch.
type ForwardingEventCallback func(ForwardingEvent)

var eventCallback atomic.Pointer[ForwardingEventCallback]

// SetForwardingEventCallback installs the diagnostic callback; nil
// uninstalls it.
func SetForwardingEventCallback(cb ForwardingEventCallback) {
	if cb == nil {
		eventCallback.Store(nil)
		return
	}
	eventCallback.Store(&cb)
}

func emitForwardingEvent(ev ForwardingEvent) {
	st := runtimeState()
	st.metrics.incForwardingEvent(ev.Kind())
	if st.logger.Core().Enabled(zap.DebugLevel) {
		st.logger.Debug("forwarding event", zap.String("kind", ev.Kind()))
	}
	if cb := eventCallback.Load(); cb != nil {
		(*cb)(ev)
	}
}

/* -------------------------------------------------------------------------
   Hook storage
   ------------------------------------------------------------------------- */

var globalHook struct {
	mu sync.RWMutex
	h  ForwardingHook
}

// SetGlobalForwardingHook installs the hook consulted last, after
// per-object and per-class hooks; nil uninstalls it.
func SetGlobalForwardingHook(h ForwardingHook) {
	globalHook.mu.Lock()
	globalHook.h = h
	globalHook.mu.Unlock()
}

func globalForwardingHook() ForwardingHook {
	globalHook.mu.RLock()
	h := globalHook.h
	globalHook.mu.RUnlock()
	return h
}

var globalInvHandler struct {
	mu sync.RWMutex
	h  InvocationHandler
}

// SetGlobalInvocationHandler installs the Stage-3 handler of last resort;
// nil uninstalls it.
func SetGlobalInvocationHandler(h InvocationHandler) {
	globalInvHandler.mu.Lock()
	globalInvHandler.h = h
	globalInvHandler.mu.Unlock()
}

func globalInvocationHandler() InvocationHandler {
	globalInvHandler.mu.RLock()
	h := globalInvHandler.h
	globalInvHandler.mu.RUnlock()
	return h
}

// objectHooks maps object identity → hook.  Entries are removed inside
// Release before the header is reclaimed.
var objectHooks struct {
	mu sync.RWMutex
	m  map[*objectHeader]ForwardingHook
}

func setObjectForwardingHook(o Object, h ForwardingHook) {
	objectHooks.mu.Lock()
	defer objectHooks.mu.Unlock()
	if h == nil {
		delete(objectHooks.m, o.h)
		return
	}
	if objectHooks.m == nil {
		objectHooks.m = make(map[*objectHeader]ForwardingHook)
	}
	objectHooks.m[o.h] = h
}

func objectForwardingHook(o Object) ForwardingHook {
	objectHooks.mu.RLock()
	h := objectHooks.m[o.h]
	objectHooks.mu.RUnlock()
	return h
}

/* -------------------------------------------------------------------------
   Forwarded-target cache
   ------------------------------------------------------------------------- */

// targetKey identifies a cached resolution: every instance of a class
// forwards a given selector to the same target.
type targetKey struct {
	class *Class
	hash  uint64
}

var targetCache struct {
	mu sync.RWMutex
	m  map[targetKey]Object
}

func cachedForwardTarget(obj Object, sel Selector) (Object, bool) {
	targetCache.mu.RLock()
	t, ok := targetCache.m[targetKey{class: obj.Class(), hash: sel.Hash()}]
	targetCache.mu.RUnlock()
	return t, ok
}

func cacheForwardTarget(obj Object, sel Selector, target Object) {
	targetCache.mu.Lock()
	if targetCache.m == nil {
		targetCache.m = make(map[targetKey]Object)
	}
	targetCache.m[targetKey{class: obj.Class(), hash: sel.Hash()}] = target
	targetCache.mu.Unlock()
}

// forwardedTargetCount reports the cache size, for snapshots.
func forwardedTargetCount() int {
	targetCache.mu.RLock()
	defer targetCache.mu.RUnlock()
	return len(targetCache.m)
}

// purgeObjectForwardingState drops the per-object hook and every cached
// resolution targeting the dying object.  Called by Release on the 1 → 0
// transition, before the header is reclaimed.
func purgeObjectForwardingState(o Object) {
	objectHooks.mu.Lock()
	delete(objectHooks.m, o.h)
	objectHooks.mu.Unlock()

	targetCache.mu.Lock()
	for k, t := range targetCache.m {
		if t.h == o.h {
			delete(targetCache.m, k)
		}
	}
	targetCache.mu.Unlock()
}

/* -------------------------------------------------------------------------
   Pipeline
   ------------------------------------------------------------------------- */

// dispatchContext carries the forwarding depth through one top-level send,
// re-dispatches included.
type dispatchContext struct {
	depth int
}

// resolveGroup collapses concurrent hook resolution for the same
// (object, selector) pair into one hook invocation; every waiter shares the
// result.
var resolveGroup singleflight.Group

type resolved struct {
	target Object
	ok     bool
}

// forwardMessage runs the pipeline for a dispatch miss and produces the
// send's final outcome.  The caller holds no runtime locks.
func forwardMessage(ctx *dispatchContext, obj Object, sel Selector, args MessageArgs) (Word, bool, error) {
	st := runtimeState()

	ctx.depth++
	defer func() { ctx.depth-- }()
	if ctx.depth > st.maxDepth {
		emitForwardingEvent(LoopDetectedEvent{Selector: sel, Depth: st.maxDepth})
		return 0, false, &ForwardingLoopError{Selector: sel, Depth: st.maxDepth}
	}

	emitForwardingEvent(ForwardingAttemptEvent{Object: obj, Selector: sel, Depth: ctx.depth})

	// Stage 1: forwarded-target cache.
	if target, ok := cachedForwardTarget(obj, sel); ok {
		emitForwardingEvent(ForwardingSuccessEvent{Object: obj, Selector: sel, Target: target})
		return redispatch(ctx, target, sel, args)
	}

	// Stage 2: per-object > per-class > global hooks, deduplicated across
	// goroutines racing on the same pair.
	key := strconv.FormatUint(uint64(uintptr(obj.Raw())), 16) + ":" + strconv.FormatUint(sel.Hash(), 16)
	v, _, _ := resolveGroup.Do(key, func() (any, error) {
		target, ok := runTargetHooks(obj, sel)
		return resolved{target: target, ok: ok}, nil
	})
	if r := v.(resolved); r.ok {
		cacheForwardTarget(obj, sel, r.target)
		emitForwardingEvent(ForwardingSuccessEvent{Object: obj, Selector: sel, Target: r.target})
		return redispatch(ctx, r.target, sel, args)
	}

	// Stage 3: reify as an Invocation and offer it to handlers.
	if handler := invocationHandlerFor(obj.Class()); handler != nil {
		inv, err := NewInvocationWithArguments(obj, sel, args)
		if err != nil {
			return 0, false, err
		}
		defer inv.Close()
		if handler(inv) {
			// A handler may replay the invocation itself, store a return
			// value directly, or leave both to the pipeline.
			if !inv.flags.invoked && inv.returnValue == nil {
				if err := inv.invokeWithContext(ctx); err != nil {
					return 0, false, err
				}
			}
			return inv.returnWord()
		}
	}

	// Stage 4: does-not-recognize.
	dnrSel := SelectorFromName("doesNotRecognizeSelector:")
	if imp, ok := obj.Class().LookupImp(dnrSel); ok {
		emitForwardingEvent(DoesNotRecognizeEvent{Object: obj, Selector: sel})
		callImp(obj, imp, dnrSel, ArgsOne(Word(sel.Handle())))
	}
	return 0, false, ErrSelectorNotFound
}

// runTargetHooks consults the hooks in resolution priority order.
func runTargetHooks(obj Object, sel Selector) (Object, bool) {
	if h := objectForwardingHook(obj); h != nil {
		if target, ok := h(obj, sel); ok {
			return target, true
		}
	}
	if h := obj.Class().forwardingHook(); h != nil {
		if target, ok := h(obj, sel); ok {
			return target, true
		}
	}
	if h := globalForwardingHook(); h != nil {
		if target, ok := h(obj, sel); ok {
			return target, true
		}
	}
	return Object{}, false
}

// invocationHandlerFor picks the Stage-3 handler: the class's own (walking
// the superclass chain) before the global one.
func invocationHandlerFor(c *Class) InvocationHandler {
	for cls := c; cls != nil; cls = cls.super {
		if h := cls.invocationHandler(); h != nil {
			return h
		}
	}
	return globalInvocationHandler()
}

// redispatch re-enters the dispatch core on a forwarded target while the
// depth guard is still held, so mutual forwarding accumulates depth.  A
// target that does not recognise the selector either surfaces
// ForwardingFailedError or, deeper down, trips the loop guard.
func redispatch(ctx *dispatchContext, target Object, sel Selector, args MessageArgs) (Word, bool, error) {
	ret, hasRet, err := sendWithContext(ctx, target, sel, args)
	if err == ErrSelectorNotFound {
		return 0, false, &ForwardingFailedError{
			Selector: sel,
			Reason:   "target also does not recognise selector",
		}
	}
	return ret, hasRet, err
}
