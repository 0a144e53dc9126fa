package objrt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Voskan/objrt/internal/unsafehelpers"
)

func TestForwardingPerObjectHook(t *testing.T) {
	a := mustRootClass(t, "FwdObjA")
	b := mustRootClass(t, "FwdObjB")
	sel := SelectorFromName("fwdObjM")
	mustAddMethod(t, b, sel, impReturning(5), "q@:")

	src := NewObject(a)
	dst := NewObject(b)
	src.SetForwardingHook(func(_ Object, s Selector) (Object, bool) {
		if s == sel {
			return dst, true
		}
		return Object{}, false
	})

	ret, hasRet, err := src.Send(sel, ArgsNone())
	require.NoError(t, err)
	require.True(t, hasRet)
	assert.EqualValues(t, 5, ret)
}

func TestForwardingHookPriority(t *testing.T) {
	a := mustRootClass(t, "FwdPrioA")
	objTarget := mustRootClass(t, "FwdPrioObjT")
	classTarget := mustRootClass(t, "FwdPrioClassT")
	globalTarget := mustRootClass(t, "FwdPrioGlobalT")
	sel := SelectorFromName("fwdPrioM")
	mustAddMethod(t, objTarget, sel, impReturning(1), "q@:")
	mustAddMethod(t, classTarget, sel, impReturning(2), "q@:")
	mustAddMethod(t, globalTarget, sel, impReturning(3), "q@:")

	to := NewObject(objTarget)
	tc := NewObject(classTarget)
	tg := NewObject(globalTarget)

	SetGlobalForwardingHook(func(Object, Selector) (Object, bool) { return tg, true })
	defer SetGlobalForwardingHook(nil)
	a.SetForwardingHook(func(Object, Selector) (Object, bool) { return tc, true })
	defer a.SetForwardingHook(nil)

	// Global alone.
	withOnlyGlobal := NewObject(mustRootClass(t, "FwdPrioOnlyGlobal"))
	ret, _, err := withOnlyGlobal.Send(sel, ArgsNone())
	require.NoError(t, err)
	assert.EqualValues(t, 3, ret)

	// Class hook beats global.
	obj := NewObject(a)
	ret, _, err = obj.Send(sel, ArgsNone())
	require.NoError(t, err)
	assert.EqualValues(t, 2, ret)

	// Per-object hook beats both — but the earlier class-level resolution
	// was cached, so a fresh class isolates the check.
	a2 := mustRootClass(t, "FwdPrioA2")
	a2.SetForwardingHook(func(Object, Selector) (Object, bool) { return tc, true })
	obj2 := NewObject(a2)
	obj2.SetForwardingHook(func(Object, Selector) (Object, bool) { return to, true })
	ret, _, err = obj2.Send(sel, ArgsNone())
	require.NoError(t, err)
	assert.EqualValues(t, 1, ret)
}

func TestForwardingTargetCache(t *testing.T) {
	a := mustRootClass(t, "FwdCacheA")
	b := mustRootClass(t, "FwdCacheB")
	sel := SelectorFromName("fwdCacheM")
	mustAddMethod(t, b, sel, impReturning(8), "q@:")

	dst := NewObject(b)
	hookCalls := 0
	a.SetForwardingHook(func(Object, Selector) (Object, bool) {
		hookCalls++
		return dst, true
	})

	obj := NewObject(a)
	for i := 0; i < 3; i++ {
		ret, _, err := obj.Send(sel, ArgsNone())
		require.NoError(t, err)
		assert.EqualValues(t, 8, ret)
	}

	// First resolution consults the hook; later sends hit the
	// forwarded-target cache.
	assert.Equal(t, 1, hookCalls)
}

func TestForwardingFailedWhenTargetMisses(t *testing.T) {
	a := mustRootClass(t, "FwdFailA")
	b := mustRootClass(t, "FwdFailB")
	sel := SelectorFromName("fwdFailM")

	dst := NewObject(b) // does not implement sel either, and forwards nowhere
	src := NewObject(a)
	src.SetForwardingHook(func(Object, Selector) (Object, bool) { return dst, true })

	_, _, err := src.Send(sel, ArgsNone())
	var failed *ForwardingFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, sel, failed.Selector)
}

func TestForwardingLoopDetection(t *testing.T) {
	a := mustRootClass(t, "FwdLoopA")
	b := mustRootClass(t, "FwdLoopB")
	sel := SelectorFromName("fwdLoopM")

	objA := NewObject(a)
	objB := NewObject(b)

	// Neither class defines the selector; each forwards to the other.
	a.SetForwardingHook(func(Object, Selector) (Object, bool) { return objB, true })
	b.SetForwardingHook(func(Object, Selector) (Object, bool) { return objA, true })

	var depths []int
	SetForwardingEventCallback(func(ev ForwardingEvent) {
		if at, ok := ev.(ForwardingAttemptEvent); ok {
			depths = append(depths, at.Depth)
		}
	})
	defer SetForwardingEventCallback(nil)

	_, _, err := objA.Send(sel, ArgsNone())
	var loop *ForwardingLoopError
	require.ErrorAs(t, err, &loop)
	assert.Equal(t, sel, loop.Selector)
	assert.Equal(t, DefaultMaxForwardingDepth, loop.Depth)

	// The depth counter climbed one per nested forward and unwound fully:
	// a fresh send starts at depth 1 again.
	require.NotEmpty(t, depths)
	assert.Equal(t, 1, depths[0])
	assert.Equal(t, DefaultMaxForwardingDepth, depths[len(depths)-1])

	depths = nil
	_, _, err = objA.Send(sel, ArgsNone())
	require.ErrorAs(t, err, &loop)
	assert.Equal(t, 1, depths[0])
}

func TestForwardingEvents(t *testing.T) {
	a := mustRootClass(t, "FwdEvA")
	b := mustRootClass(t, "FwdEvB")
	sel := SelectorFromName("fwdEvM")
	mustAddMethod(t, b, sel, impReturning(4), "q@:")

	dst := NewObject(b)
	a.SetForwardingHook(func(Object, Selector) (Object, bool) { return dst, true })

	var kinds []string
	SetForwardingEventCallback(func(ev ForwardingEvent) {
		kinds = append(kinds, ev.Kind())
	})
	defer SetForwardingEventCallback(nil)

	obj := NewObject(a)
	_, _, err := obj.Send(sel, ArgsNone())
	require.NoError(t, err)

	require.NotEmpty(t, kinds)
	assert.Equal(t, "attempt", kinds[0])
	assert.Contains(t, kinds, "success")
}

func TestForwardingDoesNotRecognize(t *testing.T) {
	a := mustRootClass(t, "FwdDnrA")
	missing := SelectorFromName("fwdDnrMissing")

	var dnrReceived Selector
	dnrSel := SelectorFromName("doesNotRecognizeSelector:")
	mustAddMethod(t, a, dnrSel, func(_ ObjectPtr, _ SelectorHandle, args *Word, _ ObjectPtr) {
		dnrReceived = SelectorFromHandle(SelectorHandle(unsafehelpers.WordAt(args, 0)))
	}, "v@::")

	var sawEvent bool
	SetForwardingEventCallback(func(ev ForwardingEvent) {
		if _, ok := ev.(DoesNotRecognizeEvent); ok {
			sawEvent = true
		}
	})
	defer SetForwardingEventCallback(nil)

	obj := NewObject(a)
	_, _, sendErr := obj.Send(missing, ArgsNone())

	// The handler ran with the failing selector, the event fired, and the
	// send still reports not-found.
	assert.ErrorIs(t, sendErr, ErrSelectorNotFound)
	assert.True(t, sawEvent)
	assert.Equal(t, missing, dnrReceived)
}

func TestForwardingInvocationHandler(t *testing.T) {
	a := mustRootClass(t, "FwdInvA")
	b := mustRootClass(t, "FwdInvB")
	sel := SelectorFromName("fwdInvM:")
	mustAddMethod(t, b, sel, impSummingArgs(1), "q@:q")

	dst := NewObject(b)
	a.SetInvocationHandler(func(inv *Invocation) bool {
		// Redirect the reified message and double its argument.
		inv.SetTarget(dst)
		w, _ := inv.GetArgument(0)
		_ = inv.SetArgument(0, w*2)
		return true
	})

	obj := NewObject(a)
	ret, hasRet, err := obj.Send(sel, ArgsOne(21))
	require.NoError(t, err)
	require.True(t, hasRet)
	assert.EqualValues(t, 42, ret)
}

func TestForwardingInvocationHandlerAnswersDirectly(t *testing.T) {
	a := mustRootClass(t, "FwdInvDirectA")
	sel := SelectorFromName("fwdInvDirectM")

	a.SetInvocationHandler(func(inv *Invocation) bool {
		// Answer without replaying: storing a return value settles the
		// message.
		inv.SetReturnValue(77)
		return true
	})

	obj := NewObject(a)
	ret, hasRet, err := obj.Send(sel, ArgsNone())
	require.NoError(t, err)
	require.True(t, hasRet)
	assert.EqualValues(t, 77, ret)
}

func TestGlobalInvocationHandler(t *testing.T) {
	a := mustRootClass(t, "FwdGlobInvA")
	sel := SelectorFromName("fwdGlobInvM")

	SetGlobalInvocationHandler(func(inv *Invocation) bool {
		inv.SetReturnValue(11)
		return true
	})
	defer SetGlobalInvocationHandler(nil)

	obj := NewObject(a)
	ret, hasRet, err := obj.Send(sel, ArgsNone())
	require.NoError(t, err)
	require.True(t, hasRet)
	assert.EqualValues(t, 11, ret)
}

func TestTransparentProxy(t *testing.T) {
	real := mustRootClass(t, "ProxyRealA")
	sel := SelectorFromName("proxyRealM")
	mustAddMethod(t, real, sel, impReturning(64), "q@:")

	target := NewObject(real)
	proxy, err := NewTransparentProxy(target)
	require.NoError(t, err)

	assert.Equal(t, target, proxy.Target())

	ret, hasRet, err := proxy.Send(sel, ArgsNone())
	require.NoError(t, err)
	require.True(t, hasRet)
	assert.EqualValues(t, 64, ret)
}

func TestSnapshotShape(t *testing.T) {
	mustRootClass(t, "SnapshotA")

	snap := Snapshot()
	for _, key := range []string{
		"classes", "selectors", "interned_strings", "forwarded_targets",
		"arena_chunks", "arena_capacity_bytes", "arena_used_bytes",
	} {
		assert.Contains(t, snap, key)
	}
	assert.GreaterOrEqual(t, snap["classes"].(int), 1)
}
