package objrt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvocationConstruction(t *testing.T) {
	a := mustRootClass(t, "InvBuildA")
	sel := SelectorFromName("invBuildM:")
	mustAddMethod(t, a, sel, noopImp, "v@:q")
	obj := NewObject(a)

	inv, err := NewInvocationWithArguments(obj, sel, ArgsOne(11))
	require.NoError(t, err)
	defer inv.Close()

	assert.Equal(t, obj, inv.Target())
	assert.Equal(t, sel, inv.Sel())
	assert.Equal(t, 1, inv.ArgumentCount())

	sig, ok := inv.Signature()
	require.True(t, ok)
	assert.Equal(t, "v@:q", sig)

	w, err := inv.GetArgument(0)
	require.NoError(t, err)
	assert.EqualValues(t, 11, w)

	assert.False(t, inv.WasInvoked())
	assert.False(t, inv.TargetModified())
	assert.False(t, inv.SelectorModified())
	assert.False(t, inv.ArgumentsModified())
}

func TestInvocationArgumentCap(t *testing.T) {
	a := mustRootClass(t, "InvCapA")
	sel := SelectorFromName("invCapM")
	obj := NewObject(a)

	words := make([]Word, MaxInvocationArgs+1)
	_, err := NewInvocationWithArguments(obj, sel, ArgsMany(words))
	var mismatch *ArgumentCountMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, MaxInvocationArgs, mismatch.Expected)

	// Exactly at the cap is fine.
	inv, err := NewInvocationWithArguments(obj, sel, ArgsMany(words[:MaxInvocationArgs]))
	require.NoError(t, err)
	inv.Close()
}

func TestInvocationMutators(t *testing.T) {
	a := mustRootClass(t, "InvMutA")
	b := mustRootClass(t, "InvMutB")
	sel1 := SelectorFromName("invMutM1:")
	sel2 := SelectorFromName("invMutM2:")
	o1 := NewObject(a)
	o2 := NewObject(b)

	inv, err := NewInvocationWithArguments(o1, sel1, ArgsOne(1))
	require.NoError(t, err)
	defer inv.Close()

	inv.SetTarget(o2)
	assert.Equal(t, o2, inv.Target())
	assert.True(t, inv.TargetModified())

	inv.SetSelector(sel2)
	assert.Equal(t, sel2, inv.Sel())
	assert.True(t, inv.SelectorModified())

	require.NoError(t, inv.SetArgument(0, 99))
	assert.True(t, inv.ArgumentsModified())
	w, err := inv.GetArgument(0)
	require.NoError(t, err)
	assert.EqualValues(t, 99, w)

	// Out-of-bounds indices are rejected on both paths.
	require.Error(t, inv.SetArgument(1, 0))
	_, err = inv.GetArgument(5)
	require.Error(t, err)
}

func TestInvocationReturnValue(t *testing.T) {
	a := mustRootClass(t, "InvRetA")
	sel := SelectorFromName("invRetM")
	obj := NewObject(a)

	inv, err := NewInvocation(obj, sel)
	require.NoError(t, err)
	defer inv.Close()

	_, ok := inv.GetReturnValue()
	assert.False(t, ok)

	inv.SetReturnValue(1234)
	w, ok := inv.GetReturnValue()
	require.True(t, ok)
	assert.EqualValues(t, 1234, w)
}

func TestInvocationInvoke(t *testing.T) {
	a := mustRootClass(t, "InvInvokeA")
	sel := SelectorFromName("invInvokeM:and:")
	mustAddMethod(t, a, sel, impSummingArgs(2), "q@:qq")
	obj := NewObject(a)

	inv, err := NewInvocationWithArguments(obj, sel, ArgsTwo(40, 2))
	require.NoError(t, err)
	defer inv.Close()

	require.NoError(t, inv.Invoke())
	assert.True(t, inv.WasInvoked())

	w, ok := inv.GetReturnValue()
	require.True(t, ok)
	assert.EqualValues(t, 42, w)
}

func TestInvocationInvokeAfterRewrite(t *testing.T) {
	// Rewriting target, selector and arguments replays the message
	// elsewhere with the new contents.
	a := mustRootClass(t, "InvRewriteA")
	b := mustRootClass(t, "InvRewriteB")
	origSel := SelectorFromName("invRewriteOrig:")
	newSel := SelectorFromName("invRewriteNew:")
	mustAddMethod(t, a, origSel, impReturning(1), "q@:q")
	mustAddMethod(t, b, newSel, impSummingArgs(1), "q@:q")

	inv, err := NewInvocationWithArguments(NewObject(a), origSel, ArgsOne(5))
	require.NoError(t, err)
	defer inv.Close()

	inv.SetTarget(NewObject(b))
	inv.SetSelector(newSel)
	require.NoError(t, inv.SetArgument(0, 77))

	require.NoError(t, inv.Invoke())
	w, ok := inv.GetReturnValue()
	require.True(t, ok)
	assert.EqualValues(t, 77, w)
}

func TestInvocationPoolRecycles(t *testing.T) {
	a := mustRootClass(t, "InvPoolA")
	sel := SelectorFromName("invPoolM")
	obj := NewObject(a)

	inv, err := NewInvocation(obj, sel)
	require.NoError(t, err)
	inv.Close()

	// A recycled shell starts from a clean slate.
	inv2, err := NewInvocationWithArguments(obj, sel, ArgsOne(3))
	require.NoError(t, err)
	defer inv2.Close()
	assert.Equal(t, 1, inv2.ArgumentCount())
	assert.False(t, inv2.WasInvoked())
	_, ok := inv2.GetReturnValue()
	assert.False(t, ok)
}
