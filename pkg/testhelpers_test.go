package objrt

// Shared test fixtures.  Class and selector names are process-unique for
// the program's lifetime, so every test registers names prefixed with its
// own scenario to stay independent.

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/Voskan/objrt/internal/unsafehelpers"
)

// noopImp ignores everything and returns nothing.
func noopImp(_ ObjectPtr, _ SelectorHandle, _ *Word, _ unsafe.Pointer) {}

// impReturning builds an IMP that writes a fixed word into the return
// slot.
func impReturning(v Word) Imp {
	return func(_ ObjectPtr, _ SelectorHandle, _ *Word, ret unsafe.Pointer) {
		unsafehelpers.StoreWord(ret, v)
	}
}

// impSummingArgs builds an IMP that sums n argument words into the return
// slot.
func impSummingArgs(n int) Imp {
	return func(_ ObjectPtr, _ SelectorHandle, args *Word, ret unsafe.Pointer) {
		var sum Word
		for i := 0; i < n; i++ {
			sum += unsafehelpers.WordAt(args, i)
		}
		unsafehelpers.StoreWord(ret, sum)
	}
}

// impResult invokes an IMP directly, outside dispatch, and returns the
// word it wrote to the return slot.  Function values are not comparable
// and closures minted by the same helper share one code pointer, so tests
// identify IMPs behaviourally: distinct test IMPs write distinct words.
func impResult(f Imp) Word {
	var buf [maxReturnSize]byte
	f(nil, 0, nil, unsafe.Pointer(&buf[0]))
	return unsafehelpers.LoadWord(unsafe.Pointer(&buf[0]))
}

func mustRootClass(t *testing.T, name string) *Class {
	t.Helper()
	c, err := NewRootClass(name)
	require.NoError(t, err)
	return c
}

func mustClass(t *testing.T, name string, super *Class) *Class {
	t.Helper()
	c, err := NewClass(name, super)
	require.NoError(t, err)
	return c
}

func mustAddMethod(t *testing.T, c *Class, sel Selector, imp Imp, types string) {
	t.Helper()
	require.NoError(t, c.AddMethod(NewMethod(sel, imp, types)))
}
