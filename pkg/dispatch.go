package objrt

// dispatch.go implements the message-send core: resolve the receiver's
// class, look up the IMP through the per-class cache (full walk on miss),
// validate the argument count against the method's type encoding, invoke
// the IMP over the word-array ABI and extract the return value.  A lookup
// miss hands off to the forwarding pipeline.
//
// On a cache hit a send reads the runtime configuration snapshot, takes the
// class's cache read lock, and then runs LookupMethod (method-table and
// category read locks) to fetch the type encoding for the argument-count
// check.  Metrics updates go through the sink interface, whose no-op
// implementation has empty methods.
//
// © 2025 objrt authors. MIT License.

import (
	"unsafe"

	"github.com/Voskan/objrt/internal/unsafehelpers"
)

// sendMessage is the entry point behind Object.Send.  It owns the dispatch
// context whose depth counter guards the forwarding pipeline for the whole
// call tree, re-dispatches included.
func sendMessage(obj Object, sel Selector, args MessageArgs) (Word, bool, error) {
	ctx := &dispatchContext{}
	return sendWithContext(ctx, obj, sel, args)
}

func sendWithContext(ctx *dispatchContext, obj Object, sel Selector, args MessageArgs) (Word, bool, error) {
	st := runtimeState()
	st.metrics.incSend()

	if !obj.IsValid() {
		return 0, false, &InvalidPointerError{Ptr: uintptr(obj.Raw())}
	}

	class := obj.Class()
	imp, ok := class.LookupImp(sel)
	if !ok {
		return forwardMessage(ctx, obj, sel, args)
	}

	m := class.LookupMethod(sel)
	retType, err := validateArgCount(m, args)
	if err != nil {
		return 0, false, err
	}

	ret, hasRet := invokeImp(obj, imp, sel, args, retType)
	return ret, hasRet, nil
}

// validateArgCount checks the pack against the method's signature and
// returns the declared return-type character.  Mismatch counts include the
// two synthetic self and _cmd positions, matching the signature string.
func validateArgCount(m *Method, args MessageArgs) (byte, error) {
	retType, argTypes, err := ParseSignature(m.Types.String())
	if err != nil {
		return 0, err
	}
	expected := len(argTypes) - 2
	if got := args.Count(); got != expected {
		return 0, &ArgumentCountMismatchError{
			Expected: len(argTypes),
			Got:      got + 2,
		}
	}
	return retType, nil
}

// invokeImp calls the implementation over the word-array ABI and extracts
// the return word.  The return buffer is a fixed stack slot; registration
// rejected any encoding whose return would not fit it.
func invokeImp(obj Object, imp Imp, sel Selector, args MessageArgs, retType byte) (Word, bool) {
	var argsPtr *Word
	if words := args.AsSlice(); len(words) > 0 {
		argsPtr = &words[0]
	}

	var retBuf [maxReturnSize]byte
	imp(obj.Raw(), sel.Handle(), argsPtr, unsafe.Pointer(&retBuf[0]))

	if retType == EncVoid {
		return 0, false
	}
	return unsafehelpers.LoadWord(unsafe.Pointer(&retBuf[0])), true
}

// callImp invokes an IMP discarding any return value; used by the
// forwarding pipeline's does-not-recognize hand-off.
func callImp(obj Object, imp Imp, sel Selector, args MessageArgs) {
	invokeImp(obj, imp, sel, args, EncVoid)
}
