package objrt

// object.go implements heap-allocated instances: an isa pointer into class
// metadata, an atomic refcount and an opaque payload.  Objects are
// individually boxed rather than arena-resident because they have
// per-instance lifetimes.
//
// The refcount starts at 1.  Retain increments with overflow detection;
// Release decrements with acquire-release ordering and, on the 1 → 0
// transition, purges the object's forwarding state and marks the header
// dead before the host reclaims it.
//
// © 2025 objrt authors. MIT License.

import (
	"sync/atomic"
	"unsafe"
)

const flagDeallocated uint32 = 1 << 0

// objectHeader is the instance header behind every Object handle.
type objectHeader struct {
	class    *Class
	flags    atomic.Uint32
	refcount atomic.Uint32
	payload  []byte
}

// Object is a refcounted handle to an instance.  Handles compare equal iff
// they reference the same instance.  The zero Object is invalid.
type Object struct {
	h *objectHeader
}

// NewObject allocates an instance of class with refcount 1 and an empty
// payload.
func NewObject(class *Class) Object {
	h := &objectHeader{class: class}
	h.refcount.Store(1)
	return Object{h: h}
}

// Class returns the object's class.
func (o Object) Class() *Class {
	return o.h.class
}

// RefCount returns the current reference count.
func (o Object) RefCount() uint32 {
	return o.h.refcount.Load()
}

// IsValid reports whether the handle references a live instance.
func (o Object) IsValid() bool {
	return o.h != nil && o.h.flags.Load()&flagDeallocated == 0
}

// Payload exposes the instance's opaque storage.
func (o Object) Payload() []byte {
	return o.h.payload
}

// Raw returns the opaque header pointer passed to IMPs as self.
func (o Object) Raw() ObjectPtr {
	return unsafe.Pointer(o.h)
}

// ObjectFromPtr recovers an Object handle from the opaque self pointer an
// IMP received.
//
// The call is unsafe in the memory-model sense: p must be a pointer
// previously produced by Object.Raw for a still-live instance.
func ObjectFromPtr(p ObjectPtr) Object {
	return Object{h: (*objectHeader)(p)}
}

/*
   ---------------- Lifecycle ----------------
*/

// Retain increments the reference count and returns the same handle.
// Overflow is a programmer error and panics.
func (o Object) Retain() Object {
	old := o.h.refcount.Add(1) - 1
	if old == ^uint32(0) {
		panic("objrt: reference count overflow in Object.Retain")
	}
	return o
}

// Release decrements the reference count.  The transition 1 → 0 marks the
// header dead and removes the object's per-object forwarding hook and any
// forwarded-target cache entries it anchors; cleanup happens before the
// host reclaims the header.  Releasing a dead object panics.
func (o Object) Release() {
	old := o.h.refcount.Add(^uint32(0)) + 1
	switch old {
	case 0:
		panic("objrt: over-release of Object")
	case 1:
		purgeObjectForwardingState(o)
		o.h.flags.Or(flagDeallocated)
	}
}

/*
   ---------------- Behaviour ----------------
*/

// Send dispatches sel on the object.  The returned word is the raw return
// bits; hasReturn is false for void methods.
func (o Object) Send(sel Selector, args MessageArgs) (ret Word, hasReturn bool, err error) {
	return sendMessage(o, sel, args)
}

// RespondsTo reports whether the object's class resolves sel, inherited
// methods and categories included.  Implemented directly on the same walk
// as LookupMethod so the two can never disagree.
func (o Object) RespondsTo(sel Selector) bool {
	return o.h.class.LookupMethod(sel) != nil
}

// SetForwardingHook installs a hook consulted first — before the class and
// global hooks — when dispatch misses on this object.  Passing nil
// uninstalls it.
func (o Object) SetForwardingHook(h ForwardingHook) {
	setObjectForwardingHook(o, h)
}
