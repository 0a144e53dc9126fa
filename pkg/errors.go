package objrt

// errors.go defines the structured error surface of the runtime.  Simple
// kinds are sentinel values usable with errors.Is; parameterised kinds are
// small structs usable with errors.As.  Refcount overflow and arena
// exhaustion are deliberately NOT here: both are programmer errors and
// panic, never surfacing as values.
//
// © 2025 objrt authors. MIT License.

import (
	"errors"
	"fmt"
)

/*
   ---------------- Sentinel kinds ----------------
*/

var (
	// ErrClassAlreadyExists reports a class name colliding with a
	// registered class.
	ErrClassAlreadyExists = errors.New("objrt: class name already exists in registry")

	// ErrInheritanceCycle reports that a proposed class's name appears in
	// its prospective superclass chain.
	ErrInheritanceCycle = errors.New("objrt: inheritance cycle detected")

	// ErrCategoryAlreadyExists reports a category name colliding for a
	// given class.
	ErrCategoryAlreadyExists = errors.New("objrt: category name already exists for class")

	// ErrProtocolAlreadyAdopted reports adding a protocol already in the
	// class's adopted list.
	ErrProtocolAlreadyAdopted = errors.New("objrt: protocol already adopted by class")

	// ErrProtocolMethodAlreadyRegistered reports a duplicate (selector,
	// kind) within one protocol.
	ErrProtocolMethodAlreadyRegistered = errors.New("objrt: selector already registered in protocol")

	// ErrSelectorNotFound reports a selector that lookup cannot resolve on
	// the receiver and its ancestors, or a swizzle target missing from the
	// class's own method table.
	ErrSelectorNotFound = errors.New("objrt: selector not found")

	// ErrInvalidEncoding reports a malformed signature string.
	ErrInvalidEncoding = errors.New("objrt: invalid type encoding")
)

/*
   ---------------- Parameterised kinds ----------------
*/

// ArgumentCountMismatchError reports a runtime arity check failure.  Counts
// include the two synthetic self and _cmd positions, matching the signature
// string.
type ArgumentCountMismatchError struct {
	Expected int
	Got      int
}

func (e *ArgumentCountMismatchError) Error() string {
	return fmt.Sprintf("objrt: argument count mismatch: expected %d, got %d", e.Expected, e.Got)
}

// MissingProtocolMethodError reports a required selector that conformance
// validation could not resolve on the class.
type MissingProtocolMethodError struct {
	Selector Selector
}

func (e *MissingProtocolMethodError) Error() string {
	return fmt.Sprintf("objrt: missing required protocol method %q", e.Selector.Name())
}

// ForwardingLoopError reports that the forwarding depth guard tripped.
type ForwardingLoopError struct {
	Selector Selector
	Depth    int
}

func (e *ForwardingLoopError) Error() string {
	return fmt.Sprintf("objrt: forwarding loop detected for %q at depth %d", e.Selector.Name(), e.Depth)
}

// ForwardingFailedError reports that a resolved forwarding target also did
// not recognise the selector.
type ForwardingFailedError struct {
	Selector Selector
	Reason   string
}

func (e *ForwardingFailedError) Error() string {
	return fmt.Sprintf("objrt: forwarding %q failed: %s", e.Selector.Name(), e.Reason)
}

// InvalidPointerError reports an internal sanity-check failure on a raw
// pointer crossing the IMP boundary.
type InvalidPointerError struct {
	Ptr uintptr
}

func (e *InvalidPointerError) Error() string {
	return fmt.Sprintf("objrt: invalid pointer %#x", e.Ptr)
}
