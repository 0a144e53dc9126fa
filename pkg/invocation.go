package objrt

// invocation.go implements reified message sends for the forwarding
// pipeline's Stage 3.  An Invocation captures target, selector and boxed
// argument words; handlers may rewrite any of them (each rewrite is
// tracked by a flag) and replay the message through Invoke.
//
// Arguments are word-sized heap cells so a handler can write through them
// without disturbing the sender's pack.  An Invocation may move between
// goroutines but must not be used from two at once.
//
// © 2025 objrt authors. MIT License.

import (
	"unsafe"

	"github.com/Voskan/objrt/internal/unsafehelpers"
)

// MaxInvocationArgs caps the explicit arguments an Invocation can carry
// (self and _cmd are implicit).
const MaxInvocationArgs = 16

// invocationFlags tracks what happened to the invocation since
// construction.
type invocationFlags struct {
	invoked           bool
	targetModified    bool
	selectorModified  bool
	argumentsModified bool
}

// Invocation is a reified message send with rewritable target, selector,
// arguments and return value.
type Invocation struct {
	target   Object
	selector Selector
	args     []*Word

	signature    RuntimeString
	hasSignature bool

	returnValue *Word
	returnSize  uintptr

	flags invocationFlags
}

// NewInvocation reifies a message with no explicit arguments.
func NewInvocation(target Object, sel Selector) (*Invocation, error) {
	return NewInvocationWithArguments(target, sel, ArgsNone())
}

// NewInvocationWithArguments reifies a message, boxing every argument word
// into its own cell.  Packs above MaxInvocationArgs are rejected.
func NewInvocationWithArguments(target Object, sel Selector, args MessageArgs) (*Invocation, error) {
	n := args.Count()
	if n > MaxInvocationArgs {
		return nil, &ArgumentCountMismatchError{Expected: MaxInvocationArgs, Got: n}
	}

	inv := acquireInvocation()
	inv.target = target
	inv.selector = sel
	for _, w := range args.AsSlice() {
		cell := new(Word)
		*cell = w
		inv.args = append(inv.args, cell)
	}

	// Capture the signature when the target already resolves the
	// selector; a handler rewriting the target may change it later.
	if m := target.Class().LookupMethod(sel); m != nil {
		inv.signature = m.Types
		inv.hasSignature = true
		if size, ok := SizeOfType(m.Types.String()[0]); ok {
			inv.returnSize = size
		}
	}
	return inv, nil
}

/*
   ---------------- Accessors ----------------
*/

// Target returns the receiver the invocation will be replayed on.
func (inv *Invocation) Target() Object { return inv.target }

// Sel returns the invocation's selector.
func (inv *Invocation) Sel() Selector { return inv.selector }

// ArgumentCount returns the number of explicit arguments.
func (inv *Invocation) ArgumentCount() int { return len(inv.args) }

// Signature returns the captured type encoding, if the target resolved the
// selector at reification time.
func (inv *Invocation) Signature() (string, bool) {
	if !inv.hasSignature {
		return "", false
	}
	return inv.signature.String(), true
}

// GetArgument reads the word in cell i.
func (inv *Invocation) GetArgument(i int) (Word, error) {
	if i < 0 || i >= len(inv.args) {
		return 0, &ArgumentCountMismatchError{Expected: len(inv.args), Got: i}
	}
	return unsafehelpers.LoadWord(unsafe.Pointer(inv.args[i])), nil
}

// GetReturnValue reads the return word captured by Invoke or stored by
// SetReturnValue; ok is false while neither has happened.
func (inv *Invocation) GetReturnValue() (Word, bool) {
	if inv.returnValue == nil {
		return 0, false
	}
	return unsafehelpers.LoadWord(unsafe.Pointer(inv.returnValue)), true
}

/*
   ---------------- Mutators ----------------
*/

// SetTarget redirects the invocation to a different receiver.
func (inv *Invocation) SetTarget(target Object) {
	inv.target = target
	inv.flags.targetModified = true
}

// SetSelector rewrites the selector the invocation will send.
func (inv *Invocation) SetSelector(sel Selector) {
	inv.selector = sel
	inv.flags.selectorModified = true
}

// SetArgument writes a word through cell i.
func (inv *Invocation) SetArgument(i int, w Word) error {
	if i < 0 || i >= len(inv.args) {
		return &ArgumentCountMismatchError{Expected: len(inv.args), Got: i}
	}
	unsafehelpers.StoreWord(unsafe.Pointer(inv.args[i]), w)
	inv.flags.argumentsModified = true
	return nil
}

// SetReturnValue stores a return word, creating the return cell if needed.
// A handler answering the message without replaying it uses this.
func (inv *Invocation) SetReturnValue(w Word) {
	if inv.returnValue == nil {
		inv.returnValue = new(Word)
	}
	unsafehelpers.StoreWord(unsafe.Pointer(inv.returnValue), w)
	inv.returnSize = unsafe.Sizeof(w)
}

// WasInvoked reports whether the invocation has been replayed.
func (inv *Invocation) WasInvoked() bool { return inv.flags.invoked }

// TargetModified reports whether a handler redirected the receiver.
func (inv *Invocation) TargetModified() bool { return inv.flags.targetModified }

// SelectorModified reports whether a handler rewrote the selector.
func (inv *Invocation) SelectorModified() bool { return inv.flags.selectorModified }

// ArgumentsModified reports whether a handler wrote through an argument
// cell.
func (inv *Invocation) ArgumentsModified() bool { return inv.flags.argumentsModified }

/*
   ---------------- Replay ----------------
*/

// Invoke replays the (possibly rewritten) message through the dispatch
// core and captures the return value.
//
// The call is unsafe in the same sense as any send: it runs an arbitrary
// IMP over the raw word ABI.
func (inv *Invocation) Invoke() error {
	return inv.invokeWithContext(&dispatchContext{})
}

func (inv *Invocation) invokeWithContext(ctx *dispatchContext) error {
	words := make([]Word, len(inv.args))
	for i, cell := range inv.args {
		words[i] = unsafehelpers.LoadWord(unsafe.Pointer(cell))
	}

	ret, hasRet, err := sendWithContext(ctx, inv.target, inv.selector, ArgsMany(words))
	inv.flags.invoked = true
	if err != nil {
		return err
	}
	if hasRet {
		inv.SetReturnValue(ret)
	}
	return nil
}

// returnWord adapts the invocation's outcome to the dispatch result shape.
func (inv *Invocation) returnWord() (Word, bool, error) {
	if inv.returnValue == nil {
		return 0, false, nil
	}
	return unsafehelpers.LoadWord(unsafe.Pointer(inv.returnValue)), true, nil
}

// Close releases the argument and return cells and returns the invocation
// to the pool.  The invocation must not be used afterwards.
func (inv *Invocation) Close() {
	releaseInvocation(inv)
}
