package objrt

// message.go defines MessageArgs, the untyped argument pack handed to
// dispatch.  Arguments are machine words carrying exactly the bits the
// caller supplied; the receiver's type encoding says how to reinterpret
// them.  The runtime never zero- or sign-extends on the IMP's behalf.
//
// Up to eight arguments live in a fixed inline array (the overwhelmingly
// common case allocates nothing); larger packs borrow the caller's slice.
//
// © 2025 objrt authors. MIT License.

// Word is one untyped machine-word argument.
type Word = uintptr

// MessageArgs carries 0–8 inline words or a borrowed slice of N words.
type MessageArgs struct {
	inline [8]Word
	n      int
	many   []Word
}

/*
   ---------------- Constructors ----------------
*/

// ArgsNone is the empty argument pack.
func ArgsNone() MessageArgs { return MessageArgs{} }

// ArgsOne packs one word.
func ArgsOne(a Word) MessageArgs {
	return MessageArgs{inline: [8]Word{a}, n: 1}
}

// ArgsTwo packs two words.
func ArgsTwo(a, b Word) MessageArgs {
	return MessageArgs{inline: [8]Word{a, b}, n: 2}
}

// ArgsThree packs three words.
func ArgsThree(a, b, c Word) MessageArgs {
	return MessageArgs{inline: [8]Word{a, b, c}, n: 3}
}

// ArgsFour packs four words.
func ArgsFour(a, b, c, d Word) MessageArgs {
	return MessageArgs{inline: [8]Word{a, b, c, d}, n: 4}
}

// ArgsFive packs five words.
func ArgsFive(a, b, c, d, e Word) MessageArgs {
	return MessageArgs{inline: [8]Word{a, b, c, d, e}, n: 5}
}

// ArgsSix packs six words.
func ArgsSix(a, b, c, d, e, f Word) MessageArgs {
	return MessageArgs{inline: [8]Word{a, b, c, d, e, f}, n: 6}
}

// ArgsSeven packs seven words.
func ArgsSeven(a, b, c, d, e, f, g Word) MessageArgs {
	return MessageArgs{inline: [8]Word{a, b, c, d, e, f, g}, n: 7}
}

// ArgsEight packs eight words.
func ArgsEight(a, b, c, d, e, f, g, h Word) MessageArgs {
	return MessageArgs{inline: [8]Word{a, b, c, d, e, f, g, h}, n: 8}
}

// ArgsMany borrows words for the variable-length shape.  The slice must
// stay valid and unmodified for the lifetime of the send.
func ArgsMany(words []Word) MessageArgs {
	return MessageArgs{many: words, n: -1}
}

/*
   ---------------- Accessors ----------------
*/

// Count returns the number of packed arguments.
func (a *MessageArgs) Count() int {
	if a.n < 0 {
		return len(a.many)
	}
	return a.n
}

// AsSlice exposes the packed words.  For the inline shapes the slice
// aliases the receiver and must not outlive it.
func (a *MessageArgs) AsSlice() []Word {
	if a.n < 0 {
		return a.many
	}
	return a.inline[:a.n]
}
