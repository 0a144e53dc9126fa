// Package unsafehelpers centralises **all** unavoidable usage of the
// `unsafe` standard-library package so that the rest of objrt stays clean
// and easier to audit.  Every helper is documented with clear pre-/post-
// conditions.
//
// ⚠️  **DISCLAIMER**   These helpers deliberately break the Go memory-safety
// model for the sake of zero-allocation conversions and raw word access.
// Use ONLY inside this repository; they are not part of the public API and
// may change without notice.  Misuse will lead to subtle data-races or
// garbage-collector corruption.
//
// All functions are `go:linkname`-free, cgo-free and pure Go 1.24.
//
// © 2025 objrt authors. MIT License.

package unsafehelpers

import "unsafe"

/* -------------------------------------------------------------------------
   1. Zero-copy string/[]byte conversions
   ------------------------------------------------------------------------- */

// BytesToString converts a mutable byte slice to an immutable string without
// allocating.  The caller must guarantee that `b` will never be modified for
// the lifetime of the resulting string; otherwise the program exhibits
// undefined behaviour.
//
// Typical use-case inside objrt: exposing arena-resident string payloads as
// Go strings for logging and map keys.
//
// DO NOT expose the returned string outside controlled scopes.
func BytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

// StringToBytes re-interprets string data as a byte slice without copying.
// The slice MUST remain read-only; writing to it will mutate immutable
// string storage and crash in future versions of Go.
func StringToBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

/* -------------------------------------------------------------------------
   2. Generic pointer → slice helpers
   ------------------------------------------------------------------------- */

// PtrSlice converts an arbitrary *T pointer + element count into a `[]T`
// without copying.  Useful when we need to treat an arena-allocated array as
// a slice for iteration.  The slice is **still backed by arena memory** and
// thus safe from GC, but the usual rules about arena lifetime apply.
func PtrSlice[T any](ptr *T, n int) []T {
	if n == 0 {
		return nil
	}
	return unsafe.Slice(ptr, n)
}

// ByteSliceFrom returns a []byte view of raw memory starting at `ptr` with
// the given length.  Caller must ensure the memory block is at least
// `length` bytes.  Primarily used for reading string payloads that trail an
// arena-allocated header.
func ByteSliceFrom(ptr unsafe.Pointer, length uintptr) []byte {
	return unsafe.Slice((*byte)(ptr), length)
}

/* -------------------------------------------------------------------------
   3. Raw machine-word access
   ------------------------------------------------------------------------- */

// LoadWord reads a machine word from p.  p need not be word-aligned: the
// word is assembled byte-by-byte, which the compiler lowers to an unaligned
// load on architectures that support one.  Used by dispatch to extract
// return values written by IMPs into stack buffers.
func LoadWord(p unsafe.Pointer) uintptr {
	var w uintptr
	copy(ByteSliceFrom(unsafe.Pointer(&w), unsafe.Sizeof(w)), ByteSliceFrom(p, unsafe.Sizeof(w)))
	return w
}

// StoreWord writes a machine word to p with the same unaligned-tolerant
// byte-wise strategy as LoadWord.  Used by Invocation setters writing
// through word-sized argument cells.
func StoreWord(p unsafe.Pointer, w uintptr) {
	copy(ByteSliceFrom(p, unsafe.Sizeof(w)), ByteSliceFrom(unsafe.Pointer(&w), unsafe.Sizeof(w)))
}

// WordAt indexes into a contiguous array of machine words starting at base.
// Callers guarantee i is within the array the IMP contract promises.
func WordAt(base *uintptr, i int) uintptr {
	return *(*uintptr)(unsafe.Add(unsafe.Pointer(base), uintptr(i)*unsafe.Sizeof(uintptr(0))))
}

/* -------------------------------------------------------------------------
   4. Alignment helpers
   ------------------------------------------------------------------------- */

// AlignUp rounds x up to the nearest multiple of align (which must be a
// power of two).  Fast bit-twiddling alternative to math.Ceil for sizes.
func AlignUp(x, align uintptr) uintptr {
	return (x + align - 1) &^ (align - 1)
}

// IsPowerOfTwo returns true if x is a power of two (exactly one bit set).
func IsPowerOfTwo(x uintptr) bool {
	return x != 0 && (x&(x-1)) == 0
}

// NextPowerOfTwo returns the smallest power of two ≥ x.  x must be ≥ 1.
func NextPowerOfTwo(x uintptr) uintptr {
	if IsPowerOfTwo(x) {
		return x
	}
	p := uintptr(1)
	for p < x {
		p <<= 1
	}
	return p
}
