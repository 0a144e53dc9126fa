package objrt

// string.go implements RuntimeString, the 16-byte string value used for
// every name in the runtime (selectors, classes, categories, protocols,
// type encodings).  Two disjoint shapes share the 16 bytes:
//
//   Inline (SSO) – payload bytes 0..len (len ≤ 15); byte 15 holds
//                  (len << 2) | tag bits.  Bit 0 set marks the inline
//                  shape, bit 1 marks Latin-1/ASCII-only content.
//   Heap         – a pointer to a refcounted header in the global arena,
//                  OR-tagged with the encoding bit, stored in the first
//                  word; bytes 8..15 are zero so byte 15's bit 0 is clear.
//
// Heap headers are arena-allocated and never deallocated; the refcount
// governs only logical copy-on-write ownership, not memory.  An intern
// cache deduplicates heap strings by content hash; strings at or below the
// SSO threshold bypass it because the inline form is already optimal.
//
// © 2025 objrt authors. MIT License.

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/cespare/xxhash/v2"

	"github.com/Voskan/objrt/internal/arena"
	"github.com/Voskan/objrt/internal/unsafehelpers"
)

// SSOThreshold is the maximum byte length stored inline.
const SSOThreshold = 15

const (
	ssoTagBit   = 0x01 // byte 15 bit 0: inline shape
	encodingBit = 0x02 // bit 1: Latin-1/ASCII-only content

	pointerMask = ^uintptr(0x03)

	flagEncodingLatin1 uint32 = 0x01
)

/* -------------------------------------------------------------------------
   Heap header
   ------------------------------------------------------------------------- */

// heapString is the arena-resident header of a heap-shaped string.  The
// payload bytes follow the struct directly, NUL-terminated.  The struct is
// pointer-free on purpose: arena memory is invisible to the GC.
type heapString struct {
	length   uint32
	refcount uint32 // atomic
	capacity uint32
	flags    uint32
	hash     uint64
	// payload bytes trail here
}

func (h *heapString) payload() unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(h), unsafe.Sizeof(*h))
}

func (h *heapString) bytes() []byte {
	return unsafehelpers.ByteSliceFrom(h.payload(), uintptr(h.length))
}

/* -------------------------------------------------------------------------
   RuntimeString
   ------------------------------------------------------------------------- */

// RuntimeString is a 16-byte tagged string value.  The zero value is the
// empty inline string with no tag bits set and is not valid; construct with
// NewRuntimeString or InternString.
type RuntimeString struct {
	data [16]byte
}

// NewRuntimeString builds a RuntimeString from s, storing it inline when it
// fits and in the given arena otherwise.
func NewRuntimeString(s string, a *Arena) RuntimeString {
	b := unsafehelpers.StringToBytes(s)
	latin1 := isLatin1(b)
	if len(b) <= SSOThreshold {
		return newInline(b, latin1)
	}
	return newHeap(b, latin1, a)
}

func newInline(b []byte, latin1 bool) RuntimeString {
	var rs RuntimeString
	copy(rs.data[:SSOThreshold], b)
	tag := byte(ssoTagBit)
	if latin1 {
		tag |= encodingBit
	}
	rs.data[15] = byte(len(b))<<2 | tag
	return rs
}

func newHeap(b []byte, latin1 bool, a *Arena) RuntimeString {
	capacity := unsafehelpers.NextPowerOfTwo(uintptr(len(b)) + 1)
	flags := uint32(0)
	if latin1 {
		flags = flagEncodingLatin1
	}
	hdr := arena.AllocTrailing(a, heapString{
		length:   uint32(len(b)),
		refcount: 1,
		capacity: uint32(capacity),
		flags:    flags,
		hash:     xxhash.Sum64(b),
	}, capacity)

	dst := unsafehelpers.ByteSliceFrom(hdr.payload(), uintptr(len(b))+1)
	copy(dst, b)
	dst[len(b)] = 0 // NUL terminator

	return fromHeapHeader(hdr, false)
}

// fromHeapHeader wraps an existing header in a RuntimeString, incrementing
// the refcount unless the caller already owns a reference.
func fromHeapHeader(hdr *heapString, addRef bool) RuntimeString {
	if addRef {
		old := atomic.AddUint32(&hdr.refcount, 1) - 1
		if old == ^uint32(0) {
			panic("objrt: reference count overflow in RuntimeString")
		}
	}
	tagged := uintptr(unsafe.Pointer(hdr))
	if hdr.flags&flagEncodingLatin1 != 0 {
		tagged |= encodingBit
	}
	var rs RuntimeString
	*(*uintptr)(unsafe.Pointer(&rs.data[0])) = tagged
	return rs
}

func isLatin1(b []byte) bool {
	for _, c := range b {
		if c > 0x7F {
			return false
		}
	}
	return true
}

/*
   ---------------- Shape probing ----------------
*/

// IsInline reports whether the string uses inline SSO storage.
func (s RuntimeString) IsInline() bool {
	return s.data[15]&ssoTagBit != 0
}

// IsLatin1 reports whether all content bytes were ≤ 0x7F at construction.
func (s RuntimeString) IsLatin1() bool {
	if s.IsInline() {
		return s.data[15]&encodingBit != 0
	}
	return s.tagged()&encodingBit != 0
}

func (s RuntimeString) tagged() uintptr {
	return *(*uintptr)(unsafe.Pointer(&s.data[0]))
}

func (s RuntimeString) heap() *heapString {
	return (*heapString)(unsafe.Pointer(s.tagged() & pointerMask))
}

/*
   ---------------- Accessors ----------------
*/

// Len returns the byte length of the string.
func (s RuntimeString) Len() int {
	if s.IsInline() {
		return int(s.data[15] >> 2)
	}
	return int(s.heap().length)
}

// Bytes returns a read-only view of the content bytes.  For the heap shape
// the view aliases arena memory and stays valid for the program's lifetime;
// for the inline shape it aliases the receiver and must not outlive it.
func (s *RuntimeString) Bytes() []byte {
	if s.IsInline() {
		return s.data[:s.data[15]>>2]
	}
	return s.heap().bytes()
}

// String returns the content as a Go string.  Heap-shaped strings convert
// without copying (the payload is immutable arena memory).
func (s *RuntimeString) String() string {
	if s.IsInline() {
		return string(s.data[:s.data[15]>>2])
	}
	return unsafehelpers.BytesToString(s.heap().bytes())
}

// Hash returns the content hash.  Inline strings hash on demand; heap
// strings return the hash precomputed at construction.  Identical content
// produces identical hashes regardless of shape.
func (s *RuntimeString) Hash() uint64 {
	if s.IsInline() {
		return xxhash.Sum64(s.data[:s.data[15]>>2])
	}
	return s.heap().hash
}

// RefCount returns the logical COW reference count of a heap string, or 1
// for the inline shape (each inline value is its own copy).
func (s *RuntimeString) RefCount() uint32 {
	if s.IsInline() {
		return 1
	}
	return atomic.LoadUint32(&s.heap().refcount)
}

/*
   ---------------- Value semantics ----------------
*/

// Clone returns a logical copy.  Inline strings copy the 16 bytes; heap
// strings share the header and bump the refcount, panicking on overflow.
func (s *RuntimeString) Clone() RuntimeString {
	if s.IsInline() {
		return *s
	}
	hdr := s.heap()
	old := atomic.AddUint32(&hdr.refcount, 1) - 1
	if old == ^uint32(0) {
		panic("objrt: reference count overflow in RuntimeString.Clone")
	}
	return *s
}

// Release drops a logical reference obtained via Clone or InternString.
// Memory is never reclaimed (the arena owns it); the refcount exists only
// for copy-on-write accounting.
func (s *RuntimeString) Release() {
	if s.IsInline() {
		return
	}
	atomic.AddUint32(&s.heap().refcount, ^uint32(0))
}

// Equal reports structural equality.  Inline/inline compares the 16-byte
// arrays; heap/heap short-circuits on pointer identity, then length, then
// content; mixed shapes compare content byte-by-byte.
func (s *RuntimeString) Equal(other *RuntimeString) bool {
	si, oi := s.IsInline(), other.IsInline()
	switch {
	case si && oi:
		return s.data == other.data
	case !si && !oi:
		sh, oh := s.heap(), other.heap()
		if sh == oh {
			return true
		}
		if sh.length != oh.length {
			return false
		}
		return string(sh.bytes()) == string(oh.bytes())
	default:
		return string(s.Bytes()) == string(other.Bytes())
	}
}

/* -------------------------------------------------------------------------
   Intern cache
   ------------------------------------------------------------------------- */

// stringInternCache deduplicates heap strings by content hash.  The bucket
// values are header pointers; arena memory never moves, so the pointers are
// valid forever.
type stringInternCache struct {
	mu    sync.RWMutex
	cache map[uint64][]*heapString
	arena *Arena
}

var (
	internOnce  sync.Once
	internCache *stringInternCache
)

func getInternCache() *stringInternCache {
	internOnce.Do(func() {
		internCache = &stringInternCache{
			cache: make(map[uint64][]*heapString),
			arena: GlobalArena(),
		}
	})
	return internCache
}

// InternString returns a content-deduplicated RuntimeString for s.  Strings
// at or below the SSO threshold bypass the cache entirely; longer strings
// share one arena header per distinct content for the program's lifetime.
func InternString(s string) RuntimeString {
	return getInternCache().intern(s)
}

func (ic *stringInternCache) intern(s string) RuntimeString {
	if len(s) <= SSOThreshold {
		return NewRuntimeString(s, ic.arena)
	}

	b := unsafehelpers.StringToBytes(s)
	hash := xxhash.Sum64(b)

	// Fast path: shared read lock.
	ic.mu.RLock()
	if hdr := ic.scan(hash, b); hdr != nil {
		ic.mu.RUnlock()
		return fromHeapHeader(hdr, true)
	}
	ic.mu.RUnlock()

	// Slow path: exclusive lock with a double-check re-scan; another
	// goroutine may have interned the same content while we waited.
	ic.mu.Lock()
	defer ic.mu.Unlock()
	if hdr := ic.scan(hash, b); hdr != nil {
		return fromHeapHeader(hdr, true)
	}

	rs := newHeap(b, isLatin1(b), ic.arena)
	ic.cache[hash] = append(ic.cache[hash], rs.heap())
	return rs
}

// scan walks the hash bucket for a length- and content-matching header.
// Callers hold at least the read lock.
func (ic *stringInternCache) scan(hash uint64, b []byte) *heapString {
	for _, hdr := range ic.cache[hash] {
		if int(hdr.length) == len(b) && string(hdr.bytes()) == string(b) {
			return hdr
		}
	}
	return nil
}

// internedStringCount reports the number of distinct interned headers, for
// snapshots.
func internedStringCount() int {
	ic := getInternCache()
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	n := 0
	for _, bucket := range ic.cache {
		n += len(bucket)
	}
	return n
}
