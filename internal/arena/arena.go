// Package arena implements the bump-pointer allocators backing all runtime
// metadata: interned strings, selectors and string heap headers.  Two
// flavours are provided:
//
//   - `Arena`      – thread-safe: the bump pointer is advanced with an atomic
//     CAS loop and new chunks are installed via CAS, so any
//     thread may allocate without taking a lock.
//   - `LocalArena` – single-threaded: a plain offset and a plain chunk
//     vector, for callers that own their allocator outright.
//
// Addresses handed out are stable for the arena's lifetime: chunks are heap
// byte buffers pinned by the arena's chunk registry and are never compacted,
// moved or individually freed.  Only whole-arena teardown (LocalArena.Reset)
// reclaims memory; the global arena owned by the runtime is never torn down.
//
// Concurrency
// -----------
// The fast path is lock-free: load current chunk (Acquire), CAS the bump
// offset (AcqRel on success).  The slow path allocates a fresh chunk and
// CAS-installs it; the loser of a racing install simply drops its chunk and
// retries.  Retired chunks are pushed onto a mutex-guarded list so that the
// memory every previously returned address lives in stays reachable.
//
// ⚠️  DISCLAIMER  ----------------------------------------------
// Values stored in arena memory are invisible to the garbage collector.
// Callers MUST NOT place pointers to ordinary heap objects inside
// arena-allocated records; pointers into other arena chunks are fine because
// the chunk registry keeps every chunk alive.
// -------------------------------------------------------------
//
// © 2025 objrt authors. MIT License.

package arena

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/Voskan/objrt/internal/unsafehelpers"
)

// DefaultAlignment is the minimum alignment applied to every allocation.
const DefaultAlignment = 16

// MinChunkSize is the smallest chunk the allocators will create.
const MinChunkSize = 4096

// MaxChunkSize caps the doubling growth of chunk sizes.  A single request
// larger than the cap still gets a dedicated chunk big enough to hold it.
const MaxChunkSize = 1 << 20

/* -------------------------------------------------------------------------
   Errors
   ------------------------------------------------------------------------- */

// InvalidAlignmentError reports a constructor alignment that is not a power
// of two.
type InvalidAlignmentError struct {
	Alignment uintptr
}

func (e *InvalidAlignmentError) Error() string {
	return fmt.Sprintf("arena: invalid alignment: %d is not a power of two", e.Alignment)
}

// ChunkAllocationError reports a constructor chunk size below the minimum.
type ChunkAllocationError struct {
	Size uintptr
}

func (e *ChunkAllocationError) Error() string {
	return fmt.Sprintf("arena: cannot allocate chunk of %d bytes (min %d)", e.Size, MinChunkSize)
}

/* -------------------------------------------------------------------------
   Chunk
   ------------------------------------------------------------------------- */

// chunk is one contiguous allocation region.  `buf` pins the memory; `start`
// is the 16-byte-aligned address of the first usable byte and `size` the
// usable byte count.  `bump` is the offset of the next free byte relative to
// `start`.
type chunk struct {
	buf   []byte
	start unsafe.Pointer
	size  uintptr
	bump  atomic.Uintptr
}

// newChunk allocates a zeroed chunk with at least `size` usable bytes.  The
// backing buffer is over-allocated by the alignment so `start` can be rounded
// up without losing capacity.  An impossible allocation panics (OOM is not a
// recoverable condition for metadata).
func newChunk(size, align uintptr) *chunk {
	buf := make([]byte, size+align)
	base := uintptr(unsafe.Pointer(&buf[0]))
	off := unsafehelpers.AlignUp(base, align) - base
	return &chunk{
		buf:   buf,
		start: unsafe.Pointer(&buf[off]),
		size:  size,
	}
}

/* -------------------------------------------------------------------------
   Stats
   ------------------------------------------------------------------------- */

// Stats is a point-in-time snapshot of an arena's footprint.
type Stats struct {
	// Chunks is the number of chunks installed, retired ones included; a
	// chunk dropped after losing an install race is not counted.
	Chunks uint64
	// Capacity is the total usable bytes across all chunks.
	Capacity uint64
	// Used is the total bytes consumed, alignment padding included.
	Used uint64
}

/* -------------------------------------------------------------------------
   Arena – thread-safe flavour
   ------------------------------------------------------------------------- */

// Arena is the thread-safe bump allocator.  The zero value is not usable;
// construct with New.
type Arena struct {
	current atomic.Pointer[chunk]

	// retired keeps every rotated-out chunk reachable so previously
	// returned addresses stay valid until whole-arena teardown.
	retiredMu sync.Mutex
	retired   []*chunk

	minAlign uintptr

	chunks   atomic.Uint64
	capacity atomic.Uint64
	used     atomic.Uint64
}

// New constructs a thread-safe arena with the given initial chunk size and
// minimum alignment.
func New(initialSize, minAlign uintptr) (*Arena, error) {
	if !unsafehelpers.IsPowerOfTwo(minAlign) {
		return nil, &InvalidAlignmentError{Alignment: minAlign}
	}
	if initialSize < MinChunkSize {
		return nil, &ChunkAllocationError{Size: initialSize}
	}
	initialSize = unsafehelpers.NextPowerOfTwo(initialSize)

	a := &Arena{minAlign: minAlign}
	first := newChunk(initialSize, minAlign)
	a.current.Store(first)
	a.chunks.Store(1)
	a.capacity.Store(uint64(initialSize))
	return a, nil
}

// Alloc returns a stable, writable, zeroed region of `size` bytes aligned to
// max(align, the arena's minimum alignment).  It never fails: an exhausted
// chunk triggers chunk rotation and a true out-of-memory condition panics.
func (a *Arena) Alloc(size, align uintptr) unsafe.Pointer {
	if align < a.minAlign {
		align = a.minAlign
	}
	for {
		c := a.current.Load()
		cur := c.bump.Load()

		// Address-only arithmetic relative to the chunk start preserves
		// the provenance of the chunk's buffer.
		base := uintptr(c.start)
		aligned := unsafehelpers.AlignUp(base+cur, align) - base
		next := aligned + size
		if next > c.size {
			a.grow(size + align)
			continue
		}
		if c.bump.CompareAndSwap(cur, next) {
			a.used.Add(uint64(next - cur))
			return unsafe.Add(c.start, aligned)
		}
		// CAS lost: another thread advanced the bump pointer. Retry.
	}
}

// grow installs a fresh chunk big enough for at least minSize bytes.  The
// new chunk doubles the arena's running capacity up to MaxChunkSize; a
// request beyond the cap gets a dedicated chunk sized to it.  Exactly one of
// the racing growers wins the CAS; losers drop their chunk.
func (a *Arena) grow(minSize uintptr) {
	old := a.current.Load()

	newSize := uintptr(a.capacity.Load()) * 2
	if newSize > MaxChunkSize {
		newSize = MaxChunkSize
	}
	if newSize < minSize {
		newSize = minSize
	}
	if newSize < MinChunkSize {
		newSize = MinChunkSize
	}
	newSize = unsafehelpers.NextPowerOfTwo(newSize)

	fresh := newChunk(newSize, a.minAlign)
	if !a.current.CompareAndSwap(old, fresh) {
		// A competing thread already installed a chunk; ours is dropped.
		return
	}

	a.retiredMu.Lock()
	a.retired = append(a.retired, old)
	a.retiredMu.Unlock()

	a.chunks.Add(1)
	a.capacity.Add(uint64(newSize))
}

// Stats returns a snapshot of chunk count, capacity and used bytes.
func (a *Arena) Stats() Stats {
	return Stats{
		Chunks:   a.chunks.Load(),
		Capacity: a.capacity.Load(),
		Used:     a.used.Load(),
	}
}

// Alloc places a copy of v into the arena and returns a stable pointer to
// it.  T must not contain pointers to GC-managed memory (see the package
// disclaimer).
func Alloc[T any](a *Arena, v T) *T {
	p := (*T)(a.Alloc(unsafe.Sizeof(v), unsafe.Alignof(v)))
	*p = v
	return p
}

// AllocTrailing places a copy of v followed by `extra` zeroed bytes into the
// arena: the header-plus-flexible-array shape used by string heap headers.
func AllocTrailing[T any](a *Arena, v T, extra uintptr) *T {
	p := (*T)(a.Alloc(unsafe.Sizeof(v)+extra, unsafe.Alignof(v)))
	*p = v
	return p
}

/* -------------------------------------------------------------------------
   LocalArena – single-threaded flavour
   ------------------------------------------------------------------------- */

// LocalArena is the single-threaded bump allocator: a plain bump offset and
// a plain chunk vector.  It must not be shared across goroutines.
type LocalArena struct {
	chunks   []*chunk
	bump     uintptr // offset into the last chunk
	minAlign uintptr
	used     uintptr
	capacity uintptr
}

// NewLocal constructs a single-threaded arena with the given initial chunk
// size and the default alignment.
func NewLocal(initialSize uintptr) (*LocalArena, error) {
	if initialSize < MinChunkSize {
		return nil, &ChunkAllocationError{Size: initialSize}
	}
	initialSize = unsafehelpers.NextPowerOfTwo(initialSize)
	l := &LocalArena{minAlign: DefaultAlignment}
	l.chunks = append(l.chunks, newChunk(initialSize, l.minAlign))
	l.capacity = initialSize
	return l, nil
}

// Alloc returns a stable, zeroed region of `size` bytes from the local
// arena.
func (l *LocalArena) Alloc(size, align uintptr) unsafe.Pointer {
	if align < l.minAlign {
		align = l.minAlign
	}
	c := l.chunks[len(l.chunks)-1]
	base := uintptr(c.start)
	aligned := unsafehelpers.AlignUp(base+l.bump, align) - base
	next := aligned + size
	if next > c.size {
		newSize := c.size * 2
		if newSize > MaxChunkSize {
			newSize = MaxChunkSize
		}
		if newSize < size+align {
			newSize = unsafehelpers.NextPowerOfTwo(size + align)
		}
		c = newChunk(newSize, l.minAlign)
		l.chunks = append(l.chunks, c)
		l.capacity += newSize
		l.bump = 0
		aligned = unsafehelpers.AlignUp(uintptr(c.start), align) - uintptr(c.start)
		next = aligned + size
	}
	l.used += next - l.bump
	l.bump = next
	return unsafe.Add(c.start, aligned)
}

// Stats returns a snapshot of chunk count, capacity and used bytes.
func (l *LocalArena) Stats() Stats {
	return Stats{
		Chunks:   uint64(len(l.chunks)),
		Capacity: uint64(l.capacity),
		Used:     uint64(l.used),
	}
}

// Reset drops every chunk, releasing all memory at once.  Any pointer
// previously returned becomes invalid.
func (l *LocalArena) Reset() {
	l.chunks = nil
	l.bump = 0
	l.used = 0
	l.capacity = 0
}

// AllocLocal places a copy of v into the local arena and returns a pointer
// to it.  The same no-GC-pointers contract as Alloc applies.
func AllocLocal[T any](l *LocalArena, v T) *T {
	p := (*T)(l.Alloc(unsafe.Sizeof(v), unsafe.Alignof(v)))
	*p = v
	return p
}
