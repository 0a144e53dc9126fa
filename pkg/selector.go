package objrt

// selector.go implements selector interning: a process-wide guarantee that
// any given method name maps to exactly one arena-resident record, so
// selector equality and hashing are pointer-cheap.
//
// Registry shape
// --------------
// The registry is split into 16 shards to minimise lock contention; each
// shard owns 256 hash buckets of singly-linked interned-selector chains.
// Shard and bucket selection are zero-cost bit masks over the precomputed
// content hash:
//
//   shard  = hash & (numShards - 1)
//   bucket = hash & (bucketsPerShard - 1)
//
// A lookup takes one shard read lock; a first-registration takes one shard
// write lock and re-scans the bucket to stay unique under racing first use
// from many threads.
//
// © 2025 objrt authors. MIT License.

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

const (
	numShards       = 16
	bucketsPerShard = 256

	shardMask  = numShards - 1
	bucketMask = bucketsPerShard - 1
)

/* -------------------------------------------------------------------------
   Interned record
   ------------------------------------------------------------------------- */

// internedSelector is the arena-resident selector record.  Exactly one
// exists per distinct name for the program's lifetime.  The struct stores
// no GC-visible pointers except `next`, which always targets another arena
// record in a pinned chunk.
type internedSelector struct {
	name    RuntimeString
	nameLen uintptr
	hash    uint64
	next    *internedSelector
}

/* -------------------------------------------------------------------------
   Selector value
   ------------------------------------------------------------------------- */

// Selector is a unique identity for a method name.  Two Selectors compare
// equal iff they name the same method; comparison and hashing are O(1).
// The zero Selector is invalid.
type Selector struct {
	ptr *internedSelector
}

// SelectorHandle is the opaque pointer-sized form of a Selector used at the
// IMP boundary, where implementations receive `_cmd` without depending on
// the runtime's internal layout.
type SelectorHandle uintptr

// SelectorFromName returns the unique Selector for name, interning it on
// first use.  Safe to call from any goroutine.
func SelectorFromName(name string) Selector {
	return getSelectorRegistry().fromName(name)
}

// Name returns the selector's name.
func (s Selector) Name() string {
	return s.ptr.name.String()
}

// Hash returns the selector's precomputed content hash.
func (s Selector) Hash() uint64 {
	return s.ptr.hash
}

// IsValid reports whether the selector carries an interned record.
func (s Selector) IsValid() bool {
	return s.ptr != nil
}

// Handle re-exposes the selector pointer as an opaque handle for IMPs.
func (s Selector) Handle() SelectorHandle {
	return SelectorHandle(uintptr(unsafe.Pointer(s.ptr)))
}

// SelectorFromHandle recovers the structured Selector behind an opaque
// handle.
//
// The call is unsafe in the memory-model sense: h must be a handle
// previously produced by Selector.Handle.  Any other value yields a
// Selector whose methods dereference an invalid pointer.
func SelectorFromHandle(h SelectorHandle) Selector {
	return Selector{ptr: (*internedSelector)(unsafe.Pointer(uintptr(h)))}
}

/* -------------------------------------------------------------------------
   Sharded registry
   ------------------------------------------------------------------------- */

type selectorShard struct {
	mu      sync.RWMutex
	buckets [bucketsPerShard]*internedSelector
}

type selectorRegistry struct {
	shards [numShards]selectorShard
	count  atomic.Int64
}

var (
	selRegistryOnce sync.Once
	selRegistry     *selectorRegistry
)

func getSelectorRegistry() *selectorRegistry {
	selRegistryOnce.Do(func() {
		selRegistry = &selectorRegistry{}
	})
	return selRegistry
}

func (r *selectorRegistry) fromName(name string) Selector {
	hash := xxhash.Sum64String(name)
	shard := &r.shards[hash&shardMask]
	bucket := int(hash & bucketMask)

	// Fast path: shared read lock on one shard.
	shard.mu.RLock()
	if sel := scanBucket(shard.buckets[bucket], hash, name); sel != nil {
		shard.mu.RUnlock()
		return Selector{ptr: sel}
	}
	shard.mu.RUnlock()

	// Slow path: exclusive lock, re-scan (another thread may have interned
	// the name while we waited), then allocate and link at the head.
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if sel := scanBucket(shard.buckets[bucket], hash, name); sel != nil {
		return Selector{ptr: sel}
	}

	rec := AllocValue(GlobalArena(), internedSelector{
		name:    InternString(name),
		nameLen: uintptr(len(name)),
		hash:    hash,
		next:    shard.buckets[bucket],
	})
	shard.buckets[bucket] = rec
	r.count.Add(1)
	runtimeState().metrics.setSelectors(int(r.count.Load()))
	return Selector{ptr: rec}
}

// scanBucket walks a bucket chain for an exact match: equal hash, equal
// length, equal bytes.  Callers hold at least the shard read lock.
func scanBucket(head *internedSelector, hash uint64, name string) *internedSelector {
	for rec := head; rec != nil; rec = rec.next {
		if rec.hash == hash && rec.nameLen == uintptr(len(name)) && rec.name.String() == name {
			return rec
		}
	}
	return nil
}

// selectorCount reports the number of interned selectors, for snapshots.
func selectorCount() int {
	return int(getSelectorRegistry().count.Load())
}
