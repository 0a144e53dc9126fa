package objrt

// pool.go implements the Invocation object pool used by the Stage-3
// forwarding path.  Reifying a message is a frequent operation in a
// dynamic runtime; recycling the Invocation shell (and its argument-cell
// slice backing) keeps the forwarding slow path off the allocator.
//
// The pool is a sync.Pool: per-P caches give the same contention-free
// behaviour a hand-rolled thread-local pool would, with the runtime free
// to drop idle shells under memory pressure.  Hit/miss counters feed the
// runtime snapshot.
//
// © 2025 objrt authors. MIT License.

import (
	"sync"
	"sync/atomic"
)

var invocationPool = sync.Pool{
	New: func() any {
		invPoolMisses.Add(1)
		return &Invocation{args: make([]*Word, 0, 8)}
	},
}

var (
	invPoolAcquires atomic.Uint64
	invPoolMisses   atomic.Uint64
)

// acquireInvocation hands out a zeroed Invocation shell.
func acquireInvocation() *Invocation {
	invPoolAcquires.Add(1)
	return invocationPool.Get().(*Invocation)
}

// releaseInvocation scrubs the shell and returns it to the pool.  The
// argument-cell slice keeps its backing array; the cells themselves are
// dropped for the host to reclaim.
func releaseInvocation(inv *Invocation) {
	clear(inv.args)
	*inv = Invocation{args: inv.args[:0]}
	invocationPool.Put(inv)
}

// invocationPoolStats reports acquires and misses; the difference is the
// pool hit count.
func invocationPoolStats() (acquires, misses uint64) {
	return invPoolAcquires.Load(), invPoolMisses.Load()
}
