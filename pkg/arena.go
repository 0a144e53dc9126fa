package objrt

// arena.go exposes the metadata allocators.  The implementation lives in
// internal/arena; the public names here are aliases so callers can hold and
// pass arenas without importing an internal path.
//
// The global arena is initialised on first use with a 4 KiB chunk and
// 16-byte minimum alignment, and is never torn down: every interned
// selector, string heap header and metadata record allocated from it lives
// for the program's lifetime.
//
// © 2025 objrt authors. MIT License.

import (
	"sync"

	"github.com/Voskan/objrt/internal/arena"
)

// Arena is the thread-safe bump allocator used for runtime metadata.
type Arena = arena.Arena

// LocalArena is the single-threaded allocator flavour.
type LocalArena = arena.LocalArena

// ArenaStats is a point-in-time snapshot of an arena's footprint.
type ArenaStats = arena.Stats

// NewLocalArena constructs a single-threaded arena with the given initial
// chunk size.
func NewLocalArena(initialSize uintptr) (*LocalArena, error) {
	return arena.NewLocal(initialSize)
}

// AllocValue places a copy of v into a and returns a stable pointer, valid
// for the arena's lifetime.  T must not contain pointers to GC-managed
// memory; see the internal/arena package disclaimer.
func AllocValue[T any](a *Arena, v T) *T {
	return arena.Alloc(a, v)
}

// AllocLocalValue is AllocValue for the single-threaded flavour.
func AllocLocalValue[T any](l *LocalArena, v T) *T {
	return arena.AllocLocal(l, v)
}

var (
	globalArenaOnce sync.Once
	globalArenaInst *Arena
)

// GlobalArena returns the process-wide metadata arena, initialising it on
// first use.  The returned arena is valid for the entire program duration.
func GlobalArena() *Arena {
	globalArenaOnce.Do(func() {
		a, err := arena.New(4096, 16)
		if err != nil {
			// Constructor arguments are compile-time constants; this
			// cannot fail.
			panic(err)
		}
		globalArenaInst = a
	})
	return globalArenaInst
}
