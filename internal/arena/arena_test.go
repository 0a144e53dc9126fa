package arena

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	_, err := New(MinChunkSize, 3)
	var alignErr *InvalidAlignmentError
	require.ErrorAs(t, err, &alignErr)
	assert.EqualValues(t, 3, alignErr.Alignment)

	_, err = New(128, DefaultAlignment)
	var chunkErr *ChunkAllocationError
	require.ErrorAs(t, err, &chunkErr)
	assert.EqualValues(t, 128, chunkErr.Size)

	_, err = New(MinChunkSize, DefaultAlignment)
	require.NoError(t, err)
}

func TestAllocAlignment(t *testing.T) {
	a, err := New(MinChunkSize, DefaultAlignment)
	require.NoError(t, err)

	for _, align := range []uintptr{1, 8, 16, 64} {
		p := a.Alloc(24, align)
		want := align
		if want < DefaultAlignment {
			want = DefaultAlignment
		}
		assert.Zerof(t, uintptr(p)%want, "allocation not aligned to %d", want)
	}
}

func TestAllocStability(t *testing.T) {
	a, err := New(MinChunkSize, DefaultAlignment)
	require.NoError(t, err)

	p1 := Alloc(a, uint64(1))
	p2 := Alloc(a, uint64(2))
	p3 := Alloc(a, uint32(3))

	// Force several chunk rotations; earlier pointers must survive.
	for i := 0; i < 1024; i++ {
		Alloc(a, [64]byte{})
	}

	assert.EqualValues(t, 1, *p1)
	assert.EqualValues(t, 2, *p2)
	assert.EqualValues(t, 3, *p3)
	assert.Greater(t, a.Stats().Chunks, uint64(1))
}

func TestStatsMonotonicity(t *testing.T) {
	a, err := New(MinChunkSize, DefaultAlignment)
	require.NoError(t, err)

	const n = 40
	before := a.Stats().Used
	a.Alloc(n, 1)
	after := a.Stats().Used

	// Used grows by at least the requested size and at most size plus
	// alignment padding.
	assert.GreaterOrEqual(t, after-before, uint64(n))
	assert.LessOrEqual(t, after-before, uint64(n+DefaultAlignment))
}

func TestAllocTrailing(t *testing.T) {
	a, err := New(MinChunkSize, DefaultAlignment)
	require.NoError(t, err)

	type header struct {
		length uint32
		hash   uint64
	}
	h := AllocTrailing(a, header{length: 5, hash: 42}, 32)
	require.NotNil(t, h)
	assert.EqualValues(t, 5, h.length)

	// The trailing bytes are writable and do not clobber the header.
	tail := unsafe.Slice((*byte)(unsafe.Add(unsafe.Pointer(h), unsafe.Sizeof(*h))), 32)
	for i := range tail {
		tail[i] = byte(i)
	}
	assert.EqualValues(t, 5, h.length)
	assert.EqualValues(t, 42, h.hash)
}

func TestConcurrentAlloc(t *testing.T) {
	a, err := New(MinChunkSize, DefaultAlignment)
	require.NoError(t, err)

	const (
		goroutines = 16
		perG       = 2000
	)
	ptrs := make([][]*uint64, goroutines)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			own := make([]*uint64, perG)
			for i := 0; i < perG; i++ {
				own[i] = Alloc(a, uint64(g)<<32|uint64(i))
			}
			ptrs[g] = own
		}(g)
	}
	wg.Wait()

	// No two goroutines may have received overlapping memory.
	seen := make(map[*uint64]bool, goroutines*perG)
	for g := range ptrs {
		for i, p := range ptrs[g] {
			require.False(t, seen[p], "address handed out twice")
			seen[p] = true
			assert.EqualValues(t, uint64(g)<<32|uint64(i), *p)
		}
	}
}

func TestLocalArena(t *testing.T) {
	l, err := NewLocal(MinChunkSize)
	require.NoError(t, err)

	p1 := AllocLocal(l, uint64(7))
	for i := 0; i < 2048; i++ {
		AllocLocal(l, [16]byte{})
	}
	assert.EqualValues(t, 7, *p1)
	assert.Greater(t, l.Stats().Chunks, uint64(1))

	used := l.Stats().Used
	assert.NotZero(t, used)

	l.Reset()
	assert.Zero(t, l.Stats().Used)
	assert.Zero(t, l.Stats().Chunks)
}

func TestLocalArenaValidation(t *testing.T) {
	_, err := NewLocal(16)
	var chunkErr *ChunkAllocationError
	require.ErrorAs(t, err, &chunkErr)
}
