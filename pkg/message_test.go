package objrt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageArgsFixedVariants(t *testing.T) {
	cases := []struct {
		args MessageArgs
		want []Word
	}{
		{ArgsNone(), nil},
		{ArgsOne(1), []Word{1}},
		{ArgsTwo(1, 2), []Word{1, 2}},
		{ArgsThree(1, 2, 3), []Word{1, 2, 3}},
		{ArgsFour(1, 2, 3, 4), []Word{1, 2, 3, 4}},
		{ArgsFive(1, 2, 3, 4, 5), []Word{1, 2, 3, 4, 5}},
		{ArgsSix(1, 2, 3, 4, 5, 6), []Word{1, 2, 3, 4, 5, 6}},
		{ArgsSeven(1, 2, 3, 4, 5, 6, 7), []Word{1, 2, 3, 4, 5, 6, 7}},
		{ArgsEight(1, 2, 3, 4, 5, 6, 7, 8), []Word{1, 2, 3, 4, 5, 6, 7, 8}},
	}
	for _, tc := range cases {
		assert.Equal(t, len(tc.want), tc.args.Count())
		assert.Equal(t, tc.want, append([]Word(nil), tc.args.AsSlice()...))
	}
}

func TestMessageArgsMany(t *testing.T) {
	words := []Word{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	args := ArgsMany(words)
	assert.Equal(t, len(words), args.Count())
	assert.Equal(t, words, args.AsSlice())

	empty := ArgsMany(nil)
	assert.Zero(t, empty.Count())
}

func TestMessageArgsBitsPreserved(t *testing.T) {
	// Arguments are raw bits: a negative int64 round-trips unextended.
	neg := Word(^uintptr(0) - 41) // bit pattern of int64(-42)
	args := ArgsOne(neg)
	assert.Equal(t, neg, args.AsSlice()[0])
	assert.EqualValues(t, -42, int64(args.AsSlice()[0]))
}
