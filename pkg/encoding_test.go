package objrt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEncoding(t *testing.T) {
	valid := []string{"v@:", "i@:i", "@@:@", "d@:fd", "v@:^*#?lq"}
	for _, enc := range valid {
		assert.NoErrorf(t, ValidateEncoding(enc), "encoding %q", enc)
	}

	invalid := []string{
		"",     // empty
		"v",    // missing self and _cmd
		"v@",   // missing _cmd
		"v:@",  // self and _cmd swapped
		"x@:",  // unknown return type
		"v@:z", // unknown argument type
		"@i:",  // self position wrong
	}
	for _, enc := range invalid {
		assert.ErrorIsf(t, ValidateEncoding(enc), ErrInvalidEncoding, "encoding %q", enc)
	}
}

func TestSizeOfType(t *testing.T) {
	cases := map[byte]uintptr{
		EncVoid:     0,
		EncInt:      4,
		EncFloat:    4,
		EncObject:   8,
		EncSelector: 8,
		EncLong:     8,
		EncLongLong: 8,
		EncDouble:   8,
		EncCString:  8,
		EncPointer:  8,
		EncClass:    8,
		EncUnknown:  8,
	}
	for c, want := range cases {
		got, ok := SizeOfType(c)
		require.Truef(t, ok, "type %q", string(c))
		assert.Equalf(t, want, got, "type %q", string(c))
	}

	_, ok := SizeOfType('z')
	assert.False(t, ok)
}

func TestParseSignature(t *testing.T) {
	ret, args, err := ParseSignature("i@:if")
	require.NoError(t, err)
	assert.EqualValues(t, EncInt, ret)
	assert.Equal(t, "@:if", args)

	ret, args, err = ParseSignature("v@:")
	require.NoError(t, err)
	assert.EqualValues(t, EncVoid, ret)
	assert.Equal(t, "@:", args)

	_, _, err = ParseSignature("bogus")
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}
