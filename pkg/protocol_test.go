package objrt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtocolRequiredOptional(t *testing.T) {
	p := NewProtocol("ProtoSets", nil)

	reqSel := SelectorFromName("protoSetsRequired:")
	optSel := SelectorFromName("protoSetsOptional:")

	require.NoError(t, p.AddRequired(reqSel, "v@:i"))
	require.NoError(t, p.AddOptional(optSel, "v@:"))

	req := p.Required()
	require.Len(t, req, 1)
	assert.Equal(t, reqSel, req[0].Selector)
	assert.Equal(t, "v@:i", req[0].Types.String())

	opt := p.Optional()
	require.Len(t, opt, 1)
	assert.Equal(t, optSel, opt[0].Selector)
}

func TestProtocolDuplicateRegistration(t *testing.T) {
	p := NewProtocol("ProtoDup", nil)
	sel := SelectorFromName("protoDupMethod")

	require.NoError(t, p.AddRequired(sel, "v@:"))
	assert.ErrorIs(t, p.AddRequired(sel, "v@:"), ErrProtocolMethodAlreadyRegistered)

	// The optional set is independent of the required set.
	require.NoError(t, p.AddOptional(sel, "v@:"))
	assert.ErrorIs(t, p.AddOptional(sel, "v@:"), ErrProtocolMethodAlreadyRegistered)
}

func TestProtocolRejectsBadEncoding(t *testing.T) {
	p := NewProtocol("ProtoBadEnc", nil)
	sel := SelectorFromName("protoBadEncMethod")
	assert.ErrorIs(t, p.AddRequired(sel, "nope"), ErrInvalidEncoding)
}

func TestProtocolAllRequiredUnion(t *testing.T) {
	base := NewProtocol("ProtoUnionBase", nil)
	baseOnly := SelectorFromName("protoUnionBaseOnly")
	shared := SelectorFromName("protoUnionShared")
	require.NoError(t, base.AddRequired(baseOnly, "v@:"))
	require.NoError(t, base.AddRequired(shared, "v@:"))

	derived := NewProtocol("ProtoUnionDerived", base)
	derivedOnly := SelectorFromName("protoUnionDerivedOnly")
	require.NoError(t, derived.AddRequired(derivedOnly, "v@:"))
	// The derived protocol overrides the shared selector's encoding.
	require.NoError(t, derived.AddRequired(shared, "i@:"))

	all := derived.AllRequired()
	require.Len(t, all, 3)

	byHash := make(map[uint64]MethodRequirement, len(all))
	for _, req := range all {
		byHash[req.Selector.Hash()] = req
	}
	assert.Contains(t, byHash, baseOnly.Hash())
	assert.Contains(t, byHash, derivedOnly.Hash())
	// Override wins on the duplicate hash.
	assert.Equal(t, "i@:", byHash[shared.Hash()].Types.String())
}

func TestProtocolComposition(t *testing.T) {
	p := NewProtocol("ProtoCompP", nil)
	q := NewProtocol("ProtoCompQ", nil)
	p.AddAdopted(q)

	adopted := p.AdoptedProtocols()
	require.Len(t, adopted, 1)
	assert.Same(t, q, adopted[0])
}
