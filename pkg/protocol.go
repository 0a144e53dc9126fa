package objrt

// protocol.go implements protocols: named sets of method requirements a
// class can declare and validate conformance against.  A protocol carries a
// required set and an optional set (duplicates are rejected within each
// set; one selector may be registered in both), an optional base protocol
// it extends, and a list of composed protocols it adopts.
//
// The transitive required set is this protocol's own requirements unioned
// with the base chain's, where this protocol's definitions override the
// base's on a duplicate selector.
//
// © 2025 objrt authors. MIT License.

import (
	"sync"
)

// MethodRequirement names one selector a protocol demands, together with
// its type encoding.
type MethodRequirement struct {
	Selector Selector
	Types    RuntimeString
}

// Protocol is a named method-requirement set.  Construct with NewProtocol;
// the name is fixed afterwards.
type Protocol struct {
	name RuntimeString
	base *Protocol

	mu       sync.RWMutex
	required map[uint64]MethodRequirement
	optional map[uint64]MethodRequirement
	adopted  []*Protocol
}

// NewProtocol creates a protocol with the given name and optional base
// protocol (nil for none).
func NewProtocol(name string, base *Protocol) *Protocol {
	return &Protocol{
		name:     InternString(name),
		base:     base,
		required: make(map[uint64]MethodRequirement),
		optional: make(map[uint64]MethodRequirement),
	}
}

// Name returns the protocol's name.
func (p *Protocol) Name() string {
	return p.name.String()
}

// Base returns the protocol this one extends, or nil.
func (p *Protocol) Base() *Protocol {
	return p.base
}

/*
   ---------------- Requirement registration ----------------
*/

// AddRequired registers a required method.  The types string must be a
// valid encoding; re-registering a selector already in the required set
// fails with ErrProtocolMethodAlreadyRegistered.
func (p *Protocol) AddRequired(sel Selector, types string) error {
	return p.add(sel, types, true)
}

// AddOptional registers an optional method under the same rules as
// AddRequired, against the optional set.
func (p *Protocol) AddOptional(sel Selector, types string) error {
	return p.add(sel, types, false)
}

func (p *Protocol) add(sel Selector, types string, required bool) error {
	if err := ValidateEncoding(types); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	set := p.optional
	if required {
		set = p.required
	}
	if _, dup := set[sel.Hash()]; dup {
		return ErrProtocolMethodAlreadyRegistered
	}
	set[sel.Hash()] = MethodRequirement{
		Selector: sel,
		Types:    InternString(types),
	}
	return nil
}

// AddAdopted composes another protocol into this one's adopted list.
func (p *Protocol) AddAdopted(q *Protocol) {
	p.mu.Lock()
	p.adopted = append(p.adopted, q)
	p.mu.Unlock()
}

/*
   ---------------- Requirement queries ----------------
*/

// Required returns this protocol's own required methods.
func (p *Protocol) Required() []MethodRequirement {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]MethodRequirement, 0, len(p.required))
	for _, req := range p.required {
		out = append(out, req)
	}
	return out
}

// Optional returns this protocol's own optional methods.
func (p *Protocol) Optional() []MethodRequirement {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]MethodRequirement, 0, len(p.optional))
	for _, req := range p.optional {
		out = append(out, req)
	}
	return out
}

// AdoptedProtocols returns the protocols composed into this one.
func (p *Protocol) AdoptedProtocols() []*Protocol {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Protocol, len(p.adopted))
	copy(out, p.adopted)
	return out
}

// AllRequired returns the transitive required set: the base chain's
// requirements overridden by this protocol's own on duplicate selectors.
func (p *Protocol) AllRequired() []MethodRequirement {
	merged := make(map[uint64]MethodRequirement)
	p.collectRequired(merged)
	out := make([]MethodRequirement, 0, len(merged))
	for _, req := range merged {
		out = append(out, req)
	}
	return out
}

func (p *Protocol) collectRequired(into map[uint64]MethodRequirement) {
	if p.base != nil {
		p.base.collectRequired(into)
	}
	p.mu.RLock()
	for hash, req := range p.required {
		into[hash] = req
	}
	p.mu.RUnlock()
}
