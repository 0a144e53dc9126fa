package objrt

// proxy.go builds transparent proxies on top of the forwarding pipeline.
// A proxy is an instance of a fabricated, uniquely named class that defines
// no methods of its own; every send therefore misses and the class
// forwarding hook routes it to the wrapped target.  Useful for logging
// shims, plugin surfaces and remote-object fronts.
//
// © 2025 objrt authors. MIT License.

import (
	"fmt"
	"sync/atomic"
)

// proxyID feeds unique proxy class names.
var proxyID atomic.Uint64

// TransparentProxy wraps a target object behind a forwarding-only class.
type TransparentProxy struct {
	object Object
	target Object
	class  *Class
}

// NewTransparentProxy fabricates a proxy class and instance forwarding
// every selector to target.
func NewTransparentProxy(target Object) (*TransparentProxy, error) {
	name := fmt.Sprintf("__ObjrtProxy%d", proxyID.Add(1))
	class, err := NewRootClass(name)
	if err != nil {
		return nil, err
	}

	class.SetForwardingHook(func(_ Object, _ Selector) (Object, bool) {
		return target, true
	})

	return &TransparentProxy{
		object: NewObject(class),
		target: target,
		class:  class,
	}, nil
}

// Object returns the proxy instance messages should be sent to.
func (p *TransparentProxy) Object() Object { return p.object }

// Target returns the wrapped object.
func (p *TransparentProxy) Target() Object { return p.target }

// Send dispatches sel on the proxy, which forwards to the target.
func (p *TransparentProxy) Send(sel Selector, args MessageArgs) (Word, bool, error) {
	return p.object.Send(sel, args)
}
