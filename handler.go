// dynproxy: runtime dynamic proxy construction for Go interfaces.
// This file is part of the dynproxy package.
// Copyright (c) 2025 by proxykit. Refer to LICENSE for more information.
package dynproxy

import (
	"fmt"

	"github.com/proxykit/dynamic-proxy/proxyutils"
)

// DispatchHandler receives every method call forwarded by a proxy instance.
// self is the forwarding instance (*Instance for runtime proxies), method is
// the stable dispatch index into the proxy's method table, and args carries
// the boxed arguments.
type DispatchHandler interface {
	Invoke(self any, method int, args []any) (any, error)
}

// DispatchHandlerFunc adapts a plain function to DispatchHandler.
type DispatchHandlerFunc func(self any, method int, args []any) (any, error)

func (f DispatchHandlerFunc) Invoke(self any, method int, args []any) (any, error) {
	return f(self, method, args)
}

// UnsupportedHandler fails every call with ErrUnsupportedOperation. It is the
// stand-in bound by Proxy.NewInstance when no handler is supplied: a
// placeholder or test double, never a silent no-op.
var UnsupportedHandler DispatchHandler = DispatchHandlerFunc(func(self any, method int, _ []any) (any, error) {
	if inst, ok := self.(*Instance); ok {
		return nil, fmt.Errorf("%w: method [%s] unimplemented", proxyutils.ErrUnsupportedOperation, inst.typ.table.Method(method).Key())
	}
	return nil, fmt.Errorf("%w: method %d unimplemented", proxyutils.ErrUnsupportedOperation, method)
})

// ReturnEmptyHandler silently discards every call and returns an absent
// result, for use cases that want to drop calls intentionally.
var ReturnEmptyHandler DispatchHandler = DispatchHandlerFunc(func(any, int, []any) (any, error) {
	return nil, nil
})
