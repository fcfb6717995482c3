// dynproxy: runtime dynamic proxy construction for Go interfaces.
// This file implements proxy handles and forwarding instances.
// Copyright (c) 2025 by proxykit. Refer to LICENSE for more information.
package dynproxy

import (
	"fmt"
	"reflect"

	"github.com/proxykit/dynamic-proxy/proxyutils"
)

// Proxy is the handle for a generated proxy type. Handles for the same
// ordered interface set and loader refer to the same generated type.
type Proxy struct {
	typ *GeneratedType
}

// TypeName returns the fully qualified name of the generated type.
func (p *Proxy) TypeName() string {
	return p.typ.Name()
}

// MethodTable returns the generated type's method table.
func (p *Proxy) MethodTable() *MethodTable {
	return p.typ.MethodTable()
}

// NewInstance returns a new instance of the generated type bound to handler.
// A nil handler binds UnsupportedHandler, which fails every call.
func (p *Proxy) NewInstance(handler DispatchHandler) *Instance {
	if handler == nil {
		handler = UnsupportedHandler
	}
	return p.typ.newInstance(handler)
}

// Instance is a forwarding instance of a generated proxy type. Every method
// call is boxed and forwarded to the bound dispatch handler.
type Instance struct {
	typ     *GeneratedType
	handler DispatchHandler
	funcs   []reflect.Value
}

func (g *GeneratedType) newInstance(handler DispatchHandler) *Instance {
	inst := &Instance{
		typ:     g,
		handler: handler,
		funcs:   make([]reflect.Value, len(g.methods)),
	}
	for i := range g.methods {
		index := i
		method := g.methods[i]
		inst.funcs[i] = reflect.MakeFunc(method.funcType, func(args []reflect.Value) []reflect.Value {
			return inst.dispatch(index, method, args)
		})
	}
	return inst
}

// dispatch executes one forwarded call: argument boxing, handler invocation,
// return unboxing.
//
// A handler error is routed into the method's trailing error result. Methods
// without an error result have no declared failure contract; a handler error
// there panics, as does a result that cannot be unboxed into the declared
// type. Instance.Call converts such panics back into errors.
func (in *Instance) dispatch(index int, method emittedMethod, args []reflect.Value) []reflect.Value {
	ret, err := in.handler.Invoke(in, index, proxyutils.BoxArgs(args))

	results := make([]reflect.Value, len(method.sig.ResultTypes))
	if err != nil {
		if method.errIndex < 0 {
			panic(fmt.Errorf("dynproxy: handler error on method [%s] with no error result: %w", method.sig.Key(), err))
		}
		for i, rt := range method.sig.ResultTypes {
			results[i] = reflect.Zero(rt)
		}
		results[method.errIndex] = reflect.ValueOf(&err).Elem()
		return results
	}

	for i, rt := range method.sig.ResultTypes {
		if i == method.errIndex {
			results[i] = reflect.Zero(rt)
			continue
		}
		rv, uerr := proxyutils.UnboxValue(ret, rt)
		if uerr != nil {
			panic(fmt.Errorf("dynproxy: method [%s]: %w", method.sig.Key(), uerr))
		}
		results[i] = rv
	}
	return results
}

// TypeName returns the fully qualified name of the instance's type.
func (in *Instance) TypeName() string {
	return in.typ.Name()
}

// Handler returns the bound dispatch handler.
func (in *Instance) Handler() DispatchHandler {
	return in.handler
}

// MethodFunc returns the forwarding func for a dispatch index as a callable
// reflect.Value of the method's declared func type.
func (in *Instance) MethodFunc(index int) reflect.Value {
	return in.funcs[index]
}

// Func returns the forwarding func for the first table entry with the given
// name.
func (in *Instance) Func(name string) (reflect.Value, bool) {
	for i := 0; i < in.typ.table.Len(); i++ {
		if in.typ.table.Method(i).Name == name {
			return in.funcs[i], true
		}
	}
	return reflect.Value{}, false
}

// Call invokes a method by name with loosely typed arguments. The method is
// selected by name and arity. Numeric arguments are converted to the declared
// parameter type where possible; nil stands for the parameter's zero value.
//
// The returned value is the method's value result (nil for void methods); the
// returned error is the trailing error result, or the handler error for
// methods without one.
func (in *Instance) Call(name string, args ...any) (result any, err error) {
	index := in.matchMethod(name, len(args))
	if index < 0 {
		return nil, fmt.Errorf("dynproxy: no method %q with %d arguments on %s", name, len(args), in.typ.Name())
	}
	method := in.typ.methods[index]

	callArgs := make([]reflect.Value, len(args))
	for i, arg := range args {
		pt := paramTypeAt(method.sig, i)
		if arg == nil {
			callArgs[i] = reflect.Zero(pt)
			continue
		}
		rv := reflect.ValueOf(arg)
		if rv.Type() != pt && proxyutils.IsValueKind(pt) && rv.Type().ConvertibleTo(pt) {
			rv = rv.Convert(pt)
		}
		callArgs[i] = rv
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("dynproxy: %v", r)
			}
		}
	}()

	outs := in.funcs[index].Call(callArgs)
	for i := range method.sig.ResultTypes {
		if i == method.errIndex {
			if !outs[i].IsNil() {
				err = outs[i].Interface().(error)
			}
			continue
		}
		result = outs[i].Interface()
	}
	return result, err
}

// matchMethod selects the first table entry matching name and arity.
func (in *Instance) matchMethod(name string, arity int) int {
	for i := 0; i < in.typ.table.Len(); i++ {
		sig := in.typ.table.Method(i)
		if sig.Name != name {
			continue
		}
		if sig.Variadic {
			if arity >= len(sig.ParamTypes)-1 {
				return i
			}
			continue
		}
		if arity == len(sig.ParamTypes) {
			return i
		}
	}
	return -1
}

// paramTypeAt returns the declared type of the i-th argument, unrolling the
// variadic tail.
func paramTypeAt(sig *MethodSignature, i int) reflect.Type {
	if sig.Variadic && i >= len(sig.ParamTypes)-1 {
		return sig.ParamTypes[len(sig.ParamTypes)-1].Elem()
	}
	return sig.ParamTypes[i]
}
