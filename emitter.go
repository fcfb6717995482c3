// dynproxy: runtime dynamic proxy construction for Go interfaces.
// This file implements the type emitter contract and the reflection-backed
// in-process emitter.
// Copyright (c) 2025 by proxykit. Refer to LICENSE for more information.
package dynproxy

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/proxykit/dynamic-proxy/proxyutils"
)

// TypeEmitter materializes a method table into a loadable forwarding type.
//
// Emit must produce a type whose instances, for each table entry, box their
// arguments, invoke the bound DispatchHandler with (self, methodIndex,
// boxedArgs) and unbox the result into the declared result types. Release
// frees emitter-scoped resources after materialization; the proxy factory
// guarantees it runs on every exit path, success or failure.
type TypeEmitter interface {
	Emit(targetName string, table *MethodTable, namespace string) (*GeneratedType, error)
	Release()
}

// emittedMethod is a table entry prepared for instantiation: the signature,
// its concrete func type and the precomputed error-result slot.
type emittedMethod struct {
	sig      *MethodSignature
	funcType reflect.Type
	errIndex int
}

// GeneratedType is a runtime proxy type. One exists per distinct
// (loader, cache key) pair; callers never own it directly, only instances
// bound to a dispatch handler.
type GeneratedType struct {
	name      string
	namespace string
	table     *MethodTable
	methods   []emittedMethod
}

// Name returns the fully qualified generated type name.
func (g *GeneratedType) Name() string {
	return g.name
}

// Namespace returns the namespace the type was emitted into.
func (g *GeneratedType) Namespace() string {
	return g.namespace
}

// MethodTable returns the type's static method table.
func (g *GeneratedType) MethodTable() *MethodTable {
	return g.table
}

// ReflectEmitter is the default in-process TypeEmitter. It materializes
// forwarding methods with reflect.MakeFunc instead of emitting source.
// Func types are cached per signature across emissions until Release.
type ReflectEmitter struct {
	mu        sync.Mutex
	funcTypes map[string]reflect.Type
}

// NewReflectEmitter creates a fresh emitter.
func NewReflectEmitter() *ReflectEmitter {
	return &ReflectEmitter{
		funcTypes: make(map[string]reflect.Type),
	}
}

// Emit builds a GeneratedType for the table. The emitted name is
// namespace-qualified: <namespace>.<targetName>.
func (e *ReflectEmitter) Emit(targetName string, table *MethodTable, namespace string) (*GeneratedType, error) {
	if targetName == "" {
		return nil, fmt.Errorf("%w: empty target name", proxyutils.ErrEmission)
	}
	if table == nil {
		return nil, fmt.Errorf("%w: nil method table", proxyutils.ErrEmission)
	}
	if namespace == "" {
		namespace = defaultNamespace
	}

	methods := make([]emittedMethod, table.Len())
	for i := 0; i < table.Len(); i++ {
		sig := table.Method(i)
		ft, err := e.funcTypeFor(sig)
		if err != nil {
			return nil, err
		}
		methods[i] = emittedMethod{
			sig:      sig,
			funcType: ft,
			errIndex: sig.errResultIndex(),
		}
	}

	return &GeneratedType{
		name:      namespace + "." + targetName,
		namespace: namespace,
		table:     table,
		methods:   methods,
	}, nil
}

func (e *ReflectEmitter) funcTypeFor(sig *MethodSignature) (reflect.Type, error) {
	if sig.Name == "" {
		return nil, fmt.Errorf("%w: method with empty name", proxyutils.ErrEmission)
	}
	for _, pt := range sig.ParamTypes {
		if pt == nil {
			return nil, fmt.Errorf("%w: method %s has a nil parameter type", proxyutils.ErrEmission, sig.Name)
		}
	}
	for _, rt := range sig.ResultTypes {
		if rt == nil {
			return nil, fmt.Errorf("%w: method %s has a nil result type", proxyutils.ErrEmission, sig.Name)
		}
	}
	if sig.Variadic {
		if n := len(sig.ParamTypes); n == 0 || sig.ParamTypes[n-1].Kind() != reflect.Slice {
			return nil, fmt.Errorf("%w: variadic method %s must take a trailing slice parameter", proxyutils.ErrEmission, sig.Name)
		}
	}

	key := sig.Key()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.funcTypes == nil {
		e.funcTypes = make(map[string]reflect.Type)
	}
	if ft, ok := e.funcTypes[key]; ok {
		return ft, nil
	}
	ft := reflect.FuncOf(sig.ParamTypes, sig.ResultTypes, sig.Variadic)
	e.funcTypes[key] = ft
	return ft, nil
}

// Release drops the emitter's func type cache.
func (e *ReflectEmitter) Release() {
	e.mu.Lock()
	e.funcTypes = nil
	e.mu.Unlock()
}
