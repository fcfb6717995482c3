// dynproxy: runtime dynamic proxy construction for Go interfaces.
// This file implements interface descriptors and the reflection-backed
// descriptor provider.
// Copyright (c) 2025 by proxykit. Refer to LICENSE for more information.
package dynproxy

import (
	"fmt"
	"go/token"
	"reflect"
	"strings"

	"github.com/proxykit/dynamic-proxy/proxyutils"
)

// MethodSignature is the static description of a single interface method.
// Two signatures are equal iff name and parameter type sequence match; result
// types do not participate in equality (overload identity, not full signature
// identity).
type MethodSignature struct {
	Name        string
	ParamTypes  []reflect.Type
	ResultTypes []reflect.Type
	Variadic    bool

	// Static marks class-level operations on hand-built descriptors.
	// Static entries are excluded from method tables. Reflection-derived
	// descriptors never produce them.
	Static bool
}

// Key returns the signature's equality key.
func (m *MethodSignature) Key() string {
	var sb strings.Builder
	sb.WriteString(m.Name)
	sb.WriteByte('(')
	for i, pt := range m.ParamTypes {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(pt.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// errResultIndex returns the index of the trailing error result, or -1.
func (m *MethodSignature) errResultIndex() int {
	if n := len(m.ResultTypes); n > 0 && m.ResultTypes[n-1] == errorType {
		return n - 1
	}
	return -1
}

// InterfaceDescriptor is the static description of an interface type:
// its qualified name, declared method signatures and visibility.
// Immutable once obtained.
type InterfaceDescriptor struct {
	QualifiedName string
	Methods       []*MethodSignature
	IsPublic      bool
	Namespace     string
	Type          reflect.Type
}

// DescriptorProvider yields interface descriptors for type identities and
// decides whether two resolved identities are the same type.
type DescriptorProvider interface {
	// Describe returns the descriptor for t as seen under loader.
	Describe(t reflect.Type, loader *Loader) (*InterfaceDescriptor, error)

	// SameIdentity reports whether a and b are the identical type.
	SameIdentity(a, b reflect.Type) bool
}

// ReflectDescriptorProvider is the default DescriptorProvider, backed by
// runtime reflection over reflect.Type.
type ReflectDescriptorProvider struct{}

// Describe builds a descriptor for the interface type t.
//
// Visibility maps to Go exportedness of the interface name; the namespace is
// the interface's package path. Methods are emitted in reflect.Type order,
// which is deterministic for a given type.
func (ReflectDescriptorProvider) Describe(t reflect.Type, _ *Loader) (*InterfaceDescriptor, error) {
	if t == nil || t.Kind() != reflect.Interface {
		return nil, fmt.Errorf("%w: %v", proxyutils.ErrNotAnInterface, t)
	}

	desc := &InterfaceDescriptor{
		QualifiedName: TypeName(t),
		IsPublic:      t.Name() == "" || token.IsExported(t.Name()),
		Namespace:     t.PkgPath(),
		Type:          t,
		Methods:       make([]*MethodSignature, 0, t.NumMethod()),
	}

	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		ft := m.Type

		sig := &MethodSignature{
			Name:        m.Name,
			ParamTypes:  make([]reflect.Type, ft.NumIn()),
			ResultTypes: make([]reflect.Type, ft.NumOut()),
			Variadic:    ft.IsVariadic(),
		}
		for j := 0; j < ft.NumIn(); j++ {
			sig.ParamTypes[j] = ft.In(j)
		}
		for j := 0; j < ft.NumOut(); j++ {
			sig.ResultTypes[j] = ft.Out(j)
		}

		if err := validateResultShape(sig); err != nil {
			return nil, fmt.Errorf("interface %s: %w", desc.QualifiedName, err)
		}

		desc.Methods = append(desc.Methods, sig)
	}

	return desc, nil
}

// SameIdentity compares reflect.Type identities directly.
func (ReflectDescriptorProvider) SameIdentity(a, b reflect.Type) bool {
	return a == b
}

// validateResultShape restricts methods to the forwarding model: at most one
// value result, plus an optional trailing error result.
func validateResultShape(sig *MethodSignature) error {
	values := 0
	for i, rt := range sig.ResultTypes {
		if rt == errorType && i == len(sig.ResultTypes)-1 {
			continue
		}
		values++
	}
	if values > 1 {
		return fmt.Errorf("method %s declares %d value results (at most one value result plus a trailing error is supported)", sig.Name, values)
	}
	return nil
}

// TypeName returns the fully qualified name of t.
func TypeName(t reflect.Type) string {
	if t.PkgPath() != "" && t.Name() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}
