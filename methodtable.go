// dynproxy: runtime dynamic proxy construction for Go interfaces.
// This file implements the method table builder.
// Copyright (c) 2025 by proxykit. Refer to LICENSE for more information.
package dynproxy

import (
	"fmt"

	"github.com/proxykit/dynamic-proxy/proxyutils"
)

// MethodTable is the deduplicated, index-stable list of methods a generated
// proxy type implements. Indices are assigned at first insertion and never
// change afterwards.
type MethodTable struct {
	methods []*MethodSignature
	index   map[string]int
}

// Len returns the number of table entries.
func (mt *MethodTable) Len() int {
	return len(mt.methods)
}

// Method returns the signature at the given dispatch index.
func (mt *MethodTable) Method(i int) *MethodSignature {
	return mt.methods[i]
}

// Methods returns a snapshot of all table entries in index order.
func (mt *MethodTable) Methods() []*MethodSignature {
	out := make([]*MethodSignature, len(mt.methods))
	copy(out, mt.methods)
	return out
}

// Index returns the dispatch index for a signature equality key.
func (mt *MethodTable) Index(key string) (int, bool) {
	i, ok := mt.index[key]
	return i, ok
}

// BuildMethodTable builds the method table for an ordered interface set and
// resolves the namespace constraint for the generated type.
//
// Interfaces are processed in caller-supplied order, methods in descriptor
// order. Static entries are skipped. Duplicate signatures (same name and
// parameter types, possibly differing result types) are dropped silently,
// first-seen-wins. Non-public interfaces pin the namespace; two non-public
// interfaces from different namespaces fail with ErrConflictingNamespace.
//
// The builder is pure and side-effect free, safe to run outside any lock.
func BuildMethodTable(interfaces []*InterfaceDescriptor) (*MethodTable, string, error) {
	mt := &MethodTable{
		index: make(map[string]int),
	}

	namespace := ""
	for _, desc := range interfaces {
		if !desc.IsPublic {
			if namespace == "" {
				namespace = desc.Namespace
			} else if namespace != desc.Namespace {
				return nil, "", fmt.Errorf("%w: %s vs %s", proxyutils.ErrConflictingNamespace, namespace, desc.Namespace)
			}
		}

		for _, m := range desc.Methods {
			if m.Static {
				continue
			}
			key := m.Key()
			if _, seen := mt.index[key]; seen {
				continue
			}
			mt.index[key] = len(mt.methods)
			mt.methods = append(mt.methods, m)
		}
	}

	if namespace == "" {
		namespace = defaultNamespace
	}

	return mt, namespace, nil
}
