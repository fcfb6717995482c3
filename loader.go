// dynproxy: runtime dynamic proxy construction for Go interfaces.
// This file implements loading contexts.
// Copyright (c) 2025 by proxykit. Refer to LICENSE for more information.
package dynproxy

import (
	"fmt"
	"reflect"
	"sync"
)

// Loader is a loading context: the isolation boundary under which type
// identities are resolved. It maps qualified type names to reflect.Type.
//
// Resolution is load-or-store: resolving a name that is not yet bound binds
// the requesting type. A name already bound to a different type is the
// shadowing case and fails identity validation in the proxy factory.
type Loader struct {
	name  string
	mu    sync.RWMutex
	types map[string]reflect.Type
}

// NewLoader creates an empty loading context with the given name.
func NewLoader(name string) *Loader {
	return &Loader{
		name:  name,
		types: make(map[string]reflect.Type),
	}
}

// Name returns the loader's name.
func (l *Loader) Name() string {
	return l.name
}

// Register binds t's qualified name to t. Registration is idempotent;
// binding a name already held by a different type is an error.
func (l *Loader) Register(t reflect.Type) error {
	name := TypeName(t)

	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.types[name]; ok && existing != t {
		return fmt.Errorf("loader %q: %s already bound to a different type", l.name, name)
	}
	l.types[name] = t
	return nil
}

// Resolve returns the type bound to qualifiedName, if any.
func (l *Loader) Resolve(qualifiedName string) (reflect.Type, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	t, ok := l.types[qualifiedName]
	return t, ok
}

// load resolves name, binding candidate when the name is absent.
// Returns the type the name is bound to after the call.
func (l *Loader) load(name string, candidate reflect.Type) reflect.Type {
	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.types[name]; ok {
		return existing
	}
	l.types[name] = candidate
	return candidate
}

var (
	defaultLoader     *Loader
	defaultLoaderOnce sync.Once
)

// DefaultLoader returns the process-wide default loading context.
func DefaultLoader() *Loader {
	defaultLoaderOnce.Do(func() {
		defaultLoader = NewLoader("default")
	})
	return defaultLoader
}
