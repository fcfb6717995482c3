// Copyright (c) 2025 proxykit
// SPDX-License-Identifier: Apache-2.0
// This file is part of the dynamic-proxy library.

package dynproxy

import (
	"reflect"
	"sync"
)

var (
	globalFactory *ProxyFactory
	globalMutex   sync.Mutex
)

// GetGlobalFactory returns the process-wide default factory, creating it on
// first use.
func GetGlobalFactory() *ProxyFactory {
	globalMutex.Lock()
	defer globalMutex.Unlock()

	if globalFactory == nil {
		globalFactory = NewProxyFactory(nil)
	}
	return globalFactory
}

// SetGlobalSpecs replaces the global factory with one configured by specs.
func SetGlobalSpecs(specs map[string]any) {
	globalMutex.Lock()
	defer globalMutex.Unlock()

	globalFactory = NewProxyFactory(specs)
}

// GetProxy returns a proxy handle for the ordered interface set using the
// global factory and the default loading context.
func GetProxy(interfaces ...reflect.Type) (*Proxy, error) {
	return GetGlobalFactory().GetProxy(DefaultLoader(), interfaces...)
}
