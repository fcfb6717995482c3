// Package dynproxy provides runtime dynamic proxy construction for Go
// interfaces. Given an ordered set of interface types, it produces a single
// generated forwarding type that implements all of their methods and routes
// every call to one caller-supplied dispatch handler, the way RPC frameworks
// turn a local method call into a remote invocation without ahead-of-time
// client code.
//
// Generated types are cached per loading context with single-flight
// construction: at most one type is ever built per distinct ordered interface
// set, even under concurrent callers, and completed entries are weakly held
// so unused types can be collected and rebuilt on demand.
//
// Copyright (c) 2025 by proxykit. Refer to LICENSE for more information.
package dynproxy

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/proxykit/dynamic-proxy/proxyutils"
)

// ProxyFactory is the public entry point: it orchestrates descriptor lookup,
// cache key canonicalization, cached single-flight construction and instance
// creation.
//
// The factory maintains caches for generated types and named spec values.
// Reuse one factory across operations to benefit from caching; all methods
// are safe for concurrent use.
type ProxyFactory struct {
	provider       DescriptorProvider
	emitterFactory func() TypeEmitter
	cache          *ProxyCache
	maxProxyCount  int

	specValues     map[string]any
	specMutex      sync.Mutex
	specValueCache map[string]*cachedSpecValue

	// Verbose enables detailed logging of proxy construction.
	// Useful for debugging but noisy.
	Verbose bool
}

// NewProxyFactory creates a factory configured by named spec values.
//
// The specs map holds dynamic configuration values. MAX_PROXY_COUNT bounds
// the number of interfaces per request (DefaultMaxProxyCount when absent);
// values may be plain numbers or govaluate expressions over other spec
// values. Pass nil for defaults.
func NewProxyFactory(specs map[string]any) *ProxyFactory {
	if specs == nil {
		specs = map[string]any{}
	}

	f := &ProxyFactory{
		provider:       ReflectDescriptorProvider{},
		emitterFactory: func() TypeEmitter { return NewReflectEmitter() },
		cache:          NewProxyCache(),
		maxProxyCount:  DefaultMaxProxyCount,
		specValues:     specs,
		specValueCache: map[string]*cachedSpecValue{},
	}

	if ok, value, err := f.getSpecValue("MAX_PROXY_COUNT"); err != nil {
		Logger().Warn("failed to resolve MAX_PROXY_COUNT spec value",
			zap.Error(err))
	} else if ok && value > 0 {
		f.maxProxyCount = int(value)
	} else if _, present := specs["MAX_PROXY_COUNT"]; present {
		Logger().Warn("MAX_PROXY_COUNT spec value is not a positive number, using default",
			zap.Int("default", DefaultMaxProxyCount))
	}

	return f
}

// SetDescriptorProvider replaces the descriptor provider. Must be called
// before the first GetProxy.
func (f *ProxyFactory) SetDescriptorProvider(p DescriptorProvider) {
	f.provider = p
}

// SetEmitterFactory replaces the per-construction type emitter factory.
// Must be called before the first GetProxy.
func (f *ProxyFactory) SetEmitterFactory(fn func() TypeEmitter) {
	f.emitterFactory = fn
}

// MaxProxyCount returns the configured interface count limit.
func (f *ProxyFactory) MaxProxyCount() int {
	return f.maxProxyCount
}

// GetProxyCache returns the factory's proxy type cache, for inspection and
// cache management.
func (f *ProxyFactory) GetProxyCache() *ProxyCache {
	return f.cache
}

// GetProxy returns the proxy handle for the ordered interface set under
// loader, constructing the generated type on first request.
//
// Order is part of identity: the same interfaces in a different order yield a
// different generated type. A nil loader uses the default loading context.
//
// Validation errors (ErrNotAnInterface, ErrTypeIdentity, ErrLimitExceeded)
// are detected before any cache interaction. Construction errors surface to
// the requesting caller only and are never cached.
func (f *ProxyFactory) GetProxy(loader *Loader, interfaces ...reflect.Type) (*Proxy, error) {
	if loader == nil {
		loader = DefaultLoader()
	}
	if len(interfaces) == 0 {
		return nil, fmt.Errorf("dynproxy: no interfaces supplied")
	}
	if len(interfaces) > f.maxProxyCount {
		return nil, fmt.Errorf("%w: %d interfaces requested, limit is %d", proxyutils.ErrLimitExceeded, len(interfaces), f.maxProxyCount)
	}

	descriptors := make([]*InterfaceDescriptor, len(interfaces))
	var keyBuilder strings.Builder
	for i, ic := range interfaces {
		desc, err := f.provider.Describe(ic, loader)
		if err != nil {
			return nil, err
		}

		bound := loader.load(desc.QualifiedName, ic)
		if !f.provider.SameIdentity(bound, ic) {
			return nil, fmt.Errorf("%w: %s is shadowed in loader %q", proxyutils.ErrTypeIdentity, desc.QualifiedName, loader.Name())
		}

		descriptors[i] = desc
		keyBuilder.WriteString(desc.QualifiedName)
		keyBuilder.WriteByte(keySeparator)
	}
	key := keyBuilder.String()

	return f.cache.GetOrBuild(loader, key, func() (*Proxy, error) {
		return f.buildProxy(key, descriptors)
	})
}

// buildProxy runs the method table builder and the type emitter for one cache
// key. It executes outside the cache lock.
func (f *ProxyFactory) buildProxy(key string, descriptors []*InterfaceDescriptor) (*Proxy, error) {
	table, namespace, err := BuildMethodTable(descriptors)
	if err != nil {
		return nil, err
	}

	id := proxyTypeCounter.Add(1) - 1
	targetName := fmt.Sprintf("proxy%d", id)

	emitter := f.emitterFactory()
	defer emitter.Release()

	generated, err := emitter.Emit(targetName, table, namespace)
	if err != nil {
		Logger().Debug("proxy type emission failed",
			zap.String("key", key),
			zap.Error(err))
		return nil, err
	}

	if f.Verbose {
		Logger().Debug("emitted proxy type",
			zap.String("type", generated.Name()),
			zap.String("key", key),
			zap.Int("methods", table.Len()))
	}

	return &Proxy{typ: generated}, nil
}
