// dynproxy: runtime dynamic proxy construction for Go interfaces.
// This file implements the single-flight proxy type cache.
// Copyright (c) 2025 by proxykit. Refer to LICENSE for more information.
package dynproxy

import (
	"runtime"
	"sync"
	"weak"
)

// cacheEntry is the per-key state machine: pending while one caller
// constructs, ready with a weak handle afterwards. A failed construction
// removes the entry, so absence doubles as the retry state.
type cacheEntry struct {
	pending bool
	ref     weak.Pointer[Proxy]
}

// loaderCache holds the entries of a single loading context. The condition
// variable wakes all waiters on any transition; each waiter re-checks its
// own key.
type loaderCache struct {
	mu      sync.Mutex
	cond    *sync.Cond
	entries map[string]*cacheEntry
}

func newLoaderCache() *loaderCache {
	lc := &loaderCache{
		entries: make(map[string]*cacheEntry),
	}
	lc.cond = sync.NewCond(&lc.mu)
	return lc
}

// ProxyCache guarantees at most one proxy type construction per distinct
// (loader, key) pair, even under concurrent callers. Completed entries are
// weakly held: once no live proxy handle remains, the entry may be collected
// and a later request rebuilds it.
//
// Per-loader caches live in a process-wide registry keyed weakly by loader,
// pruned automatically when a loading context becomes unreachable.
type ProxyCache struct {
	mu     sync.Mutex
	caches map[weak.Pointer[Loader]]*loaderCache
}

// NewProxyCache creates an empty cache registry.
func NewProxyCache() *ProxyCache {
	return &ProxyCache{
		caches: make(map[weak.Pointer[Loader]]*loaderCache),
	}
}

// forLoader resolves or creates the per-loader cache. The registry lock is
// held only for this lookup, never across construction.
func (c *ProxyCache) forLoader(loader *Loader) *loaderCache {
	wk := weak.Make(loader)

	c.mu.Lock()
	defer c.mu.Unlock()

	if lc := c.caches[wk]; lc != nil {
		return lc
	}

	lc := newLoaderCache()
	c.caches[wk] = lc
	runtime.AddCleanup(loader, func(key weak.Pointer[Loader]) {
		c.mu.Lock()
		delete(c.caches, key)
		c.mu.Unlock()
	}, wk)
	return lc
}

// lookupLoader returns the per-loader cache if one exists. Unlike forLoader
// it never creates one, so read-only inspection of an unknown loader leaves
// the registry untouched.
func (c *ProxyCache) lookupLoader(loader *Loader) *loaderCache {
	wk := weak.Make(loader)

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.caches[wk]
}

// GetOrBuild returns the cached proxy for key under loader, constructing it
// via build when absent.
//
// Exactly one caller runs build per key at a time; concurrent callers for the
// same key block cooperatively until the constructing caller finishes, then
// re-check. build runs with no cache lock held, so unrelated keys are never
// blocked by one key's construction. Construction errors are not cached: the
// entry resets and the error surfaces to the requesting caller only. A
// panicking build likewise resets the entry before the panic propagates.
func (c *ProxyCache) GetOrBuild(loader *Loader, key string, build func() (*Proxy, error)) (*Proxy, error) {
	lc := c.forLoader(loader)

	lc.mu.Lock()
	for {
		entry := lc.entries[key]
		if entry == nil {
			lc.entries[key] = &cacheEntry{pending: true}
			break
		}
		if !entry.pending {
			if proxy := entry.ref.Value(); proxy != nil {
				lc.mu.Unlock()
				return proxy, nil
			}
			// Weak handle went stale; rebuild under this caller.
			lc.entries[key] = &cacheEntry{pending: true}
			break
		}
		lc.cond.Wait()
	}
	lc.mu.Unlock()

	var proxy *Proxy
	var err error

	// The transition out of pending runs deferred so a panicking build still
	// resets the entry and wakes waiters instead of wedging them.
	defer func() {
		lc.mu.Lock()
		if proxy != nil && err == nil {
			lc.entries[key] = &cacheEntry{ref: weak.Make(proxy)}
		} else {
			delete(lc.entries, key)
		}
		lc.cond.Broadcast()
		lc.mu.Unlock()
	}()

	proxy, err = build()
	if err != nil {
		return nil, err
	}
	return proxy, nil
}

// Get returns the cached proxy for key under loader without constructing.
func (c *ProxyCache) Get(loader *Loader, key string) (*Proxy, bool) {
	lc := c.lookupLoader(loader)
	if lc == nil {
		return nil, false
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()

	entry := lc.entries[key]
	if entry == nil || entry.pending {
		return nil, false
	}
	proxy := entry.ref.Value()
	return proxy, proxy != nil
}

// Remove drops the entry for key under loader, forcing reconstruction on the
// next request. Pending entries are left alone; their constructor owns the
// transition.
func (c *ProxyCache) Remove(loader *Loader, key string) {
	lc := c.lookupLoader(loader)
	if lc == nil {
		return
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()

	if entry := lc.entries[key]; entry != nil && !entry.pending {
		delete(lc.entries, key)
	}
}

// RemoveAll drops all completed entries for loader.
func (c *ProxyCache) RemoveAll(loader *Loader) {
	lc := c.lookupLoader(loader)
	if lc == nil {
		return
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()

	for key, entry := range lc.entries {
		if !entry.pending {
			delete(lc.entries, key)
		}
	}
}

// CachedKeys returns the keys currently cached for loader, in no particular
// order. Useful for cache inspection and debugging.
func (c *ProxyCache) CachedKeys(loader *Loader) []string {
	lc := c.lookupLoader(loader)
	if lc == nil {
		return nil
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()

	keys := make([]string, 0, len(lc.entries))
	for key := range lc.entries {
		keys = append(keys, key)
	}
	return keys
}
