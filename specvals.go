// dynproxy: runtime dynamic proxy construction for Go interfaces.
// This file is part of the dynproxy package.
// Copyright (c) 2025 by proxykit. Refer to LICENSE for more information.
package dynproxy

import (
	"fmt"

	"github.com/casbin/govaluate"
)

type cachedSpecValue struct {
	resolved bool
	value    uint64
}

// getSpecValue resolves a named numeric spec value. The name may be a plain
// identifier or a govaluate expression over other spec values. Resolution
// results, including misses, are cached per factory.
func (f *ProxyFactory) getSpecValue(name string) (bool, uint64, error) {
	f.specMutex.Lock()
	defer f.specMutex.Unlock()

	if cachedValue := f.specValueCache[name]; cachedValue != nil {
		return cachedValue.resolved, cachedValue.value, nil
	}

	cachedValue := &cachedSpecValue{}
	expression, err := govaluate.NewEvaluableExpression(name)
	if err != nil {
		return false, 0, fmt.Errorf("error parsing spec value expression: %v", err)
	}

	result, err := expression.Evaluate(f.specValues)
	if err == nil {
		switch value := result.(type) {
		case float64:
			cachedValue.resolved = true
			cachedValue.value = uint64(value)
		case uint64:
			cachedValue.resolved = true
			cachedValue.value = value
		case int:
			cachedValue.resolved = true
			cachedValue.value = uint64(value)
		}
	}

	f.specValueCache[name] = cachedValue
	return cachedValue.resolved, cachedValue.value, nil
}
