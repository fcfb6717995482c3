// dynproxy: runtime dynamic proxy construction for Go interfaces.
// This file is part of the dynproxy package.
// Copyright (c) 2025 by proxykit. Refer to LICENSE for more information.
package dynproxy

import (
	"reflect"
	"sync/atomic"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// proxyTypeCounter assigns monotonic ids to generated proxy type names.
var proxyTypeCounter atomic.Int64

const (
	// DefaultMaxProxyCount bounds the number of interfaces in a single
	// proxy request unless overridden via the MAX_PROXY_COUNT spec value.
	DefaultMaxProxyCount = 65535

	// defaultNamespace is used for generated type names when all requested
	// interfaces are public.
	defaultNamespace = "github.com/proxykit/dynamic-proxy"

	// keySeparator joins qualified interface names into cache keys.
	// Not a valid character in a qualified type name.
	keySeparator = ';'
)
