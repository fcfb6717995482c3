package proxyutils

import (
	"fmt"
	"reflect"
)

// IsValueKind reports whether t is a value-category kind (numeric, boolean or
// character). Boxed results of these kinds fall back to the kind's zero value
// when the dispatch handler returns an absent result.
func IsValueKind(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return true
	default:
		return false
	}
}

// BoxValue converts a declared-type argument into its uniform boxed
// representation before it crosses the forwarding boundary.
func BoxValue(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}

// BoxArgs boxes a full argument list.
func BoxArgs(args []reflect.Value) []any {
	boxed := make([]any, len(args))
	for i, arg := range args {
		boxed[i] = BoxValue(arg)
	}
	return boxed
}

// UnboxValue converts a boxed handler result back into the declared type t.
//
// Value-category types convert through their boxed counterpart with a zero
// value fallback when the boxed value is absent, so handlers never need to
// special-case absent results for primitive-typed returns. All other types
// pass through a type-check-and-cast with no fallback; an absent value for a
// non-value-category type yields the type's zero value unchanged.
func UnboxValue(boxed any, t reflect.Type) (reflect.Value, error) {
	if boxed == nil {
		return reflect.Zero(t), nil
	}

	rv := reflect.ValueOf(boxed)
	if rv.Type() == t {
		return rv, nil
	}

	if IsValueKind(t) {
		if !IsValueKind(rv.Type()) || !rv.Type().ConvertibleTo(t) {
			return reflect.Value{}, fmt.Errorf("cannot unbox %v into value type %v", rv.Type(), t)
		}
		return rv.Convert(t), nil
	}

	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("cannot unbox %v into %v", rv.Type(), t)
	}
	return rv, nil
}
