// Package codegen provides ahead-of-time emission of proxy forwarding types
// as Go source. It is the build-time alternative to the reflection-backed
// runtime emitter: the generated type forwards every method call to a
// dynproxy.DispatchHandler with the same boxing and zero-value fallback
// semantics, but is a plain compiled struct.
package codegen

import (
	"fmt"
	"reflect"
	"strings"
)

// Interface is the code generation model of a proxied interface.
type Interface struct {
	PkgPath string
	Name    string
	Imports []string // package paths referenced by method signatures
	Methods []Method
}

// Method describes one interface method with rendered Go type expressions.
type Method struct {
	Name     string
	Params   []string // parameter type expressions
	Results  []string // result type expressions; a trailing "error" is the error result
	Variadic bool
}

// key is the dedup identity: name + parameter types, results excluded.
func (m *Method) key() string {
	return m.Name + "(" + strings.Join(m.Params, ",") + ")"
}

func (m *Method) errResultIndex() int {
	if n := len(m.Results); n > 0 && m.Results[n-1] == "error" {
		return n - 1
	}
	return -1
}

// FromReflect builds an Interface model from a runtime interface type.
// Type expressions qualify every package; use FromReflectFor when generating
// into the same package as some of the referenced types.
func FromReflect(t reflect.Type) (*Interface, error) {
	return FromReflectFor(t, "")
}

// FromReflectFor builds an Interface model for generation into outputPkg.
// Types from outputPkg render unqualified.
func FromReflectFor(t reflect.Type, outputPkg string) (*Interface, error) {
	if t == nil || t.Kind() != reflect.Interface {
		return nil, fmt.Errorf("type %v is not an interface", t)
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return nil, fmt.Errorf("cannot generate source for unnamed interface %v", t)
	}

	model := &Interface{
		PkgPath: t.PkgPath(),
		Name:    t.Name(),
	}
	imports := map[string]bool{}

	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		ft := m.Type

		method := Method{
			Name:     m.Name,
			Variadic: ft.IsVariadic(),
		}
		for j := 0; j < ft.NumIn(); j++ {
			method.Params = append(method.Params, typeExpr(ft.In(j), outputPkg, imports))
		}
		for j := 0; j < ft.NumOut(); j++ {
			method.Results = append(method.Results, typeExpr(ft.Out(j), outputPkg, imports))
		}
		model.Methods = append(model.Methods, method)
	}

	for path := range imports {
		model.Imports = append(model.Imports, path)
	}
	return model, nil
}

// typeExpr renders a Go type expression for t, recording referenced package
// paths. Package references use the path's base name; the imports formatter
// resolves the final spelling. Types from outputPkg render unqualified.
func typeExpr(t reflect.Type, outputPkg string, imports map[string]bool) string {
	if t.Name() != "" {
		if t.PkgPath() == "" {
			return t.Name()
		}
		if t.PkgPath() == outputPkg {
			return t.Name()
		}
		imports[t.PkgPath()] = true
		return pkgBase(t.PkgPath()) + "." + t.Name()
	}

	switch t.Kind() {
	case reflect.Pointer:
		return "*" + typeExpr(t.Elem(), outputPkg, imports)
	case reflect.Slice:
		return "[]" + typeExpr(t.Elem(), outputPkg, imports)
	case reflect.Array:
		return fmt.Sprintf("[%d]%s", t.Len(), typeExpr(t.Elem(), outputPkg, imports))
	case reflect.Map:
		return "map[" + typeExpr(t.Key(), outputPkg, imports) + "]" + typeExpr(t.Elem(), outputPkg, imports)
	case reflect.Chan:
		switch t.ChanDir() {
		case reflect.RecvDir:
			return "<-chan " + typeExpr(t.Elem(), outputPkg, imports)
		case reflect.SendDir:
			return "chan<- " + typeExpr(t.Elem(), outputPkg, imports)
		default:
			return "chan " + typeExpr(t.Elem(), outputPkg, imports)
		}
	case reflect.Func:
		var params, results []string
		for i := 0; i < t.NumIn(); i++ {
			params = append(params, typeExpr(t.In(i), outputPkg, imports))
		}
		for i := 0; i < t.NumOut(); i++ {
			results = append(results, typeExpr(t.Out(i), outputPkg, imports))
		}
		expr := "func(" + strings.Join(params, ", ") + ")"
		if len(results) == 1 {
			expr += " " + results[0]
		} else if len(results) > 1 {
			expr += " (" + strings.Join(results, ", ") + ")"
		}
		return expr
	case reflect.Interface:
		// only the empty interface reaches here unnamed
		return "any"
	default:
		return t.String()
	}
}

func pkgBase(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
