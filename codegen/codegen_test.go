package codegen

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

type StringSource interface {
	Get(key string) (string, error)
	List(prefix string, limit int) []string
	Reset()
	Sum(vals ...int) int
	Wait(d time.Duration) error
}

type Resettable interface {
	Reset()
}

const testPkgPath = "github.com/proxykit/dynamic-proxy/codegen"

func stringSourceModel(t *testing.T) *Interface {
	t.Helper()

	model, err := FromReflectFor(reflect.TypeOf((*StringSource)(nil)).Elem(), testPkgPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return model
}

func TestFromReflect(t *testing.T) {
	model := stringSourceModel(t)

	if model.Name != "StringSource" {
		t.Errorf("unexpected name: %q", model.Name)
	}
	if model.PkgPath != testPkgPath {
		t.Errorf("unexpected package path: %q", model.PkgPath)
	}
	if len(model.Methods) != 5 {
		t.Fatalf("expected 5 methods, got %d", len(model.Methods))
	}

	byName := map[string]*Method{}
	for i := range model.Methods {
		byName[model.Methods[i].Name] = &model.Methods[i]
	}

	get := byName["Get"]
	if got := get.key(); got != "Get(string)" {
		t.Errorf("unexpected key: %q", got)
	}
	if got := get.errResultIndex(); got != 1 {
		t.Errorf("expected error result at index 1, got %d", got)
	}

	list := byName["List"]
	if len(list.Params) != 2 || list.Params[0] != "string" || list.Params[1] != "int" {
		t.Errorf("unexpected List params: %v", list.Params)
	}
	if len(list.Results) != 1 || list.Results[0] != "[]string" {
		t.Errorf("unexpected List results: %v", list.Results)
	}
	if got := list.errResultIndex(); got != -1 {
		t.Errorf("expected no error result, got index %d", got)
	}

	sum := byName["Sum"]
	if !sum.Variadic || len(sum.Params) != 1 || sum.Params[0] != "[]int" {
		t.Errorf("unexpected Sum shape: params=%v variadic=%v", sum.Params, sum.Variadic)
	}

	wait := byName["Wait"]
	if len(wait.Params) != 1 || wait.Params[0] != "time.Duration" {
		t.Errorf("unexpected Wait params: %v", wait.Params)
	}
	found := false
	for _, path := range model.Imports {
		if path == "time" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected time import, got %v", model.Imports)
	}
}

func TestFromReflect_Rejections(t *testing.T) {
	if _, err := FromReflect(reflect.TypeOf(0)); err == nil {
		t.Error("expected error for non-interface type")
	}
	if _, err := FromReflect(reflect.TypeOf((*interface{ Do() })(nil)).Elem()); err == nil {
		t.Error("expected error for unnamed interface")
	}
}

func TestGenerator_GenerateToMap(t *testing.T) {
	model := stringSourceModel(t)

	generator := NewGenerator()
	if err := generator.BuildFile("string_source_proxy.go", testPkgPath, "", model); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := generator.GenerateToMap()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	code, ok := results["string_source_proxy.go"]
	if !ok {
		t.Fatal("expected generated file in results")
	}

	for _, want := range []string{
		"// Code generated by dynproxy-gen. DO NOT EDIT.",
		"package codegen",
		"type StringSourceProxy struct",
		"var _ StringSource = (*StringSourceProxy)(nil)",
		"func NewStringSourceProxy(handler dynproxy.DispatchHandler) *StringSourceProxy",
		"func (p *StringSourceProxy) Get(arg0 string) (string, error)",
		"func (p *StringSourceProxy) Reset()",
		"func (p *StringSourceProxy) Sum(arg0 ...int) int",
		"p.handler.Invoke(p, 0, []any{arg0})",
		"var zero string",
	} {
		if !strings.Contains(code, want) {
			t.Errorf("generated code missing %q\n%s", want, code)
		}
	}
}

func TestGenerator_DedupAcrossInterfaces(t *testing.T) {
	source := stringSourceModel(t)
	resettable, err := FromReflectFor(reflect.TypeOf((*Resettable)(nil)).Elem(), testPkgPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	generator := NewGenerator()
	if err := generator.BuildFile("combined.go", testPkgPath, "Combined", source, resettable); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := generator.GenerateToMap()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	code := results["combined.go"]

	if got := strings.Count(code, "func (p *Combined) Reset()"); got != 1 {
		t.Errorf("expected one Reset method after dedup, got %d", got)
	}
	if !strings.Contains(code, "var _ Resettable = (*Combined)(nil)") {
		t.Error("expected interface assertion for every requested interface")
	}
}

func TestGenerator_Generate(t *testing.T) {
	model := stringSourceModel(t)
	path := filepath.Join(t.TempDir(), "gen", "string_source_proxy.go")

	generator := NewGenerator()
	if err := generator.BuildFile(path, testPkgPath, "", model); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := generator.Generate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected generated file on disk: %v", err)
	}
	if !strings.Contains(string(data), "type StringSourceProxy struct") {
		t.Error("generated file missing proxy type")
	}
}

func TestGenerator_BuildFileValidation(t *testing.T) {
	generator := NewGenerator()

	if err := generator.BuildFile("out.go", testPkgPath, ""); err == nil {
		t.Error("expected error for empty interface set")
	}
	if err := generator.BuildFile("out.go", "", "", &Interface{Name: "X"}); err == nil {
		t.Error("expected error for empty package path")
	}
	if _, err := NewGenerator().GenerateToMap(); err == nil {
		t.Error("expected error when nothing was requested")
	}
}
