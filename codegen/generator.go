package codegen

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"golang.org/x/tools/imports"
)

// GenerationRequest represents a request to generate one forwarding type for
// an ordered interface set.
type GenerationRequest struct {
	FileName   string
	PkgPath    string // package path the generated file belongs to
	TypeName   string // name of the generated forwarding type
	Interfaces []*Interface
}

// Generator manages batch generation of proxy forwarding types.
type Generator struct {
	requests []*GenerationRequest
}

// NewGenerator creates a new generator instance.
func NewGenerator() *Generator {
	return &Generator{
		requests: make([]*GenerationRequest, 0),
	}
}

// BuildFile queues the generation of a forwarding type for the ordered
// interface set into fileName. An empty typeName defaults to the first
// interface's name with a Proxy suffix.
func (g *Generator) BuildFile(fileName string, pkgPath string, typeName string, ifaces ...*Interface) error {
	if len(ifaces) == 0 {
		return fmt.Errorf("no interfaces requested for %s", fileName)
	}
	if pkgPath == "" {
		return fmt.Errorf("no package path for %s", fileName)
	}
	if typeName == "" {
		typeName = ifaces[0].Name + "Proxy"
	}

	g.requests = append(g.requests, &GenerationRequest{
		FileName:   fileName,
		PkgPath:    pkgPath,
		TypeName:   typeName,
		Interfaces: ifaces,
	})
	return nil
}

var fileTemplate = template.Must(template.New("file").Parse(`// Code generated by dynproxy-gen. DO NOT EDIT.

package {{.PkgName}}

import (
{{- range .Imports}}
	{{.}}
{{- end}}
)

{{.Code}}`))

type fileModel struct {
	PkgName string
	Imports []string
	Code    string
}

// GenerateToMap generates source for all requests and returns it as a map of
// file name to formatted code.
func (g *Generator) GenerateToMap() (map[string]string, error) {
	if len(g.requests) == 0 {
		return nil, fmt.Errorf("no types requested for generation")
	}

	results := make(map[string]string)
	for _, req := range g.requests {
		src, err := g.generateFile(req)
		if err != nil {
			return nil, fmt.Errorf("failed to generate code for %s: %w", req.FileName, err)
		}

		formatted, err := imports.Process(req.FileName, []byte(src), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to format generated code for %s: %w", req.FileName, err)
		}
		results[req.FileName] = string(formatted)
	}
	return results, nil
}

// Generate writes all requested files to disk.
func (g *Generator) Generate() error {
	results, err := g.GenerateToMap()
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}

	for fileName, code := range results {
		dir := filepath.Dir(fileName)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		if err := os.WriteFile(fileName, []byte(code), 0644); err != nil {
			return fmt.Errorf("failed to write code to file %s: %w", fileName, err)
		}
	}
	return nil
}

func (g *Generator) generateFile(req *GenerationRequest) (string, error) {
	importSet := map[string]string{
		"github.com/proxykit/dynamic-proxy": "dynproxy",
	}

	var code strings.Builder
	ifaceNames := make([]string, len(req.Interfaces))
	for i, iface := range req.Interfaces {
		ifaceNames[i] = g.ifaceRef(req, iface, importSet)
		for _, path := range iface.Imports {
			if path != req.PkgPath {
				importSet[path] = ""
			}
		}
	}

	fmt.Fprintf(&code, "// %s forwards %s calls to a dispatch handler.\n", req.TypeName, strings.Join(ifaceNames, ", "))
	fmt.Fprintf(&code, "type %s struct {\n\thandler dynproxy.DispatchHandler\n}\n\n", req.TypeName)

	for _, name := range ifaceNames {
		fmt.Fprintf(&code, "var _ %s = (*%s)(nil)\n", name, req.TypeName)
	}
	code.WriteString("\n")

	fmt.Fprintf(&code, "// New%s returns an instance bound to handler.\n", req.TypeName)
	code.WriteString("// A nil handler binds dynproxy.UnsupportedHandler.\n")
	fmt.Fprintf(&code, "func New%s(handler dynproxy.DispatchHandler) *%s {\n", req.TypeName, req.TypeName)
	code.WriteString("\tif handler == nil {\n\t\thandler = dynproxy.UnsupportedHandler\n\t}\n")
	fmt.Fprintf(&code, "\treturn &%s{handler: handler}\n}\n", req.TypeName)

	// Deduplicate signatures across the ordered interface set and assign
	// stable dispatch indices, first-seen-wins.
	seen := map[string]bool{}
	index := 0
	for _, iface := range req.Interfaces {
		for i := range iface.Methods {
			m := &iface.Methods[i]
			if seen[m.key()] {
				continue
			}
			seen[m.key()] = true

			code.WriteString("\n")
			if err := g.generateMethod(&code, req.TypeName, m, index); err != nil {
				return "", err
			}
			index++
		}
	}

	importLines := make([]string, 0, len(importSet))
	for path, alias := range importSet {
		if alias != "" {
			importLines = append(importLines, fmt.Sprintf("%s %q", alias, path))
		} else {
			importLines = append(importLines, fmt.Sprintf("%q", path))
		}
	}
	sort.Strings(importLines)

	var out strings.Builder
	err := fileTemplate.Execute(&out, fileModel{
		PkgName: pkgBase(req.PkgPath),
		Imports: importLines,
		Code:    code.String(),
	})
	if err != nil {
		return "", err
	}
	return out.String(), nil
}

// ifaceRef renders a reference to the interface type from the generated file.
func (g *Generator) ifaceRef(req *GenerationRequest, iface *Interface, importSet map[string]string) string {
	if iface.PkgPath == "" || iface.PkgPath == req.PkgPath {
		return iface.Name
	}
	importSet[iface.PkgPath] = ""
	return pkgBase(iface.PkgPath) + "." + iface.Name
}

// generateMethod emits one forwarding method: argument boxing, handler
// invocation and return unboxing with zero-value fallback.
func (g *Generator) generateMethod(code *strings.Builder, typeName string, m *Method, index int) error {
	params := make([]string, len(m.Params))
	boxed := make([]string, len(m.Params))
	for i, pt := range m.Params {
		name := fmt.Sprintf("arg%d", i)
		if m.Variadic && i == len(m.Params)-1 {
			if !strings.HasPrefix(pt, "[]") {
				return fmt.Errorf("variadic method %s must take a trailing slice parameter", m.Name)
			}
			pt = "..." + pt[2:]
		}
		params[i] = name + " " + pt
		boxed[i] = name
	}

	errIndex := m.errResultIndex()
	valueType := ""
	for i, rt := range m.Results {
		if i != errIndex {
			valueType = rt
		}
	}
	if count := len(m.Results) - boolToInt(errIndex >= 0); count > 1 {
		return fmt.Errorf("method %s declares %d value results (at most one value result plus a trailing error is supported)", m.Name, count)
	}

	fmt.Fprintf(code, "func (p *%s) %s(%s)", typeName, m.Name, strings.Join(params, ", "))
	switch {
	case len(m.Results) == 1:
		fmt.Fprintf(code, " %s", m.Results[0])
	case len(m.Results) > 1:
		fmt.Fprintf(code, " (%s)", strings.Join(m.Results, ", "))
	}
	code.WriteString(" {\n")

	invoke := fmt.Sprintf("p.handler.Invoke(p, %d, []any{%s})", index, strings.Join(boxed, ", "))

	switch {
	case valueType == "" && errIndex < 0:
		// void with no declared failure contract
		fmt.Fprintf(code, "\tif _, err := %s; err != nil {\n\t\tpanic(err)\n\t}\n", invoke)
	case valueType == "":
		fmt.Fprintf(code, "\t_, err := %s\n\treturn err\n", invoke)
	case errIndex < 0:
		fmt.Fprintf(code, "\tret, err := %s\n", invoke)
		code.WriteString("\tif err != nil {\n\t\tpanic(err)\n\t}\n")
		fmt.Fprintf(code, "\tif ret == nil {\n\t\tvar zero %s\n\t\treturn zero\n\t}\n", valueType)
		fmt.Fprintf(code, "\treturn ret.(%s)\n", valueType)
	default:
		fmt.Fprintf(code, "\tret, err := %s\n", invoke)
		fmt.Fprintf(code, "\tif err != nil {\n\t\tvar zero %s\n\t\treturn zero, err\n\t}\n", valueType)
		fmt.Fprintf(code, "\tif ret == nil {\n\t\tvar zero %s\n\t\treturn zero, nil\n\t}\n", valueType)
		fmt.Fprintf(code, "\treturn ret.(%s), nil\n", valueType)
	}

	code.WriteString("}\n")
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
