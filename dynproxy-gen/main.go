package main

import (
	"flag"
	"fmt"
	"go/types"
	"log"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/proxykit/dynamic-proxy/codegen"
)

func main() {
	var (
		packagePath = flag.String("package", "", "Go package path to analyze")
		ifaceNames  = flag.String("interfaces", "", "Comma-separated list of interface names to generate a proxy for")
		outputFile  = flag.String("output", "", "Output file path for generated code")
		outputPkg   = flag.String("outpkg", "", "Package path of the generated file (defaults to the analyzed package)")
		typeName    = flag.String("type", "", "Name of the generated forwarding type (defaults to <first interface>Proxy)")
		verbose     = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if *packagePath == "" {
		log.Fatal("Package path is required (-package)")
	}
	if *ifaceNames == "" {
		log.Fatal("Interface names are required (-interfaces)")
	}
	if *outputFile == "" {
		log.Fatal("Output file is required (-output)")
	}

	if *verbose {
		log.Printf("Analyzing package: %s", *packagePath)
		log.Printf("Looking for interfaces: %s", *ifaceNames)
		log.Printf("Output file: %s", *outputFile)
	}

	cfg := &packages.Config{
		Mode: packages.NeedTypes | packages.NeedTypesInfo | packages.NeedSyntax | packages.NeedName,
	}

	pkgs, err := packages.Load(cfg, *packagePath)
	if err != nil {
		log.Fatalf("Failed to load package %s: %v", *packagePath, err)
	}
	if len(pkgs) == 0 {
		log.Fatalf("No packages found for %s", *packagePath)
	}

	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		for _, err := range pkg.Errors {
			log.Printf("Package error: %v", err)
		}
		log.Fatalf("Package %s has errors", *packagePath)
	}

	if *verbose {
		log.Printf("Successfully loaded package: %s", pkg.Name)
	}

	outPkgPath := *outputPkg
	if outPkgPath == "" {
		outPkgPath = pkg.Types.Path()
	}

	requested := strings.Split(*ifaceNames, ",")
	models := make([]*codegen.Interface, 0, len(requested))
	scope := pkg.Types.Scope()

	for _, name := range requested {
		name = strings.TrimSpace(name)

		obj := scope.Lookup(name)
		if obj == nil {
			log.Fatalf("Interface %s not found in package %s", name, *packagePath)
		}
		typeObj, ok := obj.(*types.TypeName)
		if !ok {
			log.Fatalf("Object %s is not a type in package %s", name, *packagePath)
		}
		ifaceType, ok := typeObj.Type().Underlying().(*types.Interface)
		if !ok {
			log.Fatalf("Type %s is not an interface in package %s", name, *packagePath)
		}

		models = append(models, buildModel(pkg.Types.Path(), name, ifaceType, outPkgPath))
		if *verbose {
			log.Printf("Found interface: %s (%d methods)", name, ifaceType.NumMethods())
		}
	}

	generator := codegen.NewGenerator()
	if err := generator.BuildFile(*outputFile, outPkgPath, *typeName, models...); err != nil {
		log.Fatalf("Failed to queue generation: %v", err)
	}

	if *verbose {
		log.Printf("Generating code...")
	}
	if err := generator.Generate(); err != nil {
		log.Fatalf("Failed to generate code: %v", err)
	}

	fmt.Printf("Generated proxy code for %d interfaces in %s\n", len(models), *outputFile)
}

// buildModel converts a go/types interface into the codegen model, recording
// package paths referenced by the method signatures.
func buildModel(pkgPath, name string, iface *types.Interface, outPkgPath string) *codegen.Interface {
	model := &codegen.Interface{
		PkgPath: pkgPath,
		Name:    name,
	}
	importSet := map[string]bool{}

	qualifier := func(p *types.Package) string {
		if p.Path() == outPkgPath {
			return ""
		}
		importSet[p.Path()] = true
		return p.Name()
	}

	for i := 0; i < iface.NumMethods(); i++ {
		fn := iface.Method(i)
		sig := fn.Type().(*types.Signature)

		method := codegen.Method{
			Name:     fn.Name(),
			Variadic: sig.Variadic(),
		}
		for j := 0; j < sig.Params().Len(); j++ {
			method.Params = append(method.Params, types.TypeString(sig.Params().At(j).Type(), qualifier))
		}
		for j := 0; j < sig.Results().Len(); j++ {
			method.Results = append(method.Results, types.TypeString(sig.Results().At(j).Type(), qualifier))
		}
		model.Methods = append(model.Methods, method)
	}

	for path := range importSet {
		model.Imports = append(model.Imports, path)
	}
	return model
}
