package gennatives

import (
	"bytes"
	"fmt"
	"go/format"
	"text/template"
)

var tableTemplate = template.Must(template.New("table").Parse(`// Code generated by gennatives from {{.ImportPath}}. DO NOT EDIT.

package {{.Package}}

import (
	pkg "{{.ImportPath}}"

	"github.com/chazu/rasp/internal/engine"
)

// Register adds every native procedure discovered in {{.ImportPath}} to t,
// keyed by function name.
func Register(t *engine.NativeTable) {
{{- range .Funcs}}
	t.Register("{{.Name}}", pkg.{{.Name}})
{{- end}}
}
`))

// GenerateTable renders a Go source file registering every discovered
// native into an engine.NativeTable, under the given generated package
// name.
func GenerateTable(importPath, genPackage string, fns []NativeFunc) (string, error) {
	var buf bytes.Buffer
	data := struct {
		ImportPath string
		Package    string
		Funcs      []NativeFunc
	}{ImportPath: importPath, Package: genPackage, Funcs: fns}

	if err := tableTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering template: %w", err)
	}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("formatting generated source: %w", err)
	}
	return string(formatted), nil
}
