package gen

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed runtime.py.tmpl stub.pyi.tmpl
var pyTemplates embed.FS

var pyFuncs = template.FuncMap{
	"lits":      pathLiterals,
	"pushUnion": pushUnion,
}

var runtimeTmpl = template.Must(
	template.New("runtime.py.tmpl").Funcs(pyFuncs).ParseFS(pyTemplates, "runtime.py.tmpl"),
)

var stubTmpl = template.Must(
	template.New("stub.pyi.tmpl").Funcs(pyFuncs).ParseFS(pyTemplates, "stub.pyi.tmpl"),
)

// renderPython renders the runtime .py and type-only .pyi declarations.
// Both templates consume the same prepared structure, so the two artifacts
// cannot drift apart.
func renderPython(p *prepared) ([]byte, []byte, error) {
	var runtime bytes.Buffer
	if err := runtimeTmpl.Execute(&runtime, p); err != nil {
		return nil, nil, fmt.Errorf("failed to render runtime declarations: %w", err)
	}

	var stub bytes.Buffer
	if err := stubTmpl.Execute(&stub, p); err != nil {
		return nil, nil, fmt.Errorf("failed to render stub declarations: %w", err)
	}

	return runtime.Bytes(), stub.Bytes(), nil
}

// pathLiterals renders a Literal[...] argument list.
func pathLiterals(decls []PathDecl) string {
	parts := make([]string, len(decls))
	for i, d := range decls {
		parts[i] = fmt.Sprintf("%q", d.Path)
	}
	return strings.Join(parts, ", ")
}

// pushUnion renders the union of element types accepted by $push.
func pushUnion(decls []PathDecl) string {
	var parts []string
	seen := make(map[string]bool)

	for _, d := range decls {
		if d.PushValue == "" || seen[d.PushValue] {
			continue
		}
		seen[d.PushValue] = true
		parts = append(parts, d.PushValue)
	}

	if len(parts) == 0 {
		return "Any"
	}
	return strings.Join(parts, " | ")
}
