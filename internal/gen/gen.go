// Package gen renders the enumerated schemas into the generated output
// artifacts.
package gen

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-openapi/inflect"
	"github.com/jkarvonen/mongotype/internal/model"
	"github.com/jkarvonen/mongotype/internal/ops"
	"github.com/jkarvonen/mongotype/internal/paths"
)

const (
	TargetPython = "python"
	TargetGo     = "go"
)

// Input is one successfully extracted and enumerated model.
type Input struct {
	Schema *model.Schema
	Paths  []paths.Path
}

type Options struct {
	// OutputPath is the base output path; the extension is replaced per
	// target (.py/.pyi for python, .go for go).
	OutputPath string
	Targets    []string
	GoPackage  string
}

// DuplicateModelNameError reports a collision between generated public
// names derived from two models.
type DuplicateModelNameError struct {
	Name   string
	Models []string
}

func (e *DuplicateModelNameError) Error() string {
	return fmt.Sprintf(`models %s both generate the name "%s"`, strings.Join(e.Models, " and "), e.Name)
}

// Model is the prepared render input for one model. It is built in a
// single pass and consumed verbatim by every emission target, which is
// what keeps the runtime and type-only artifacts in lockstep.
type Model struct {
	Name       string
	Collection string

	PathType        string
	QueryType       string
	UpdateType      string
	FieldsType      string
	PathsConst      string
	CollectionConst string

	Fields []DocField
	Paths  []PathDecl

	// Update-shape slices, derived from the same PathDecl set.
	IncPaths  []PathDecl
	ListPaths []PathDecl
}

// DocField is one top-level field of the generated document shape.
type DocField struct {
	Name     string
	PyType   string
	Optional bool
}

// PathDecl is one dotted path with everything the emitters print for it.
type PathDecl struct {
	Path   string
	GoName string
	Shape  ops.Shape

	// PyType is the exact value type; StubValue is the operator union
	// used in the query shape; PushValue is the element type for list
	// paths.
	PyType    string
	StubValue string
	PushValue string
}

// Generate renders every requested target and writes all output files
// atomically. Nothing is written when preparation fails.
func Generate(inputs []Input, opts Options) ([]string, error) {
	p, err := prepare(inputs)
	if err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(opts.OutputPath, filepath.Ext(opts.OutputPath))
	outputs := make([]output, 0, 3)

	for _, target := range opts.Targets {
		switch target {
		case TargetPython:
			runtime, stub, err := renderPython(p)
			if err != nil {
				return nil, err
			}
			outputs = append(outputs,
				output{path: base + ".py", data: runtime},
				output{path: base + ".pyi", data: stub},
			)
		case TargetGo:
			pkg := opts.GoPackage
			if pkg == "" {
				pkg = goPackageName(base)
			}
			code, err := renderGo(p, pkg)
			if err != nil {
				return nil, err
			}
			outputs = append(outputs, output{path: base + ".go", data: code})
		default:
			return nil, fmt.Errorf(`unknown generation target "%s"`, target)
		}
	}

	if err := writeOutputs(outputs); err != nil {
		return nil, err
	}

	written := make([]string, len(outputs))
	for i, o := range outputs {
		written[i] = o.path
	}
	return written, nil
}

type prepared struct {
	Models []*Model

	NeedsDatetime    bool
	NeedsObjectID    bool
	NeedsNotRequired bool
}

func prepare(inputs []Input) (*prepared, error) {
	p := &prepared{}

	known := make(map[string]bool)
	for _, in := range inputs {
		known[in.Schema.Name] = true
	}

	ownedNames := make(map[string]string)
	for _, in := range inputs {
		m, err := p.prepareModel(in, known)
		if err != nil {
			return nil, err
		}

		// Covers the names of every target, so a collision fails the
		// batch no matter which targets were requested.
		for _, name := range []string{
			m.Name, m.PathType, m.QueryType, m.UpdateType,
			m.FieldsType, m.PathsConst, m.CollectionConst,
			m.Name + "Paths", m.Name + "Collection",
		} {
			if owner, ok := ownedNames[name]; ok && owner != m.Name {
				return nil, &DuplicateModelNameError{
					Name:   name,
					Models: []string{owner, m.Name},
				}
			}
			ownedNames[name] = m.Name
		}

		p.Models = append(p.Models, m)
	}

	return p, nil
}

func (p *prepared) prepareModel(in Input, known map[string]bool) (*Model, error) {
	s := in.Schema

	m := &Model{
		Name:            s.Name,
		Collection:      s.Collection,
		PathType:        s.Name + "Path",
		QueryType:       s.Name + "Query",
		UpdateType:      s.Name + "Update",
		FieldsType:      s.Name + "Fields",
		PathsConst:      constName(s.Name) + "_PATHS",
		CollectionConst: constName(s.Name) + "_COLLECTION",
	}

	if _, ok := s.Field(s.IDField); !ok {
		m.Fields = append(m.Fields, DocField{
			Name:   s.IDField,
			PyType: p.pyType(&model.Type{Kind: model.KindObjectID}, known),
		})
	}
	for _, f := range s.Fields {
		optional := f.Type.Nullable || f.HasDefault
		if optional {
			p.NeedsNotRequired = true
		}
		m.Fields = append(m.Fields, DocField{
			Name:     f.Name,
			PyType:   p.pyType(f.Type, known),
			Optional: optional,
		})
	}

	goNames := make(map[string]bool)
	for _, path := range in.Paths {
		d := PathDecl{
			Path:   path.String(),
			GoName: uniqueGoName(goNames, path.Segments),
			Shape:  ops.ForPath(path),
		}

		d.PyType = p.pyLeafType(path, known)
		d.StubValue = p.stubValue(path, d.Shape, known)
		if path.Leaf.Kind == model.KindList {
			d.PushValue = p.pyType(path.Leaf.Elem, known)
		}

		m.Paths = append(m.Paths, d)

		for _, op := range d.Shape.Update {
			switch op {
			case ops.OpInc:
				m.IncPaths = append(m.IncPaths, d)
			case ops.OpPush:
				m.ListPaths = append(m.ListPaths, d)
			}
		}
	}

	return m, nil
}

// pyType renders the exact Python value type of a descriptor.
func (p *prepared) pyType(t *model.Type, known map[string]bool) string {
	src := p.corePyType(t, known)
	if t.Nullable && !strings.HasSuffix(src, "| None") {
		src += " | None"
	}
	return src
}

func (p *prepared) corePyType(t *model.Type, known map[string]bool) string {
	switch t.Kind {
	case model.KindString:
		return "str"
	case model.KindInt:
		return "int"
	case model.KindFloat:
		return "float"
	case model.KindBool:
		return "bool"
	case model.KindDateTime:
		p.NeedsDatetime = true
		return "datetime.datetime"
	case model.KindObjectID:
		p.NeedsObjectID = true
		return "ObjectId"
	case model.KindBinary:
		return "bytes"
	case model.KindAny:
		return "Any"
	case model.KindList:
		return fmt.Sprintf("list[%s]", p.pyType(t.Elem, known))
	case model.KindMap:
		return fmt.Sprintf("dict[%s, %s]", p.pyType(t.Key, known), p.pyType(t.Value, known))
	case model.KindUnion:
		parts := make([]string, len(t.Variants))
		for i, v := range t.Variants {
			parts[i] = p.pyType(v, known)
		}
		return strings.Join(parts, " | ")
	case model.KindModel:
		if known[t.Model] {
			return t.Model
		}
		return "_Doc"
	}
	return "Any"
}

// pyLeafType renders the exact type carried by a path in the fields shape.
func (p *prepared) pyLeafType(path paths.Path, known map[string]bool) string {
	src := p.pyType(path.Leaf, known)
	if path.Nullable && !strings.HasSuffix(src, "| None") {
		src += " | None"
	}
	return src
}

// stubValue renders the operator union for a path in the query shape. The
// alias picked per operator class is declared once in the stub header.
func (p *prepared) stubValue(path paths.Path, shape ops.Shape, known map[string]bool) string {
	if shape.Class == ops.ClassList {
		// MongoDB matches list fields at element or whole-list level.
		elem := p.pyType(path.Leaf.Elem, known)
		value := fmt.Sprintf("%s | %s", elem, p.pyType(path.Leaf, known))
		return fmt.Sprintf(`%s[%s] | dict[Literal["$elemMatch"], _Doc]`, opAlias(shape.Elem), value)
	}

	return fmt.Sprintf("%s[%s]", opAlias(shape.Class), p.pyLeafType(path, known))
}

func opAlias(c ops.Class) string {
	switch c {
	case ops.ClassOrdered:
		return "_OrdOp"
	case ops.ClassString:
		return "_StrOp"
	case ops.ClassDoc:
		return "_DocOp"
	default:
		return "_PlainOp"
	}
}

// constName turns a model name into the SCREAMING_SNAKE constant prefix.
func constName(name string) string {
	return strings.ToUpper(inflect.Underscore(name))
}

func uniqueGoName(seen map[string]bool, segments []string) string {
	parts := make([]string, len(segments))
	for i, seg := range segments {
		parts[i] = inflect.Camelize(strings.TrimPrefix(seg, "_"))
	}

	name := strings.Join(parts, "")
	if name == "" {
		name = "Field"
	}

	for i := 2; seen[name]; i++ {
		name = fmt.Sprintf("%s%d", strings.Join(parts, ""), i)
	}
	seen[name] = true
	return name
}

func goPackageName(base string) string {
	dir := filepath.Base(filepath.Dir(base))
	pkg := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return -1
	}, dir)

	// A Go identifier cannot start with a digit.
	pkg = strings.TrimLeft(pkg, "0123456789")

	if pkg == "" {
		pkg = "mongotypes"
	}
	return pkg
}

type output struct {
	path string
	data []byte
}

// writeOutputs writes every artifact to a temp file in its destination
// directory and renames the whole set into place only after each write
// succeeded, so a failure never leaves a partial file pair behind.
func writeOutputs(outputs []output) (err error) {
	temps := make([]string, 0, len(outputs))

	defer func() {
		if err != nil {
			for _, t := range temps {
				_ = os.Remove(t)
			}
		}
	}()

	for _, o := range outputs {
		if mkErr := os.MkdirAll(filepath.Dir(o.path), 0o755); mkErr != nil {
			return fmt.Errorf(`failed to create output directory for "%s": %w`, o.path, mkErr)
		}

		f, tmpErr := os.CreateTemp(filepath.Dir(o.path), "."+filepath.Base(o.path)+".*")
		if tmpErr != nil {
			return fmt.Errorf(`failed to create temp output file: %w`, tmpErr)
		}
		temps = append(temps, f.Name())

		if _, wErr := f.Write(o.data); wErr != nil {
			_ = f.Close()
			return fmt.Errorf(`failed to write "%s": %w`, o.path, wErr)
		}
		if cErr := f.Close(); cErr != nil {
			return fmt.Errorf(`failed to write "%s": %w`, o.path, cErr)
		}
	}

	for i, o := range outputs {
		if rErr := os.Rename(temps[i], o.path); rErr != nil {
			return fmt.Errorf(`failed to move "%s" into place: %w`, o.path, rErr)
		}
	}

	return nil
}
