// Package paths enumerates the dotted field paths of a model schema.
package paths

import (
	"fmt"
	"strings"

	"github.com/jkarvonen/mongotype/internal/model"
)

// DefaultMaxDepth bounds nested model expansion unless overridden.
const DefaultMaxDepth = 8

// Path is one dotted field path together with the resolved leaf type used
// for operator mapping.
type Path struct {
	Segments []string
	Leaf     *model.Type

	// Nullable is set when the leaf or any type on the walk to it was
	// declared optional.
	Nullable bool

	// Truncated marks a branch that was cut by the depth limit. The leaf
	// is the unexpanded model reference, addressable as a whole document.
	Truncated bool
}

func (p Path) String() string {
	return strings.Join(p.Segments, ".")
}

// Warning records a depth-truncated branch. Truncation is not an error; it
// is the termination guarantee for cyclic model graphs.
type Warning struct {
	Model string
	Path  string
	Depth int
}

func (w Warning) String() string {
	return fmt.Sprintf(`model "%s": expansion of "%s" stopped at depth %d`, w.Model, w.Path, w.Depth)
}

type Enumerator struct {
	reg      *model.Registry
	maxDepth int
}

func NewEnumerator(reg *model.Registry, maxDepth int) *Enumerator {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Enumerator{reg: reg, maxDepth: maxDepth}
}

type walk struct {
	enum     *Enumerator
	schema   *model.Schema
	out      []Path
	seen     map[string]bool
	warnings []Warning
}

// Enumerate produces every legal field path of `s` in declaration order,
// depth first. The identifier path always comes first. Nested model
// references resolve lazily against the registry; an unknown reference
// fails with an UnresolvedTypeError scoped to this model.
func (e *Enumerator) Enumerate(s *model.Schema) ([]Path, []Warning, error) {
	w := &walk{enum: e, schema: s, seen: make(map[string]bool)}

	// The identifier path is emitted at the root even when the model does
	// not declare it. A declared field with the identifier name supplies
	// the leaf type and is not emitted a second time in declaration order.
	idType := &model.Type{Kind: model.KindObjectID}
	if f, ok := s.Field(s.IDField); ok {
		idType = f.Type
	}
	w.emit([]string{s.IDField}, idType, idType.Nullable, false)

	for _, f := range s.Fields {
		if err := w.field([]string{f.Name}, f.Type, false, 0); err != nil {
			return nil, nil, err
		}
	}

	return w.out, w.warnings, nil
}

func (w *walk) field(path []string, t *model.Type, nullable bool, depth int) error {
	nullable = nullable || t.Nullable

	switch t.Kind {
	case model.KindList:
		return w.list(path, t, nullable, depth)
	case model.KindMap:
		// Whole-mapping leaf only; dynamic keys are not enumerated.
		w.emit(path, t, nullable, false)
	case model.KindUnion:
		return w.union(path, t, nullable, depth)
	case model.KindModel:
		return w.expand(path, t.Model, nullable, depth)
	default:
		w.emit(path, t, nullable, false)
	}

	return nil
}

// list emits a list field either as a container-of-scalar boundary or, for
// a list of models, as dotted paths into the element schema. Both match
// MongoDB's implicit array navigation.
func (w *walk) list(path []string, t *model.Type, nullable bool, depth int) error {
	elem := t.Elem

	switch elem.Kind {
	case model.KindModel:
		return w.expand(path, elem.Model, nullable, depth)
	case model.KindUnion:
		for _, v := range elem.Variants {
			if v.Kind == model.KindModel {
				if err := w.expand(path, v.Model, nullable, depth); err != nil {
					return err
				}
			}
		}
		if unionHasLeaf(elem) {
			w.emit(path, t, nullable, false)
		}
	default:
		w.emit(path, t, nullable, false)
	}

	return nil
}

func (w *walk) union(path []string, t *model.Type, nullable bool, depth int) error {
	// The path itself is a leaf as soon as one branch is not a model.
	if unionHasLeaf(t) {
		w.emit(path, t, nullable, false)
	}

	for _, v := range t.Variants {
		if v.Kind == model.KindModel {
			if err := w.expand(path, v.Model, nullable || v.Nullable, depth); err != nil {
				return err
			}
		}
	}

	return nil
}

// expand recurses into a referenced model's fields under the current path.
// Expansion past the depth limit truncates the branch into an opaque
// document leaf and records a warning instead of failing the run.
func (w *walk) expand(path []string, name string, nullable bool, depth int) error {
	nested, ok := w.enum.reg.Get(name)
	if !ok {
		return &model.UnresolvedTypeError{
			Model: w.schema.Name,
			Field: strings.Join(path, "."),
			Decl:  name,
		}
	}

	if depth+1 >= w.enum.maxDepth {
		w.emit(path, &model.Type{Kind: model.KindModel, Model: name}, nullable, true)
		w.warnings = append(w.warnings, Warning{
			Model: w.schema.Name,
			Path:  strings.Join(path, "."),
			Depth: len(path),
		})
		return nil
	}

	for _, f := range nested.Fields {
		sub := append(append([]string{}, path...), f.Name)
		if err := w.field(sub, f.Type, nullable, depth+1); err != nil {
			return err
		}
	}

	return nil
}

func (w *walk) emit(path []string, leaf *model.Type, nullable bool, truncated bool) {
	key := strings.Join(path, ".")
	if w.seen[key] {
		return
	}
	w.seen[key] = true

	w.out = append(w.out, Path{
		Segments:  append([]string{}, path...),
		Leaf:      leaf,
		Nullable:  nullable,
		Truncated: truncated,
	})
}

func unionHasLeaf(t *model.Type) bool {
	for _, v := range t.Variants {
		if v.Kind != model.KindModel {
			return true
		}
	}
	return false
}
