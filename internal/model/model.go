package model

import "fmt"

type Kind string

const (
	KindString   Kind = "string"
	KindInt      Kind = "integer"
	KindFloat    Kind = "float"
	KindBool     Kind = "boolean"
	KindDateTime Kind = "datetime"
	KindObjectID Kind = "objectid"
	KindBinary   Kind = "binary"
	KindAny      Kind = "any"
	KindList     Kind = "list"
	KindMap      Kind = "map"
	KindUnion    Kind = "union"
	KindModel    Kind = "model"
)

// Type is a tagged variant describing one resolved field type. Exactly the
// fields relevant to `Kind` are set; everything else is zero.
type Type struct {
	Kind Kind

	// Nullable is set when the declaration was wrapped in an optional
	// marker. Optionality never changes the field path, only the leaf's
	// nullability carried into operator mapping.
	Nullable bool

	// Elem is the element type of a list.
	Elem *Type

	// Key and Value are set for maps. Key is always a scalar kind.
	Key   *Type
	Value *Type

	// Variants holds union branches in declaration order.
	Variants []*Type

	// Model is the referenced model name. The referenced schema is looked
	// up lazily from the batch registry during path enumeration, so
	// mutually referencing models can be declared in any order.
	Model string
}

// Scalar reports whether the type is a plain scalar kind.
func (t *Type) Scalar() bool {
	switch t.Kind {
	case KindString, KindInt, KindFloat, KindBool, KindDateTime, KindObjectID, KindBinary, KindAny:
		return true
	}
	return false
}

// Numeric reports whether increment-style updates apply.
func (t *Type) Numeric() bool {
	return t.Kind == KindInt || t.Kind == KindFloat
}

// Ordered reports whether range comparators apply.
func (t *Type) Ordered() bool {
	return t.Kind == KindInt || t.Kind == KindFloat || t.Kind == KindDateTime
}

func (t *Type) String() string {
	switch t.Kind {
	case KindList:
		return fmt.Sprintf("list<%s>", t.Elem)
	case KindMap:
		return fmt.Sprintf("map<%s, %s>", t.Key, t.Value)
	case KindUnion:
		s := ""
		for i, v := range t.Variants {
			if i > 0 {
				s += " | "
			}
			s += v.String()
		}
		return s
	case KindModel:
		return t.Model
	}
	return string(t.Kind)
}

type Field struct {
	Name string
	Type *Type

	// HasDefault records whether the declaration carried a default value.
	HasDefault bool
}

// Schema is the normalized representation of one data model. Immutable once
// built by the extractor.
type Schema struct {
	Name       string
	Collection string

	// IDField is the identifier field name, "_id" unless the model
	// declares a custom one.
	IDField string

	// Fields are in declaration order.
	Fields []Field
}

// Field returns the declared field with the given name, if any.
func (s *Schema) Field(name string) (*Field, bool) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i], true
		}
	}
	return nil, false
}

// Registry holds every schema discovered during one generation batch and
// resolves nested model references between them.
type Registry struct {
	schemas map[string]*Schema
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*Schema)}
}

func (r *Registry) Add(s *Schema) error {
	if _, ok := r.schemas[s.Name]; ok {
		return fmt.Errorf(`model "%s" is defined more than once`, s.Name)
	}
	r.schemas[s.Name] = s
	r.order = append(r.order, s.Name)
	return nil
}

func (r *Registry) Get(name string) (*Schema, bool) {
	s, ok := r.schemas[name]
	return s, ok
}

// Names returns the registered model names in registration order.
func (r *Registry) Names() []string {
	return r.order
}
