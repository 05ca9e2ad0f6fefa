package paths

import (
	"fmt"
	"strings"

	"github.com/jkarvonen/mongotype/internal/model"
)

// Resolve walks a dotted path string through a schema and returns the type
// descriptor it addresses, traversing nested models, lists of models and
// union branches the same way enumeration does.
func Resolve(reg *model.Registry, schema *model.Schema, path string) (*model.Type, error) {
	t, err := resolve(reg, schema, path)
	if err != nil {
		return nil, fmt.Errorf(`failed to resolve path "%s": %w`, path, err)
	}
	return t, nil
}

func resolve(reg *model.Registry, schema *model.Schema, path string) (*model.Type, error) {
	part := path
	var rest string

	if dot := strings.IndexByte(path, '.'); dot != -1 {
		part = path[:dot]
		rest = path[dot+1:]
	}

	field, ok := schema.Field(part)
	if !ok {
		if part == schema.IDField && rest == "" {
			return &model.Type{Kind: model.KindObjectID}, nil
		}
		return nil, fmt.Errorf(`model "%s" has no field "%s"`, schema.Name, part)
	}

	if rest == "" {
		return field.Type, nil
	}

	return resolveInto(reg, schema.Name, field.Type, part, rest)
}

func resolveInto(reg *model.Registry, owner string, t *model.Type, part string, rest string) (*model.Type, error) {
	switch t.Kind {
	case model.KindModel:
		nested, ok := reg.Get(t.Model)
		if !ok {
			return nil, &model.UnresolvedTypeError{Model: owner, Field: part, Decl: t.Model}
		}
		return resolve(reg, nested, rest)
	case model.KindList:
		return resolveInto(reg, owner, t.Elem, part, rest)
	case model.KindUnion:
		for _, v := range t.Variants {
			if resolved, err := resolveInto(reg, owner, v, part, rest); err == nil {
				return resolved, nil
			}
		}
	}

	return nil, fmt.Errorf(`cannot resolve "%s" through field "%s"`, rest, part)
}
