// Package def reads declarative model definition files and extracts
// normalized schemas from them.
package def

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/go-openapi/inflect"
	"github.com/jkarvonen/mongotype/internal/model"
	"gopkg.in/yaml.v3"
)

const defaultIDField = "_id"

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type file struct {
	Models yaml.Node `yaml:"models"`
}

type modelBody struct {
	Collection string    `yaml:"collection"`
	ID         string    `yaml:"id"`
	Fields     yaml.Node `yaml:"fields"`
}

// fieldBody is the long form of a field declaration. The short form is a
// plain type expression string.
type fieldBody struct {
	Type string `yaml:"type"`

	// Default stays a raw node: only its presence matters, and decoding
	// into a typed field would constrain the value shape.
	Default yaml.Node `yaml:"default"`
}

// Failure records one model that could not be extracted. Failures are
// scoped per model so that one bad model never blocks the rest of the
// batch.
type Failure struct {
	Model string
	Err   error
}

// ReadModels parses every definition file and registers the extracted
// schemas in `reg`. A file that cannot be read or parsed as YAML aborts the
// run; a model that cannot be extracted is reported as a `Failure` and
// skipped.
func ReadModels(filePaths []string, reg *model.Registry) ([]Failure, error) {
	var failures []Failure

	for _, p := range filePaths {
		fileData, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf(`failed to read model file "%s": %w`, p, err)
		}

		var f file
		if err := yaml.Unmarshal(fileData, &f); err != nil {
			return nil, fmt.Errorf(`failed to unmarshal model file "%s": %w`, p, err)
		}

		if f.Models.Kind == 0 {
			continue
		}

		if f.Models.Kind != yaml.MappingNode {
			return nil, fmt.Errorf(`"models" must be a mapping in file "%s"`, p)
		}

		// Mapping nodes store keys and values as adjacent content entries.
		for i := 0; i+1 < len(f.Models.Content); i += 2 {
			name := f.Models.Content[i].Value

			schema, err := extractModel(name, f.Models.Content[i+1])
			if err != nil {
				failures = append(failures, Failure{Model: name, Err: err})
				continue
			}

			if err := reg.Add(schema); err != nil {
				failures = append(failures, Failure{Model: name, Err: err})
			}
		}
	}

	return failures, nil
}

func extractModel(name string, body *yaml.Node) (*model.Schema, error) {
	var b modelBody
	if err := body.Decode(&b); err != nil {
		return nil, fmt.Errorf(`invalid model "%s": %w`, name, err)
	}

	schema := &model.Schema{
		Name:       name,
		Collection: b.Collection,
		IDField:    b.ID,
	}

	if schema.Collection == "" {
		schema.Collection = inflect.Pluralize(inflect.Underscore(name))
	}
	if schema.IDField == "" {
		schema.IDField = defaultIDField
	}

	if b.Fields.Kind != 0 && b.Fields.Kind != yaml.MappingNode {
		return nil, fmt.Errorf(`"fields" of model "%s" must be a mapping`, name)
	}

	for i := 0; i+1 < len(b.Fields.Content); i += 2 {
		fieldName := b.Fields.Content[i].Value

		if !fieldNamePattern.MatchString(fieldName) {
			return nil, fmt.Errorf(`invalid field name "%s" in model "%s"`, fieldName, name)
		}

		if _, ok := schema.Field(fieldName); ok {
			return nil, fmt.Errorf(`duplicate field "%s" in model "%s"`, fieldName, name)
		}

		field, err := extractField(name, fieldName, b.Fields.Content[i+1])
		if err != nil {
			return nil, err
		}

		schema.Fields = append(schema.Fields, *field)
	}

	return schema, nil
}

func extractField(modelName string, fieldName string, value *yaml.Node) (*model.Field, error) {
	var decl string
	var hasDefault bool

	if value.Kind == yaml.MappingNode {
		var b fieldBody
		if err := value.Decode(&b); err != nil {
			return nil, fmt.Errorf(`invalid field %s.%s: %w`, modelName, fieldName, err)
		}
		if b.Type == "" {
			return nil, fmt.Errorf(`field %s.%s is missing "type"`, modelName, fieldName)
		}
		decl = b.Type
		hasDefault = b.Default.Kind != 0
	} else {
		decl = value.Value
	}

	t, err := ParseType(modelName, fieldName, decl)
	if err != nil {
		return nil, err
	}

	return &model.Field{
		Name:       fieldName,
		Type:       t,
		HasDefault: hasDefault,
	}, nil
}

// ParseType resolves a type expression into a type descriptor. The model
// and field names are only used for error reporting.
func ParseType(modelName string, fieldName string, expr string) (*model.Type, error) {
	return parseExpr(modelName, fieldName, expr)
}

func parseExpr(m string, f string, expr string) (*model.Type, error) {
	expr = strings.TrimSpace(expr)

	if expr == "" {
		return nil, &model.UnresolvedTypeError{Model: m, Field: f, Decl: expr}
	}

	// Union branches, in declaration order.
	if parts := splitTop(expr, '|'); len(parts) > 1 {
		return parseUnion(m, f, parts)
	}

	// Trailing '?' marks an optional type.
	if strings.HasSuffix(expr, "?") {
		inner, err := parseExpr(m, f, expr[:len(expr)-1])
		if err != nil {
			return nil, err
		}
		inner.Nullable = true
		return inner, nil
	}

	if arg, ok := typeArg(expr, "optional"); ok {
		inner, err := parseExpr(m, f, arg)
		if err != nil {
			return nil, err
		}
		inner.Nullable = true
		return inner, nil
	}

	for _, kw := range []string{"list", "array", "set"} {
		if arg, ok := typeArg(expr, kw); ok {
			elem, err := parseExpr(m, f, arg)
			if err != nil {
				return nil, err
			}
			return &model.Type{Kind: model.KindList, Elem: elem}, nil
		}
	}

	if arg, ok := typeArg(expr, "map"); ok {
		return parseMap(m, f, arg)
	}

	if kind, ok := scalarKind(expr); ok {
		return &model.Type{Kind: kind}, nil
	}

	// A capitalized identifier is a reference to another model, resolved
	// lazily against the batch registry.
	if fieldNamePattern.MatchString(expr) && expr[0] >= 'A' && expr[0] <= 'Z' {
		return &model.Type{Kind: model.KindModel, Model: expr}, nil
	}

	return nil, &model.UnresolvedTypeError{Model: m, Field: f, Decl: expr}
}

func parseUnion(m string, f string, parts []string) (*model.Type, error) {
	union := &model.Type{Kind: model.KindUnion}

	for _, part := range parts {
		v, err := parseExpr(m, f, part)
		if err != nil {
			return nil, err
		}

		// De-duplicate branches after resolution.
		dup := false
		for _, existing := range union.Variants {
			if existing.String() == v.String() && existing.Nullable == v.Nullable {
				dup = true
				break
			}
		}
		if !dup {
			union.Variants = append(union.Variants, v)
		}
	}

	if len(union.Variants) == 1 {
		return union.Variants[0], nil
	}

	return union, nil
}

func parseMap(m string, f string, arg string) (*model.Type, error) {
	parts := splitTop(arg, ',')
	if len(parts) != 2 {
		return nil, &model.UnresolvedTypeError{Model: m, Field: f, Decl: fmt.Sprintf("map<%s>", arg)}
	}

	key, err := parseExpr(m, f, parts[0])
	if err != nil {
		return nil, err
	}

	if !key.Scalar() {
		return nil, &model.UnsupportedKeyTypeError{Model: m, Field: f, Key: key.String()}
	}

	value, err := parseExpr(m, f, parts[1])
	if err != nil {
		return nil, err
	}

	return &model.Type{Kind: model.KindMap, Key: key, Value: value}, nil
}

// typeArg returns the bracketed argument of a `kw<...>` expression.
func typeArg(expr string, kw string) (string, bool) {
	if strings.HasPrefix(expr, kw+"<") && strings.HasSuffix(expr, ">") {
		return expr[len(kw)+1 : len(expr)-1], true
	}
	return "", false
}

// splitTop splits on `sep` at bracket nesting depth zero.
func splitTop(expr string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0

	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '<':
			depth++
		case '>':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, expr[start:i])
				start = i + 1
			}
		}
	}

	return append(parts, expr[start:])
}

func scalarKind(expr string) (model.Kind, bool) {
	switch strings.ToLower(expr) {
	case "string", "str":
		return model.KindString, true
	case "int", "integer", "long":
		return model.KindInt, true
	case "float", "double", "number":
		return model.KindFloat, true
	case "bool", "boolean":
		return model.KindBool, true
	case "datetime", "timestamp":
		return model.KindDateTime, true
	case "objectid", "id":
		return model.KindObjectID, true
	case "binary", "bytes":
		return model.KindBinary, true
	case "any":
		return model.KindAny, true
	}
	return "", false
}
