// Package ops maps resolved leaf types to their legal query and update
// operator shapes.
package ops

import (
	"slices"

	"github.com/jkarvonen/mongotype/internal/model"
	"github.com/jkarvonen/mongotype/internal/paths"
)

type Op string

const (
	OpEq        Op = "$eq"
	OpNe        Op = "$ne"
	OpIn        Op = "$in"
	OpNin       Op = "$nin"
	OpExists    Op = "$exists"
	OpGt        Op = "$gt"
	OpGte       Op = "$gte"
	OpLt        Op = "$lt"
	OpLte       Op = "$lte"
	OpRegex     Op = "$regex"
	OpElemMatch Op = "$elemMatch"

	OpSet   Op = "$set"
	OpUnset Op = "$unset"
	OpInc   Op = "$inc"
	OpPush  Op = "$push"
	OpPull  Op = "$pull"
)

// Class groups leaves that share one operator alias in the generated stub.
type Class string

const (
	// ClassPlain covers non-ordered scalars: equality, membership and
	// existence only.
	ClassPlain Class = "plain"
	// ClassOrdered adds range comparators for numeric and datetime kinds.
	ClassOrdered Class = "ordered"
	// ClassString adds the pattern-match operator.
	ClassString Class = "string"
	// ClassList covers container-of-scalar boundaries.
	ClassList Class = "list"
	// ClassDoc covers whole-mapping leaves and depth-truncated model
	// references, matched as opaque documents.
	ClassDoc Class = "doc"
)

// Shape is the operator union legal for one field path.
type Shape struct {
	Class Class

	// Elem is the element class of a list leaf.
	Elem Class

	Filter []Op
	Update []Op
}

var baseFilter = []Op{OpEq, OpNe, OpIn, OpNin, OpExists}
var rangeFilter = []Op{OpGt, OpGte, OpLt, OpLte}

// ForPath returns the operator shape for an enumerated path. A raw value in
// place of an operator document is always an implicit equality match, so
// every shape also admits the plain leaf value.
func ForPath(p paths.Path) Shape {
	s := forType(p.Leaf)

	// The null-check operator is part of every filter set; a nullable
	// leaf merely guarantees it can never be excluded.
	if p.Nullable && !slices.Contains(s.Filter, OpExists) {
		s.Filter = append(s.Filter, OpExists)
	}

	return s
}

func forType(t *model.Type) Shape {
	switch t.Kind {
	case model.KindList:
		elem := forType(t.Elem)
		return Shape{
			Class:  ClassList,
			Elem:   elem.Class,
			Filter: append(append([]Op{}, elem.Filter...), OpElemMatch),
			Update: []Op{OpSet, OpUnset, OpPush, OpPull},
		}
	case model.KindMap, model.KindModel:
		return Shape{
			Class:  ClassDoc,
			Filter: []Op{OpEq, OpNe, OpExists},
			Update: []Op{OpSet, OpUnset},
		}
	case model.KindUnion:
		return forUnion(t)
	default:
		return forScalar(t)
	}
}

func forScalar(t *model.Type) Shape {
	s := Shape{
		Class:  ClassPlain,
		Filter: append([]Op{}, baseFilter...),
		Update: []Op{OpSet, OpUnset},
	}

	if t.Ordered() {
		s.Class = ClassOrdered
		s.Filter = append(s.Filter, rangeFilter...)
	}

	if t.Kind == model.KindString {
		s.Class = ClassString
		s.Filter = append(s.Filter, OpRegex)
	}

	if t.Numeric() {
		s.Update = append(s.Update, OpInc)
	}

	return s
}

// forUnion keeps only the operators legal for every non-model branch, so a
// `string | integer` leaf never claims ordering comparators that one branch
// cannot satisfy.
func forUnion(t *model.Type) Shape {
	var shared *Shape

	for _, v := range t.Variants {
		if v.Kind == model.KindModel {
			continue
		}

		branch := forType(v)
		if shared == nil {
			shared = &branch
			continue
		}

		if branch.Class != shared.Class {
			shared.Class = ClassPlain
		}
		shared.Filter = intersect(shared.Filter, branch.Filter)
		shared.Update = intersect(shared.Update, branch.Update)
	}

	if shared == nil {
		return forType(&model.Type{Kind: model.KindModel})
	}

	return *shared
}

func intersect(a []Op, b []Op) []Op {
	out := make([]Op, 0, len(a))
	for _, op := range a {
		if slices.Contains(b, op) {
			out = append(out, op)
		}
	}
	return out
}
