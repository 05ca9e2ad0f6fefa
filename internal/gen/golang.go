package gen

import (
	"bytes"

	"github.com/dave/jennifer/jen"
)

const (
	bsonPkg = "go.mongodb.org/mongo-driver/v2/bson"

	idParamPath   = "path"
	idParamValue  = "value"
	idParamFields = "fields"
	idParamFlag   = "flag"

	idTypeParamPath  = "P"
	idTypeParamValue = "T"
)

// renderGo renders the Go declarations for the mongo-driver target: one
// typed path constant set per model plus shared filter/update helpers.
func renderGo(p *prepared, pkg string) ([]byte, error) {
	f := jen.NewFile(pkg)
	f.HeaderComment("Code generated by mongotype. DO NOT EDIT.")

	genFilterHelpers(f)
	genUpdateHelpers(f)

	for _, m := range p.Models {
		genModelPaths(f, m)
	}

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func genModelPaths(f *jen.File, m *Model) {
	pathType := m.Name + "Path"

	f.Commentf("%s field paths.", m.Name)
	f.Type().Id(pathType).String()
	f.Empty()

	f.Const().DefsFunc(func(g *jen.Group) {
		for _, d := range m.Paths {
			g.Id(pathType + d.GoName).Id(pathType).Op("=").Lit(d.Path)
		}
	})
	f.Empty()

	f.Var().Id(m.Name + "Paths").Op("=").Index().Id(pathType).ValuesFunc(func(g *jen.Group) {
		for _, d := range m.Paths {
			g.Id(pathType + d.GoName)
		}
	})
	f.Empty()

	f.Const().Id(m.Name + "Collection").Op("=").Lit(m.Collection)
	f.Empty()
}

func genFilterHelpers(f *jen.File) {
	for _, op := range []struct {
		name string
		op   string
		list bool
	}{
		{name: "Eq", op: "$eq"},
		{name: "Ne", op: "$ne"},
		{name: "In", op: "$in", list: true},
		{name: "Nin", op: "$nin", list: true},
		{name: "Gt", op: "$gt"},
		{name: "Gte", op: "$gte"},
		{name: "Lt", op: "$lt"},
		{name: "Lte", op: "$lte"},
	} {
		op := op

		valueType := jen.Id(idTypeParamValue)
		if op.list {
			valueType = jen.Index().Id(idTypeParamValue)
		}

		f.Func().Id(op.name).Types(
			jen.Id(idTypeParamPath).Op("~").String(),
			jen.Id(idTypeParamValue).Id("any"),
		).Params(
			jen.Id(idParamPath).Id(idTypeParamPath),
			jen.Id(idParamValue).Add(valueType),
		).Qual(bsonPkg, "E").Block(
			jen.Return(jen.Qual(bsonPkg, "E").Values(jen.Dict{
				jen.Id("Key"):   jen.String().Parens(jen.Id(idParamPath)),
				jen.Id("Value"): jen.Qual(bsonPkg, "M").Values(jen.Dict{jen.Lit(op.op): jen.Id(idParamValue)}),
			})),
		)
		f.Empty()
	}

	f.Func().Id("Exists").Types(
		jen.Id(idTypeParamPath).Op("~").String(),
	).Params(
		jen.Id(idParamPath).Id(idTypeParamPath),
		jen.Id(idParamFlag).Bool(),
	).Qual(bsonPkg, "E").Block(
		jen.Return(jen.Qual(bsonPkg, "E").Values(jen.Dict{
			jen.Id("Key"):   jen.String().Parens(jen.Id(idParamPath)),
			jen.Id("Value"): jen.Qual(bsonPkg, "M").Values(jen.Dict{jen.Lit("$exists"): jen.Id(idParamFlag)}),
		})),
	)
	f.Empty()

	f.Func().Id("Regex").Types(
		jen.Id(idTypeParamPath).Op("~").String(),
	).Params(
		jen.Id(idParamPath).Id(idTypeParamPath),
		jen.Id("pattern").String(),
	).Qual(bsonPkg, "E").Block(
		jen.Return(jen.Qual(bsonPkg, "E").Values(jen.Dict{
			jen.Id("Key"):   jen.String().Parens(jen.Id(idParamPath)),
			jen.Id("Value"): jen.Qual(bsonPkg, "M").Values(jen.Dict{jen.Lit("$regex"): jen.Id("pattern")}),
		})),
	)
	f.Empty()

	f.Func().Id("ElemMatch").Types(
		jen.Id(idTypeParamPath).Op("~").String(),
	).Params(
		jen.Id(idParamPath).Id(idTypeParamPath),
		jen.Id("match").Qual(bsonPkg, "M"),
	).Qual(bsonPkg, "E").Block(
		jen.Return(jen.Qual(bsonPkg, "E").Values(jen.Dict{
			jen.Id("Key"):   jen.String().Parens(jen.Id(idParamPath)),
			jen.Id("Value"): jen.Qual(bsonPkg, "M").Values(jen.Dict{jen.Lit("$elemMatch"): jen.Id("match")}),
		})),
	)
	f.Empty()
}

func genUpdateHelpers(f *jen.File) {
	for _, op := range []struct {
		name string
		op   string
	}{
		{name: "Set", op: "$set"},
		{name: "Inc", op: "$inc"},
		{name: "Push", op: "$push"},
		{name: "Pull", op: "$pull"},
	} {
		op := op

		f.Func().Id(op.name).Params(
			jen.Id(idParamFields).Qual(bsonPkg, "M"),
		).Qual(bsonPkg, "E").Block(
			jen.Return(jen.Qual(bsonPkg, "E").Values(jen.Dict{
				jen.Id("Key"):   jen.Lit(op.op),
				jen.Id("Value"): jen.Id(idParamFields),
			})),
		)
		f.Empty()
	}

	f.Func().Id("Unset").Types(
		jen.Id(idTypeParamPath).Op("~").String(),
	).Params(
		jen.Id("paths").Op("...").Id(idTypeParamPath),
	).Qual(bsonPkg, "E").Block(
		jen.Id(idParamFields).Op(":=").Qual(bsonPkg, "M").Values(),
		jen.For(jen.List(jen.Id("_"), jen.Id(idParamPath)).Op(":=").Range().Id("paths")).Block(
			jen.Id(idParamFields).Index(jen.String().Parens(jen.Id(idParamPath))).Op("=").Lit(1),
		),
		jen.Return(jen.Qual(bsonPkg, "E").Values(jen.Dict{
			jen.Id("Key"):   jen.Lit("$unset"),
			jen.Id("Value"): jen.Id(idParamFields),
		})),
	)
	f.Empty()
}
