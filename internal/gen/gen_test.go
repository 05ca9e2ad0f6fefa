package gen

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/jkarvonen/mongotype/internal/model"
	"github.com/jkarvonen/mongotype/internal/paths"
	assert "github.com/stretchr/testify/require"
)

func scalar(kind model.Kind) *model.Type {
	return &model.Type{Kind: kind}
}

func userInputs(t *testing.T) []Input {
	t.Helper()

	reg := model.NewRegistry()
	assert.NoError(t, reg.Add(&model.Schema{
		Name:       "User",
		Collection: "users",
		IDField:    "_id",
		Fields: []model.Field{
			{Name: "name", Type: scalar(model.KindString)},
			{Name: "age", Type: &model.Type{Kind: model.KindInt, Nullable: true}},
			{Name: "tags", Type: &model.Type{Kind: model.KindList, Elem: scalar(model.KindString)}},
			{Name: "address", Type: &model.Type{Kind: model.KindModel, Model: "Address"}},
		},
	}))
	assert.NoError(t, reg.Add(&model.Schema{
		Name:       "Address",
		Collection: "addresses",
		IDField:    "_id",
		Fields: []model.Field{
			{Name: "city", Type: scalar(model.KindString)},
		},
	}))

	enum := paths.NewEnumerator(reg, 0)
	var inputs []Input

	for _, name := range reg.Names() {
		s, _ := reg.Get(name)
		ps, _, err := enum.Enumerate(s)
		assert.NoError(t, err)
		inputs = append(inputs, Input{Schema: s, Paths: ps})
	}

	return inputs
}

func TestGeneratePythonPair(t *testing.T) {
	out := filepath.Join(t.TempDir(), "gen", "types.py")

	written, err := Generate(userInputs(t), Options{
		OutputPath: out,
		Targets:    []string{TargetPython},
	})
	assert.NoError(t, err)
	assert.Len(t, written, 2)

	runtime := readFile(t, written[0])
	stub := readFile(t, written[1])

	for _, path := range []string{"_id", "name", "age", "tags", "address.city"} {
		assert.Contains(t, runtime, `"`+path+`",`)
		assert.Contains(t, stub, `"`+path+`",`)
	}

	// Runtime surface.
	assert.Contains(t, runtime, `USER_COLLECTION = "users"`)
	assert.Contains(t, runtime, "UserQuery = dict[str, Any]")
	assert.Contains(t, runtime, `return {"$set": dict(fields)}`)

	// Stub surface.
	assert.Contains(t, stub, "type UserPath = Literal[")
	assert.Contains(t, stub, `"age": _OrdOp[int | None],`)
	assert.Contains(t, stub, `"address.city": _StrOp[str],`)
	assert.Contains(t, stub, `"name": _StrOp[str],`)
	assert.Contains(t, stub, `dict[Literal["$elemMatch"], _Doc]`)
	assert.Contains(t, stub, `"$push": dict[Literal["tags"], str]`)
	assert.Contains(t, stub, `"age": NotRequired[int | None],`)
	assert.Contains(t, stub, `from bson import ObjectId`)
}

func TestGeneratedArtifactsShareOnePathSet(t *testing.T) {
	out := filepath.Join(t.TempDir(), "types.py")

	written, err := Generate(userInputs(t), Options{
		OutputPath: out,
		Targets:    []string{TargetPython, TargetGo},
	})
	assert.NoError(t, err)
	assert.Len(t, written, 3)

	runtime := readFile(t, written[0])
	stub := readFile(t, written[1])
	goSrc := readFile(t, written[2])

	runtimePaths := section(t, runtime, "USER_PATHS: tuple[str, ...] = (", ")")
	stubEnum := section(t, stub, "type UserPath = Literal[", "]")

	assert.Equal(t, quoted(runtimePaths), quoted(stubEnum))
	assert.NotEmpty(t, quoted(runtimePaths))

	for _, p := range quoted(runtimePaths) {
		assert.Contains(t, goSrc, `= "`+p+`"`)
	}
}

func TestGenerateGoTarget(t *testing.T) {
	out := filepath.Join(t.TempDir(), "types.py")

	written, err := Generate(userInputs(t), Options{
		OutputPath: out,
		Targets:    []string{TargetGo},
		GoPackage:  "mongotypes",
	})
	assert.NoError(t, err)
	assert.Len(t, written, 1)
	assert.Equal(t, strings.TrimSuffix(out, ".py")+".go", written[0])

	src := readFile(t, written[0])
	assert.Contains(t, src, "package mongotypes")
	assert.Contains(t, src, "Code generated by mongotype. DO NOT EDIT.")
	assert.Contains(t, src, "type UserPath string")
	assert.Contains(t, src, `UserPathAddressCity UserPath = "address.city"`)
	assert.Contains(t, src, `const UserCollection = "users"`)
	assert.Contains(t, src, "go.mongodb.org/mongo-driver/v2/bson")
	assert.Contains(t, src, "func Eq[P ~string, T any]")
}

func TestGenerateGoTargetDigitDirPackage(t *testing.T) {
	out := filepath.Join(t.TempDir(), "001", "types.py")

	written, err := Generate(userInputs(t), Options{
		OutputPath: out,
		Targets:    []string{TargetGo},
	})
	assert.NoError(t, err)
	assert.Len(t, written, 1)

	src := readFile(t, written[0])
	assert.Contains(t, src, "package mongotypes")
}

func TestGoPackageName(t *testing.T) {
	assert.Equal(t, "gen", goPackageName("/tmp/gen/types"))
	assert.Equal(t, "genout", goPackageName("/tmp/Gen-Out/types"))
	assert.Equal(t, "schemas2", goPackageName("/tmp/2schemas2/types"))
	assert.Equal(t, "mongotypes", goPackageName("001/types"))
	assert.Equal(t, "mongotypes", goPackageName("types"))
}

func TestGenerateDuplicateDerivedNameFails(t *testing.T) {
	reg := model.NewRegistry()
	assert.NoError(t, reg.Add(&model.Schema{
		Name: "User", Collection: "users", IDField: "_id",
		Fields: []model.Field{{Name: "name", Type: scalar(model.KindString)}},
	}))
	assert.NoError(t, reg.Add(&model.Schema{
		Name: "UserQuery", Collection: "user_queries", IDField: "_id",
		Fields: []model.Field{{Name: "q", Type: scalar(model.KindString)}},
	}))

	enum := paths.NewEnumerator(reg, 0)
	var inputs []Input
	for _, name := range reg.Names() {
		s, _ := reg.Get(name)
		ps, _, err := enum.Enumerate(s)
		assert.NoError(t, err)
		inputs = append(inputs, Input{Schema: s, Paths: ps})
	}

	dir := t.TempDir()
	_, err := Generate(inputs, Options{
		OutputPath: filepath.Join(dir, "types.py"),
		Targets:    []string{TargetPython},
	})

	var dup *DuplicateModelNameError
	assert.True(t, errors.As(err, &dup))
	assert.Equal(t, "UserQuery", dup.Name)

	// Nothing may be written on a failed run.
	entries, readErr := os.ReadDir(dir)
	assert.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestGenerateCollisionWithGoTargetNames(t *testing.T) {
	reg := model.NewRegistry()
	assert.NoError(t, reg.Add(&model.Schema{
		Name: "User", Collection: "users", IDField: "_id",
		Fields: []model.Field{{Name: "name", Type: scalar(model.KindString)}},
	}))
	assert.NoError(t, reg.Add(&model.Schema{
		Name: "UserPaths", Collection: "user_paths", IDField: "_id",
		Fields: []model.Field{{Name: "route", Type: scalar(model.KindString)}},
	}))

	enum := paths.NewEnumerator(reg, 0)
	var inputs []Input
	for _, name := range reg.Names() {
		s, _ := reg.Get(name)
		ps, _, err := enum.Enumerate(s)
		assert.NoError(t, err)
		inputs = append(inputs, Input{Schema: s, Paths: ps})
	}

	// The collision must fail every target, not just the one that emits
	// the clashing identifier.
	for _, targets := range [][]string{{TargetGo}, {TargetPython}} {
		_, err := Generate(inputs, Options{
			OutputPath: filepath.Join(t.TempDir(), "types.py"),
			Targets:    targets,
		})

		var dup *DuplicateModelNameError
		assert.True(t, errors.As(err, &dup))
		assert.Equal(t, "UserPaths", dup.Name)
	}
}

func TestGenerateUnknownTarget(t *testing.T) {
	_, err := Generate(userInputs(t), Options{
		OutputPath: filepath.Join(t.TempDir(), "types.py"),
		Targets:    []string{"rust"},
	})
	assert.Error(t, err)
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	return string(data)
}

// section returns the text between the first occurrence of `start` and the
// next occurrence of `end`.
func section(t *testing.T, content string, start string, end string) string {
	t.Helper()

	i := strings.Index(content, start)
	assert.GreaterOrEqual(t, i, 0, start)
	rest := content[i+len(start):]

	j := strings.Index(rest, end)
	assert.GreaterOrEqual(t, j, 0, end)
	return rest[:j]
}

var quotedPattern = regexp.MustCompile(`"([^"]+)"`)

func quoted(s string) []string {
	var out []string
	for _, m := range quotedPattern.FindAllStringSubmatch(s, -1) {
		out = append(out, m[1])
	}
	return out
}
