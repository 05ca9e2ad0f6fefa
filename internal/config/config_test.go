package config

import (
	"os"
	"path/filepath"
	"testing"

	assert "github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mongotype.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(`
version: 1
models:
  - path: "schemas/*.yaml"
  - path: "extra/models.yaml"
output:
  path: "gen/types.py"
  targets: [python, go]
  goPackage: mongotypes
maxDepth: 4
`), 0o644))

	cfg, err := Read(path)
	assert.NoError(t, err)

	assert.Equal(t, 1, cfg.Version)
	assert.Len(t, cfg.Models, 2)
	assert.Equal(t, "schemas/*.yaml", cfg.Models[0].Path)
	assert.Equal(t, "gen/types.py", cfg.Output.Path)
	assert.Equal(t, []string{"python", "go"}, cfg.Output.Targets)
	assert.Equal(t, "mongotypes", cfg.Output.GoPackage)
	assert.Equal(t, 4, cfg.MaxDepth)
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestReadInvalidYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mongotype.yaml")
	assert.NoError(t, os.WriteFile(path, []byte("models: ["), 0o644))

	_, err := Read(path)
	assert.Error(t, err)
}
