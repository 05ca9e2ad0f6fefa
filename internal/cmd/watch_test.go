package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	assert "github.com/stretchr/testify/require"
)

func TestWatchRunsAndRegenerates(t *testing.T) {
	wd := t.TempDir()
	modelFile := writeFile(t, wd, "schemas/user.yaml", userModels)

	s := Settings{
		WorkingDir: wd,
		Sources:    []string{"schemas/*.yaml"},
		Output:     "types.py",
	}

	stop := make(chan struct{})
	defer close(stop)

	type run struct {
		report *Report
		err    error
	}

	runs := make(chan run, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(s, stop, func(r *Report, err error) {
			runs <- run{report: r, err: err}
		})
	}()

	select {
	case r := <-runs:
		assert.NoError(t, r.err)
		assert.Equal(t, []string{"User", "Address"}, r.report.Models)
	case err := <-done:
		t.Fatalf("watch exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("initial generation did not run")
	}

	// Touching a watched model file must trigger a second run.
	assert.NoError(t, os.WriteFile(modelFile, []byte(userModels+"\n"), 0o644))

	select {
	case r := <-runs:
		assert.NoError(t, r.err)
		assert.Contains(t, r.report.Models, "User")
	case <-time.After(5 * time.Second):
		t.Fatal("change did not trigger regeneration")
	}

	_, err := os.Stat(filepath.Join(wd, "types.pyi"))
	assert.NoError(t, err)
}

func TestWatchFailsWithoutSources(t *testing.T) {
	err := Watch(Settings{WorkingDir: t.TempDir(), Sources: []string{"missing/*.yaml"}}, nil, func(*Report, error) {})
	assert.Error(t, err)
}
