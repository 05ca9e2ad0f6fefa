package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jkarvonen/mongotype/internal/config"
	"github.com/jkarvonen/mongotype/internal/gen"
	"github.com/jkarvonen/mongotype/internal/model"
	"github.com/jkarvonen/mongotype/internal/model/def"
	"github.com/jkarvonen/mongotype/internal/paths"
)

const (
	configFile    = "mongotype.yaml"
	defaultOutput = "generated_types.py"
)

type Settings struct {
	WorkingDir string

	// ConfigFile overrides the default config location. The default
	// config is optional; explicit settings win over it.
	ConfigFile string

	// Sources are model definition files or globs. When set they replace
	// the config's model entries.
	Sources []string

	Output    string
	MaxDepth  int
	Targets   []string
	GoPackage string
}

// ModelFailure is one model that was skipped, with the reason.
type ModelFailure struct {
	Model string
	Err   error
}

// Report summarizes one generation run.
type Report struct {
	// Models that were generated, in definition order.
	Models []string

	// Skipped models and why. Skipping never aborts the batch.
	Skipped []ModelFailure

	Warnings []paths.Warning
	Outputs  []string
}

// Run executes one generation batch: discover model definitions, extract
// and enumerate each model, and emit the output artifacts. Per-model
// failures are collected into the report; Run only fails when no model at
// all could be generated or when emission itself fails.
func Run(s Settings) (*Report, error) {
	s, err := applyConfig(s)
	if err != nil {
		return nil, err
	}

	files, err := resolveSources(s)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no model definition files found")
	}

	reg := model.NewRegistry()
	failures, err := def.ReadModels(files, reg)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, f := range failures {
		report.Skipped = append(report.Skipped, ModelFailure{Model: f.Model, Err: f.Err})
	}

	enum := paths.NewEnumerator(reg, s.MaxDepth)
	var inputs []gen.Input

	for _, name := range reg.Names() {
		schema, _ := reg.Get(name)

		enumerated, warnings, err := enum.Enumerate(schema)
		if err != nil {
			report.Skipped = append(report.Skipped, ModelFailure{Model: name, Err: err})
			continue
		}

		report.Warnings = append(report.Warnings, warnings...)
		report.Models = append(report.Models, name)
		inputs = append(inputs, gen.Input{Schema: schema, Paths: enumerated})
	}

	if len(inputs) == 0 {
		return report, totalFailure(report)
	}

	outputPath := s.Output
	if !filepath.IsAbs(outputPath) {
		outputPath = filepath.Join(s.WorkingDir, outputPath)
	}

	outputs, err := gen.Generate(inputs, gen.Options{
		OutputPath: outputPath,
		Targets:    s.Targets,
		GoPackage:  s.GoPackage,
	})
	if err != nil {
		return report, err
	}

	report.Outputs = outputs
	return report, nil
}

func applyConfig(s Settings) (Settings, error) {
	path := s.ConfigFile
	if path == "" {
		path = filepath.Join(s.WorkingDir, configFile)
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(s.WorkingDir, path)
	}

	if path != "" {
		cfg, err := config.Read(path)
		if err != nil {
			return s, err
		}

		if len(s.Sources) == 0 {
			for _, m := range cfg.Models {
				s.Sources = append(s.Sources, m.Path)
			}
		}
		if s.Output == "" {
			s.Output = cfg.Output.Path
		}
		if len(s.Targets) == 0 {
			s.Targets = cfg.Output.Targets
		}
		if s.GoPackage == "" {
			s.GoPackage = cfg.Output.GoPackage
		}
		if s.MaxDepth == 0 {
			s.MaxDepth = cfg.MaxDepth
		}
	}

	if s.Output == "" {
		s.Output = defaultOutput
	}
	if len(s.Targets) == 0 {
		s.Targets = []string{gen.TargetPython}
	}

	return s, nil
}

// resolveSources expands source globs relative to the working directory
// into a deterministic file list.
func resolveSources(s Settings) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	for _, src := range s.Sources {
		pattern := src
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(s.WorkingDir, pattern)
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf(`failed to resolve model files using glob "%s": %w`, src, err)
		}

		sort.Strings(matches)
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}

	return files, nil
}

func totalFailure(report *Report) error {
	if len(report.Skipped) == 0 {
		return fmt.Errorf("no models found in definition files")
	}

	lines := make([]string, 0, len(report.Skipped)+1)
	lines = append(lines, "no models could be generated:")
	for _, f := range report.Skipped {
		lines = append(lines, fmt.Sprintf("  %s: %s", f.Model, f.Err))
	}
	return fmt.Errorf("%s", strings.Join(lines, "\n"))
}
