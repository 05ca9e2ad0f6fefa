package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Version  int     `yaml:"version"`
	Models   []Model `yaml:"models"`
	Output   Output  `yaml:"output"`
	MaxDepth int     `yaml:"maxDepth"`
}

type Model struct {
	Path string `yaml:"path"`
}

type Output struct {
	Path      string   `yaml:"path"`
	Targets   []string `yaml:"targets"`
	GoPackage string   `yaml:"goPackage"`
}

func Read(configPath string) (*Config, error) {
	fileData, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf(`failed to read config file "%s": %w`, configPath, err)
	}

	var config Config
	if err := yaml.Unmarshal(fileData, &config); err != nil {
		return nil, fmt.Errorf(`failed to unmarshal config file "%s": %w`, configPath, err)
	}

	return &config, nil
}
