package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"brand-workflow-service/internal/entity"
)

// Config is the YAML shape for overriding stage order and weights, e.g.
//
//	stages:
//	  - name: initializing
//	    weight: 5
//	  - name: brand_identity
//	    weight: 45
type Config struct {
	Stages []StageConfig `yaml:"stages"`
}

type StageConfig struct {
	Name   string `yaml:"name"`
	Weight int    `yaml:"weight"`
}

// LoadConfig reads a pipeline config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML content into a Config.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse pipeline config: %w", err)
	}
	return &cfg, nil
}

// Build resolves each configured stage against the registry of known stage
// functions and assembles a pipeline from them.
func (c *Config) Build(registry map[entity.WorkflowStep]StageFunc) (*Pipeline, error) {
	stages := make([]Stage, 0, len(c.Stages))
	for _, sc := range c.Stages {
		name := entity.WorkflowStep(sc.Name)
		run, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("pipeline: no stage function registered for %q", sc.Name)
		}
		stages = append(stages, Stage{Name: name, Weight: sc.Weight, Run: run})
	}
	return New(stages...)
}
