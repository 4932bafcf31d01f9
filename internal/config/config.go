// Package config loads motifmine settings from YAML or JSON files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"motifmine/internal/evo"
	"motifmine/internal/merge"
	"motifmine/internal/symbol"
)

var ErrInvalidConfig = errors.New("invalid config")

type SearchConfig struct {
	PopulationSize int            `yaml:"population_size" json:"population_size"`
	Bounds         evo.SizeBounds `yaml:"bounds" json:"bounds"`
	MaxIter        int            `yaml:"max_iter" json:"max_iter"`
	Threshold      float64        `yaml:"threshold" json:"threshold"`
	Diversity      float64        `yaml:"diversity" json:"diversity"`
	ExtendLength   int            `yaml:"extend_length" json:"extend_length"`
	Selection      string         `yaml:"selection" json:"selection"`
	Seed           int64          `yaml:"seed" json:"seed"`
}

type MergeConfig struct {
	MaxRounds int `yaml:"max_rounds" json:"max_rounds"`
}

type StoreConfig struct {
	Kind string `yaml:"kind" json:"kind"`
	Path string `yaml:"path" json:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

type Config struct {
	Width        int          `yaml:"width" json:"width"`
	Search       SearchConfig `yaml:"search" json:"search"`
	Merge        MergeConfig  `yaml:"merge" json:"merge"`
	Store        StoreConfig  `yaml:"store" json:"store"`
	Log          LogConfig    `yaml:"log" json:"log"`
	ArtifactsDir string       `yaml:"artifacts_dir" json:"artifacts_dir"`
}

func Default() Config {
	return Config{
		Width: symbol.DefaultWidth,
		Search: SearchConfig{
			PopulationSize: 200,
			Bounds:         evo.SizeBounds{Lower: 3, Upper: 40},
			MaxIter:        1000,
			Threshold:      0.90,
			Diversity:      evo.DefaultDiversity,
			ExtendLength:   evo.DefaultExtendLength,
			Selection:      "uniform",
			Seed:           1,
		},
		Merge: MergeConfig{MaxRounds: merge.DefaultMaxRounds},
		Store: StoreConfig{Kind: "memory"},
		Log:   LogConfig{Level: "info", Format: "auto"},
	}
}

// Load overlays the file at path on Default. Files ending in .yaml or .yml are read
// as YAML, everything else as JSON.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Width <= 0 {
		return fmt.Errorf("%w: width must be > 0, got %d", ErrInvalidConfig, c.Width)
	}
	s := c.Search
	if s.PopulationSize <= 0 {
		return fmt.Errorf("%w: population_size must be > 0, got %d", ErrInvalidConfig, s.PopulationSize)
	}
	if err := s.Bounds.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if s.MaxIter < 0 {
		return fmt.Errorf("%w: max_iter must be >= 0, got %d", ErrInvalidConfig, s.MaxIter)
	}
	if s.Threshold < 0 || s.Threshold > 1 {
		return fmt.Errorf("%w: threshold must be in [0, 1], got %g", ErrInvalidConfig, s.Threshold)
	}
	if s.Diversity < 0 || s.Diversity >= 1 {
		return fmt.Errorf("%w: diversity must be in [0, 1), got %g", ErrInvalidConfig, s.Diversity)
	}
	if _, err := evo.SelectorFromName(s.Selection); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Merge.MaxRounds < 0 {
		return fmt.Errorf("%w: merge max_rounds must be >= 0, got %d", ErrInvalidConfig, c.Merge.MaxRounds)
	}
	return nil
}
