package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 200, cfg.Search.PopulationSize)
	assert.Equal(t, 3, cfg.Search.Bounds.Lower)
	assert.Equal(t, 40, cfg.Search.Bounds.Upper)
	assert.Equal(t, 0.90, cfg.Search.Threshold)
	assert.Equal(t, 1000, cfg.Search.MaxIter)
	assert.Equal(t, 3, cfg.Width)
}

func TestLoadYAMLOverlaysDefaults(t *testing.T) {
	path := writeFile(t, "motifmine.yaml", `
search:
  population_size: 50
  bounds:
    lower: 2
    upper: 8
  selection: tournament
store:
  kind: badger
  path: /tmp/motifmine
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Search.PopulationSize)
	assert.Equal(t, 2, cfg.Search.Bounds.Lower)
	assert.Equal(t, 8, cfg.Search.Bounds.Upper)
	assert.Equal(t, "tournament", cfg.Search.Selection)
	assert.Equal(t, 1000, cfg.Search.MaxIter)
	assert.Equal(t, "badger", cfg.Store.Kind)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "motifmine.json", `{"search": {"threshold": 0.75, "seed": 9}, "merge": {"max_rounds": 5}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.75, cfg.Search.Threshold)
	assert.Equal(t, int64(9), cfg.Search.Seed)
	assert.Equal(t, 5, cfg.Merge.MaxRounds)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"threshold": `{"search": {"threshold": 2}}`,
		"bounds":    `{"search": {"bounds": {"lower": 5, "upper": 1}}}`,
		"selection": `{"search": {"selection": "roulette"}}`,
		"width":     `{"width": 0}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "bad.json", body))
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
