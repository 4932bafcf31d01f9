package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"motifmine/internal/model"
)

const (
	runIndexFile      = "run_index.json"
	fitnessSeriesFile = "fitness_series.csv"
)

var artifactFiles = []string{
	"config.json",
	"cells.json",
	"vocabulary.json",
	"fitness_history.json",
	"merge_history.json",
	fitnessSeriesFile,
}

type RunArtifacts struct {
	Run            model.RunRecord    `json:"run"`
	Cells          []string           `json:"cells"`
	Vocabulary     model.Vocabulary   `json:"vocabulary"`
	FitnessHistory []model.RowFitness `json:"fitness_history"`
	MergeHistory   []model.MergeEvent `json:"merge_history"`
}

type RunIndexEntry struct {
	RunID         string  `json:"run_id"`
	Stage         string  `json:"stage"`
	Source        string  `json:"source,omitempty"`
	Rows          int     `json:"rows"`
	MeanBestScore float64 `json:"mean_best_score"`
	Vocabulary    int     `json:"vocabulary"`
	CreatedAtUTC  string  `json:"created_at_utc"`
}

// WriteRunArtifacts writes one JSON file per artifact under baseDir/<run id> and
// returns that directory.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Run.ID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Run.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Run); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "cells.json"), nonNil(artifacts.Cells)); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "vocabulary.json"), artifacts.Vocabulary); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "fitness_history.json"), artifacts.FitnessHistory); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "merge_history.json"), artifacts.MergeHistory); err != nil {
		return "", err
	}
	if err := writeFitnessSeries(filepath.Join(runDir, fitnessSeriesFile), artifacts.FitnessHistory); err != nil {
		return "", err
	}
	return runDir, nil
}

// ArtifactFiles lists the files WriteRunArtifacts produces.
func ArtifactFiles() []string {
	return append([]string(nil), artifactFiles...)
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	var index []RunIndexEntry
	if _, err := readJSON(filepath.Join(baseDir, runIndexFile), &index); err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the index newest first; equal timestamps keep the later
// appended entry first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	var entries []RunIndexEntry
	ok, err := readJSON(filepath.Join(baseDir, runIndexFile), &entries)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []RunIndexEntry{}, nil
	}

	order := make(map[string]int, len(entries))
	for i, entry := range entries {
		order[entry.RunID] = i
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAtUTC == entries[j].CreatedAtUTC {
			return order[entries[i].RunID] > order[entries[j].RunID]
		}
		return entries[i].CreatedAtUTC > entries[j].CreatedAtUTC
	})
	return entries, nil
}

func writeFitnessSeries(path string, history []model.RowFitness) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"row", "epoch", "best_score"}); err != nil {
		return err
	}
	for _, row := range history {
		for epoch, best := range row.BestByEpoch {
			if err := writer.Write([]string{
				strconv.Itoa(row.Row),
				strconv.Itoa(epoch),
				strconv.FormatFloat(best, 'f', -1, 64),
			}); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

func nonNil(words []string) []string {
	if words == nil {
		return []string{}
	}
	return words
}

func readJSON(path string, value any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, value); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
