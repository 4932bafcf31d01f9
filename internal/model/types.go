package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

const (
	StageSearched = "searched"
	StageMerged   = "merged"
)

// RunSettings is the configuration a run was executed with.
type RunSettings struct {
	Width          int     `json:"width"`
	PopulationSize int     `json:"population_size"`
	LowerSize      int     `json:"lower_size"`
	UpperSize      int     `json:"upper_size"`
	MaxIter        int     `json:"max_iter"`
	Threshold      float64 `json:"threshold"`
	Diversity      float64 `json:"diversity"`
	ExtendLength   int     `json:"extend_length"`
	Selection      string  `json:"selection"`
	Seed           int64   `json:"seed"`
	MergeMaxRounds int     `json:"merge_max_rounds"`
}

type RunRecord struct {
	VersionedRecord
	ID             string      `json:"id"`
	Source         string      `json:"source,omitempty"`
	Stage          string      `json:"stage"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	Settings       RunSettings `json:"settings"`
	Rows           int         `json:"rows"`
	ConvergedRows  int         `json:"converged_rows"`
	MeanBestScore  float64     `json:"mean_best_score"`
	Cells          int         `json:"cells"`
	Vocabulary     int         `json:"vocabulary"`
	MergeRounds    int         `json:"merge_rounds"`
	MergeConverged bool        `json:"merge_converged"`
	MissedChars    int         `json:"missed_chars"`
}

// Encoding is the sentinel-delimited symbol sequence a run searched.
type Encoding struct {
	VersionedRecord
	RunID    string `json:"run_id"`
	Sequence string `json:"sequence"`
	Width    int    `json:"width"`
}

// CellSet holds the finalized search cells carried into the merge stage.
type CellSet struct {
	VersionedRecord
	RunID string   `json:"run_id"`
	Cells []string `json:"cells"`
}

// Vocabulary is the stabilized node vocabulary, longest first.
type Vocabulary struct {
	VersionedRecord
	RunID    string   `json:"run_id"`
	Nodes    []string `json:"nodes"`
	Terminal []string `json:"terminal,omitempty"`
}

// RowFitness summarizes the search of one encoded row.
type RowFitness struct {
	VersionedRecord
	Row            int       `json:"row"`
	BestScore      float64   `json:"best_score"`
	Epochs         int       `json:"epochs"`
	Converged      bool      `json:"converged"`
	BestByEpoch    []float64 `json:"best_by_epoch"`
	BestPopulation []string  `json:"best_population"`
}

// MergeEvent is one vocabulary append made by the node merger.
type MergeEvent struct {
	VersionedRecord
	Round           int    `json:"round"`
	Kind            string `json:"kind"`
	In              string `json:"in"`
	Out             string `json:"out"`
	Merged          string `json:"merged"`
	Weight          int    `json:"weight"`
	MergedFrequency int    `json:"merged_frequency"`
}
