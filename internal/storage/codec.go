package storage

import (
	"encoding/json"
	"errors"

	"motifmine/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// CurrentVersion stamps a record for persistence.
func CurrentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeRun(run model.RunRecord) ([]byte, error) {
	return json.Marshal(run)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeEncoding(encoding model.Encoding) ([]byte, error) {
	return json.Marshal(encoding)
}

func DecodeEncoding(data []byte) (model.Encoding, error) {
	var encoding model.Encoding
	if err := json.Unmarshal(data, &encoding); err != nil {
		return model.Encoding{}, err
	}
	if err := checkVersion(encoding.VersionedRecord); err != nil {
		return model.Encoding{}, err
	}
	return encoding, nil
}

func EncodeCells(cells model.CellSet) ([]byte, error) {
	return json.Marshal(cells)
}

func DecodeCells(data []byte) (model.CellSet, error) {
	var cells model.CellSet
	if err := json.Unmarshal(data, &cells); err != nil {
		return model.CellSet{}, err
	}
	if err := checkVersion(cells.VersionedRecord); err != nil {
		return model.CellSet{}, err
	}
	return cells, nil
}

func EncodeVocabulary(vocabulary model.Vocabulary) ([]byte, error) {
	return json.Marshal(vocabulary)
}

func DecodeVocabulary(data []byte) (model.Vocabulary, error) {
	var vocabulary model.Vocabulary
	if err := json.Unmarshal(data, &vocabulary); err != nil {
		return model.Vocabulary{}, err
	}
	if err := checkVersion(vocabulary.VersionedRecord); err != nil {
		return model.Vocabulary{}, err
	}
	return vocabulary, nil
}

func EncodeFitnessHistory(history []model.RowFitness) ([]byte, error) {
	return json.Marshal(history)
}

func DecodeFitnessHistory(data []byte) ([]model.RowFitness, error) {
	var history []model.RowFitness
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	for _, row := range history {
		if err := checkVersion(row.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return history, nil
}

func EncodeMergeHistory(events []model.MergeEvent) ([]byte, error) {
	return json.Marshal(events)
}

func DecodeMergeHistory(data []byte) ([]model.MergeEvent, error) {
	var events []model.MergeEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, err
	}
	for _, event := range events {
		if err := checkVersion(event.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return events, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
