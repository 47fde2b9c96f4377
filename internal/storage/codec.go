package storage

import (
	"encoding/json"
	"errors"

	"synthflow/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeRun(r model.RunRecord) ([]byte, error) {
	return json.Marshal(r)
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

func EncodeScoreHistory(checks []model.ScoreCheck) ([]byte, error) {
	return json.Marshal(checks)
}

func DecodeScoreHistory(data []byte) ([]model.ScoreCheck, error) {
	var checks []model.ScoreCheck
	if err := json.Unmarshal(data, &checks); err != nil {
		return nil, err
	}
	return checks, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
