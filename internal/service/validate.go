package service

import (
	"github.com/leshachaplin/mmpgen/internal/domain"
	"github.com/leshachaplin/mmpgen/internal/storage/jsonl"
	"github.com/leshachaplin/mmpgen/internal/validation"
)

type ValidationResult struct {
	validation.Report
	Summary *Summary `json:"summary,omitempty"`
}

// ValidateFile re-validates an existing JSONL file.
func (s *Service) ValidateFile(path string) (ValidationResult, error) {
	records, err := jsonl.ReadFile(path)
	if err != nil {
		return ValidationResult{}, err
	}
	return s.ValidateRecords(records)
}

// ValidateRecords returns ErrInvalidBatch with the report when any record is invalid;
// the summary is only computed for fully valid batches.
func (s *Service) ValidateRecords(records []domain.Record) (ValidationResult, error) {
	res := ValidationResult{Report: validation.Check(records)}
	if !res.OK() {
		return res, ErrInvalidBatch
	}

	summary, err := Summarize(records)
	if err != nil {
		return res, err
	}
	res.Summary = &summary
	return res, nil
}
