package service

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/leshachaplin/mmpgen/internal/domain"
	"github.com/leshachaplin/mmpgen/internal/storage/jsonl"
	"github.com/leshachaplin/mmpgen/internal/validation"
)

const stampLayout = "20060102_150405"

type GenerateRequest struct {
	NumEvents      int
	HistoricalDays int
	Output         string
	LocalOnly      bool
}

type GenerateResult struct {
	Events     []domain.Event
	Report     validation.Report
	Summary    Summary
	BackupPath string
	URI        string
	Size       int64
}

// Generate samples a batch, validates it, writes the local backup and then hands the
// batch to the configured sinks. The backup is written before any network call, so it
// survives a failed upload; BackupPath is set whenever it was written.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	events := s.newSampler().SampleBatch(req.NumEvents, req.HistoricalDays)
	records := domain.Records(events)

	res := GenerateResult{
		Events: events,
		Report: validation.Check(records),
	}
	if !res.Report.OK() {
		return res, ErrInvalidBatch
	}
	s.logger.Info().Int("valid", res.Report.Valid).Msg("All events validated successfully.")

	summary, err := Summarize(records)
	if err != nil {
		return res, err
	}
	res.Summary = summary

	stamp := s.now().UTC().Format(stampLayout)
	backupPath := BackupPath(req.Output, stamp)
	if err = jsonl.WriteFile(backupPath, events); err != nil {
		return res, fmt.Errorf("save local backup: %w", err)
	}
	res.BackupPath = backupPath
	s.logger.Info().Str("path", backupPath).Msg("Local backup saved.")

	batch := domain.EventBatch{
		ID:     uuid.NewString(),
		Events: events,
	}
	if s.publisher != nil {
		if err = s.publisher.Publish(ctx, batch.ID, batch); err != nil {
			return res, fmt.Errorf("publish batch %s: %w", batch.ID, err)
		}
		s.logger.Info().Str("batch_id", batch.ID).Int("events", len(events)).Msg("Batch published.")
	}
	if s.storage != nil {
		if err = s.storage.StoreEvents(ctx, batch); err != nil {
			return res, fmt.Errorf("store batch %s: %w", batch.ID, err)
		}
		s.logger.Info().Str("batch_id", batch.ID).Int("events", len(events)).Msg("Batch loaded into warehouse.")
	}

	if req.LocalOnly {
		return res, nil
	}
	if s.uploader == nil {
		return res, ErrNoUploader
	}

	blobName := BlobName(s.prefix, stamp)
	uri, err := s.uploader.Upload(ctx, events, blobName)
	if err != nil {
		return res, err
	}
	res.URI = uri

	size, err := s.uploader.Size(ctx, blobName)
	if err != nil {
		s.logger.Warn().Err(err).Str("uri", uri).Msg("Could not read uploaded blob size.")
		return res, nil
	}
	res.Size = size
	return res, nil
}

// BackupPath inserts "_<stamp>" before the extension of output; an output without
// extension gets ".jsonl".
func BackupPath(output, stamp string) string {
	ext := filepath.Ext(output)
	base := strings.TrimSuffix(output, ext)
	if ext == "" {
		ext = ".jsonl"
	}
	return base + "_" + stamp + ext
}

func BlobName(prefix, stamp string) string {
	return path.Join(prefix, "mmp_events_"+stamp+".jsonl")
}
