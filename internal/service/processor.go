package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/leshachaplin/mmpgen/internal/domain"
	"github.com/leshachaplin/mmpgen/internal/validation"
	"github.com/leshachaplin/mmpgen/internal/worker"
)

// StartWorker makes pool load every consumed batch into the warehouse.
func (s *Service) StartWorker(pool worker.WorkerPool) {
	pool.Start(s.StoreBatch)
}

// StoreBatch re-validates a batch received from the stream and stores it.
func (s *Service) StoreBatch(ctx context.Context, batch domain.EventBatch) error {
	if s.storage == nil {
		return ErrNoStorage
	}

	report := validation.Check(domain.Records(batch.Events))
	if !report.OK() {
		return fmt.Errorf("%w: %s", ErrInvalidBatch, strings.Join(report.Errors, " | "))
	}

	if err := s.storage.StoreEvents(ctx, batch); err != nil {
		return fmt.Errorf("store batch %s: %w", batch.ID, err)
	}
	s.logger.Debug().Str("batch_id", batch.ID).Int("events", len(batch.Events)).Msg("Batch stored.")
	return nil
}
