package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/leshachaplin/mmpgen/internal/domain"
)

var ErrUnsupportedPayload = errors.New("payload is not an event batch")

// Publisher publishes event batches through a pool so that failed publishes land on the
// pool's error queue.
type Publisher struct {
	pool WorkerPool
}

func NewPublisher(pool WorkerPool) *Publisher {
	return &Publisher{pool: pool}
}

// Publish sends msg, which must be a domain.EventBatch. The batch ID is the record key.
func (p *Publisher) Publish(ctx context.Context, _ string, msg any) error {
	batch, ok := msg.(domain.EventBatch)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedPayload, msg)
	}
	return p.pool.Process(ctx, batch)
}
