package worker

import (
	"context"
	"errors"

	"github.com/leshachaplin/mmpgen/internal/domain"
	"github.com/leshachaplin/mmpgen/internal/worker/redpanda/consumer"
	"github.com/leshachaplin/mmpgen/internal/worker/redpanda/producer"
)

var ErrNoProducer = errors.New("queue has no producer")

type Queue interface {
	Publish(ctx context.Context, key string, payload any) error
	Consume(ctx context.Context, taskPayload chan<- domain.EventBatch, done <-chan struct{})
}

// RedpandaQueue publishes through producer and consumes through consumer. Either may be
// nil when the queue is used in one direction only.
type RedpandaQueue struct {
	producer *producer.Producer
	consumer *consumer.Consumer
}

func NewRedpandaQueue(producer *producer.Producer, consumer *consumer.Consumer) *RedpandaQueue {
	return &RedpandaQueue{
		producer: producer,
		consumer: consumer,
	}
}

func (r *RedpandaQueue) Publish(ctx context.Context, key string, payload any) error {
	if r.producer == nil {
		return ErrNoProducer
	}
	if err := r.producer.Publish(ctx, key, payload); err != nil {
		return err
	}
	return nil
}

func (r *RedpandaQueue) Consume(ctx context.Context, taskPayload chan<- domain.EventBatch, done <-chan struct{}) {
	if r.consumer == nil {
		return
	}
	r.consumer.Consume(ctx, taskPayload, done)
}
