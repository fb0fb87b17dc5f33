package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/leshachaplin/mmpgen/internal/domain"
)

type ExecuteFn func(ctx context.Context, batch domain.EventBatch) error

type WorkerPool interface {
	Start(executeFn ExecuteFn)
	GracefulStop()
	Process(ctx context.Context, payload domain.EventBatch) error
}

type Option func(*Pool)

// WithErrorQueue sends batches that failed to publish or execute to q.
func WithErrorQueue(q Queue) Option {
	return func(p *Pool) {
		p.errorQueue = q
	}
}

type Pool struct {
	numWorkers  int
	taskPayload chan domain.EventBatch
	queue       Queue
	errorQueue  Queue
	start       sync.Once
	stop        sync.Once
	doneChan    chan struct{}
	ctx         context.Context
	cancelFn    context.CancelFunc
	wg          *sync.WaitGroup
	logger      zerolog.Logger
}

func New(ctx context.Context, cfg Config, queue Queue, logger zerolog.Logger, opts ...Option) *Pool {
	numWorkers := cfg.NumWorkers
	if numWorkers <= 0 {
		numWorkers = 1
	}

	c, cancelFn := context.WithCancel(ctx)
	p := &Pool{
		numWorkers:  numWorkers,
		taskPayload: make(chan domain.EventBatch, numWorkers),
		doneChan:    make(chan struct{}),
		queue:       queue,
		ctx:         c,
		cancelFn:    cancelFn,
		wg:          &sync.WaitGroup{},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (w *Pool) Start(executeFn ExecuteFn) {
	w.start.Do(func() {
		for i := 0; i < w.numWorkers; i++ {
			w.wg.Add(1)
			l := w.logger.With().Int("worker", i).Logger()
			go w.work(w.ctx, l, executeFn)
		}

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.queue.Consume(w.ctx, w.taskPayload, w.doneChan)
		}()
	})
}

func (w *Pool) GracefulStop() {
	w.stop.Do(func() {
		close(w.doneChan)
		w.cancelFn()
		w.wg.Wait()
	})
}

// Process publishes the batch to the pool's queue. A batch that cannot be published is
// parked on the error queue, and the error is returned only when parking fails too.
func (w *Pool) Process(ctx context.Context, eventBatch domain.EventBatch) error {
	if err := w.queue.Publish(ctx, eventBatch.ID, eventBatch); err != nil {
		return w.onFailure(ctx, eventBatch, err)
	}
	return nil
}

func (w *Pool) onFailure(ctx context.Context, eventBatch domain.EventBatch, err error) error {
	if w.errorQueue == nil {
		return err
	}

	p := payload{
		Payload: eventBatch,
	}
	p.SetErrorReason(err)
	if errPublish := w.errorQueue.Publish(ctx, eventBatch.ID, p); errPublish != nil {
		return errors.Join(err, fmt.Errorf("error queue: %w", errPublish))
	}
	w.logger.Warn().Err(err).Str("batch_id", eventBatch.ID).Int("events", len(eventBatch.Events)).Msg("events moved to error queue")
	return nil
}

func (w *Pool) work(
	ctx context.Context,
	logger zerolog.Logger,
	executeFn ExecuteFn,
) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.doneChan:
			return
		case pld, ok := <-w.taskPayload:
			if !ok {
				return
			}

			logger.Debug().Str("batch_id", pld.ID).Int("events", len(pld.Events)).Msg("start processing events")
			if err := executeFn(ctx, pld); err != nil {
				if err = w.onFailure(ctx, pld, err); err != nil {
					logger.Error().Err(err).Str("batch_id", pld.ID).Int("events", len(pld.Events)).Msg("failed to process events")
				}
			}
			logger.Debug().Str("batch_id", pld.ID).Msg("end processing events")
		}
	}
}

type payload struct {
	Payload domain.EventBatch `json:"payload"`
	Error   *errorReason      `json:"error_reason"`
}

func (c *payload) SetErrorReason(err error) {
	if c.Error == nil {
		c.Error = new(errorReason)
	}
	c.Error.Reason = err
}

type errorReason struct {
	Reason error
}

func (e errorReason) MarshalJSON() ([]byte, error) {
	if e.Reason != nil {
		return json.Marshal(e.Reason.Error())
	}
	return json.Marshal(nil)
}

func (e *errorReason) UnmarshalJSON(data []byte) error {
	var reason string
	if err := json.Unmarshal(data, &reason); err != nil {
		return err
	}
	e.Reason = errors.New(reason)
	return nil
}
