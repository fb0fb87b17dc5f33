package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/leshachaplin/mmpgen/internal/domain"
)

// memoryQueue is an in-process Queue.
type memoryQueue struct {
	batches chan domain.EventBatch

	mu       sync.Mutex
	failed   []payload
	failWith error
}

func newMemoryQueue(size int) *memoryQueue {
	return &memoryQueue{batches: make(chan domain.EventBatch, size)}
}

func (q *memoryQueue) Publish(ctx context.Context, _ string, msg any) error {
	if q.failWith != nil {
		return q.failWith
	}
	switch m := msg.(type) {
	case domain.EventBatch:
		select {
		case q.batches <- m:
		case <-ctx.Done():
			return ctx.Err()
		}
	case payload:
		q.mu.Lock()
		q.failed = append(q.failed, m)
		q.mu.Unlock()
	}
	return nil
}

func (q *memoryQueue) Consume(ctx context.Context, out chan<- domain.EventBatch, done <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case b := <-q.batches:
			select {
			case out <- b:
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
	}
}

func (q *memoryQueue) failures() []payload {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]payload(nil), q.failed...)
}

func TestPool_Process(t *testing.T) {
	cases := map[string]struct {
		cfg        Config
		taskAmount int
	}{
		"ok": {
			cfg:        Config{NumWorkers: 10},
			taskAmount: 10,
		},
		"ok - tasks more than workers": {
			cfg:        Config{NumWorkers: 2},
			taskAmount: 100,
		},
		"ok - tasks less than workers": {
			cfg:        Config{NumWorkers: 20},
			taskAmount: 5,
		},
		"ok - zero workers means one": {
			cfg:        Config{},
			taskAmount: 5,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			defer goleak.VerifyNone(t)
			ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
			defer cancel()

			queue := newMemoryQueue(tc.taskAmount)
			pool := New(ctx, tc.cfg, queue, zerolog.Nop())

			var (
				mu   sync.Mutex
				seen = make(map[string]int)
				wg   sync.WaitGroup
			)
			wg.Add(tc.taskAmount)
			pool.Start(func(ctx context.Context, batch domain.EventBatch) error {
				mu.Lock()
				seen[batch.ID]++
				mu.Unlock()
				wg.Done()
				return nil
			})

			ids := make([]string, tc.taskAmount)
			for k := 0; k < tc.taskAmount; k++ {
				ids[k] = uuid.NewString()
				require.NoError(t, pool.Process(ctx, domain.EventBatch{
					ID:     ids[k],
					Events: []domain.Event{{EventID: uuid.NewString()}},
				}))
			}

			wg.Wait()
			pool.GracefulStop()

			require.Len(t, seen, tc.taskAmount)
			for _, id := range ids {
				assert.Equal(t, 1, seen[id])
			}
		})
	}
}

func TestPool_FailedBatchesGoToErrorQueue(t *testing.T) {
	defer goleak.VerifyNone(t)

	queue := newMemoryQueue(1)
	deadLetters := newMemoryQueue(0)
	pool := New(context.Background(), Config{NumWorkers: 1}, queue, zerolog.Nop(), WithErrorQueue(deadLetters))

	done := make(chan struct{})
	pool.Start(func(ctx context.Context, batch domain.EventBatch) error {
		defer close(done)
		return errors.New("warehouse unavailable")
	})

	require.NoError(t, pool.Process(context.Background(), domain.EventBatch{ID: "batch-1"}))
	<-done
	pool.GracefulStop()

	failed := deadLetters.failures()
	require.Len(t, failed, 1)
	assert.Equal(t, "batch-1", failed[0].Payload.ID)
	require.NotNil(t, failed[0].Error)
	assert.EqualError(t, failed[0].Error.Reason, "warehouse unavailable")
}

func TestPool_ProcessPublishFailure(t *testing.T) {
	brokerDown := errors.New("broker down")

	cases := map[string]struct {
		errorQueue *memoryQueue
		wantErr    error
		wantParked int
	}{
		"no error queue": {
			wantErr: brokerDown,
		},
		"parked on error queue": {
			errorQueue: newMemoryQueue(0),
			wantParked: 1,
		},
		"error queue down too": {
			errorQueue: &memoryQueue{failWith: errors.New("dead letter topic missing")},
			wantErr:    brokerDown,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			defer goleak.VerifyNone(t)

			queue := newMemoryQueue(1)
			queue.failWith = brokerDown
			var opts []Option
			if tc.errorQueue != nil {
				opts = append(opts, WithErrorQueue(tc.errorQueue))
			}
			pool := New(context.Background(), Config{NumWorkers: 1}, queue, zerolog.Nop(), opts...)
			defer pool.GracefulStop()

			err := pool.Process(context.Background(), domain.EventBatch{ID: "batch-1"})
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}
			if tc.errorQueue != nil {
				failed := tc.errorQueue.failures()
				require.Len(t, failed, tc.wantParked)
				if tc.wantParked > 0 {
					assert.Equal(t, "batch-1", failed[0].Payload.ID)
					assert.EqualError(t, failed[0].Error.Reason, "broker down")
				}
			}
		})
	}
}

func TestPublisher(t *testing.T) {
	defer goleak.VerifyNone(t)

	queue := newMemoryQueue(1)
	pool := New(context.Background(), Config{NumWorkers: 1}, queue, zerolog.Nop())
	defer pool.GracefulStop()
	pub := NewPublisher(pool)

	batch := domain.EventBatch{ID: "batch-1", Events: []domain.Event{{EventID: "e-1"}}}
	require.NoError(t, pub.Publish(context.Background(), batch.ID, batch))
	assert.Equal(t, batch, <-queue.batches)

	err := pub.Publish(context.Background(), "k", []domain.Event{{EventID: "e-1"}})
	require.ErrorIs(t, err, ErrUnsupportedPayload)
}

func TestPool_GracefulStopIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := New(context.Background(), Config{NumWorkers: 3}, newMemoryQueue(0), zerolog.Nop())
	pool.Start(func(context.Context, domain.EventBatch) error { return nil })
	pool.GracefulStop()
	pool.GracefulStop()
}

func TestRedpandaQueue_NoProducer(t *testing.T) {
	q := NewRedpandaQueue(nil, nil)
	require.ErrorIs(t, q.Publish(context.Background(), "k", domain.EventBatch{}), ErrNoProducer)

	// returns immediately without a consumer
	q.Consume(context.Background(), make(chan domain.EventBatch), make(chan struct{}))
}

func TestPayload_ErrorReasonJSON(t *testing.T) {
	p := payload{Payload: domain.EventBatch{ID: "b"}}
	assert.Nil(t, p.Error)

	p.SetErrorReason(errors.New("boom"))
	data, err := p.Error.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `"boom"`, string(data))

	var decoded errorReason
	require.NoError(t, decoded.UnmarshalJSON(data))
	assert.EqualError(t, decoded.Reason, "boom")
}
