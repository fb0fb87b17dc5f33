//go:build integration

package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/goleak"

	"github.com/leshachaplin/mmpgen/internal/domain"
	"github.com/leshachaplin/mmpgen/internal/testingh"
	"github.com/leshachaplin/mmpgen/internal/worker/redpanda/consumer"
	"github.com/leshachaplin/mmpgen/internal/worker/redpanda/producer"
)

const (
	topic = "mmp-events"
)

var (
	defaultTopics = []string{topic}
)

type IntegrationTestSuite struct {
	ctx      context.Context
	cancelFn context.CancelFunc

	kafkaCLi  *kadm.Client
	container *testingh.Container
	broker    string

	consumerCfg consumer.Config
	producerCfg producer.Config

	suite.Suite
}

func (i *IntegrationTestSuite) SetupSuite() {
	var err error
	ctx, cnsl := context.WithTimeout(context.Background(), time.Minute*2)
	i.ctx = ctx
	i.cancelFn = cnsl

	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	i.container, err = testingh.NewRedpanda(func(connURL string) error {
		i.broker = connURL
		opts := []kgo.Opt{
			kgo.SeedBrokers(connURL),
		}

		pandaCLi, err := kgo.NewClient(opts...)
		if err != nil {
			return err
		}

		pingErr := pandaCLi.Ping(ctx)
		if pingErr != nil {
			pandaCLi.Close()
			return pingErr
		}

		i.kafkaCLi = kadm.NewClient(pandaCLi)
		return nil
	})
	i.Require().NoError(err)

	createTopicResponses, err := i.prepareTopics(ctx, defaultTopics...)
	i.Assert().NoError(err)
	i.kafkaCLi.Close()

	for _, response := range createTopicResponses {
		i.Require().NoError(response.Err)
	}

	i.consumerCfg = consumer.Config{
		Brokers:       []string{i.broker},
		ConsumerGroup: "mmp-events-cg",
		Topics:        []string{topic},
		RetryCount:    5,
	}
	i.producerCfg = producer.Config{
		RetryAttempts: 5,
		RetryDelay:    time.Second,
		Brokers:       []string{i.broker},
		Topic:         topic,
	}
}

func (i *IntegrationTestSuite) TearDownSuite() {
	i.cancelFn()
	err := i.container.Purge()
	i.Assert().NoError(err)
}

func TestIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(IntegrationTestSuite))
}

func (i *IntegrationTestSuite) prepareTopics(ctx context.Context, topics ...string) (kadm.CreateTopicResponses, error) {
	resp, err := i.kafkaCLi.CreateTopics(
		ctx,
		1,
		1,
		map[string]*string{},
		topics...,
	)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (i *IntegrationTestSuite) TestWorker_RedpandaQueue() {
	cases := map[string]struct {
		cfg        Config
		taskAmount int
	}{
		"ok": {
			cfg:        Config{NumWorkers: 10},
			taskAmount: 10,
		},
		"ok - tasks more than workers": {
			cfg:        Config{NumWorkers: 4},
			taskAmount: 200,
		},
	}

	for name, tc := range cases {
		i.Run(name, func() {
			defer goleak.VerifyNone(i.T(), goleak.IgnoreCurrent())
			ctx, cancel := context.WithTimeout(i.ctx, time.Minute)
			defer cancel()

			consumerErrorChan := make(chan error, 1)
			eventConsumer, err := consumer.NewConsumer(i.consumerCfg, consumerErrorChan, log.Logger)
			i.Require().NoError(err)

			eventProducer, err := producer.NewProducer(ctx, i.producerCfg, log.With().Str("producer", "Publish").Logger())
			i.Require().NoError(err)

			received := make(chan string, tc.taskAmount)
			pool := New(ctx, tc.cfg, NewRedpandaQueue(eventProducer, eventConsumer), log.With().Str("WORKER", "PROCESS").Logger())
			pool.Start(func(ctx context.Context, batch domain.EventBatch) error {
				received <- batch.ID
				return nil
			})

			want := make(map[string]struct{}, tc.taskAmount)
			for k := 0; k < tc.taskAmount; k++ {
				id := uuid.NewString()
				want[id] = struct{}{}
				i.Require().NoError(pool.Process(ctx, domain.EventBatch{
					ID:     id,
					Events: []domain.Event{{EventID: uuid.NewString(), EventType: "click"}},
				}))
			}

			for len(want) > 0 {
				select {
				case id := <-received:
					delete(want, id)
				case <-ctx.Done():
					i.FailNow("batches not consumed", "%d left", len(want))
				}
			}

			pool.GracefulStop()
			i.NoError(eventConsumer.Close())
			i.NoError(eventProducer.Close())
		})
	}
}
