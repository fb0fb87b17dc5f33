package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/leshachaplin/mmpgen/app/waiter"
	"github.com/leshachaplin/mmpgen/internal/config"
	"github.com/leshachaplin/mmpgen/internal/generator"
	appServer "github.com/leshachaplin/mmpgen/internal/server/http"
	"github.com/leshachaplin/mmpgen/internal/service"
	"github.com/leshachaplin/mmpgen/internal/storage/event/clickhouse"
	"github.com/leshachaplin/mmpgen/internal/storage/gcs"
	"github.com/leshachaplin/mmpgen/internal/worker"
	"github.com/leshachaplin/mmpgen/internal/worker/redpanda/consumer"
	"github.com/leshachaplin/mmpgen/internal/worker/redpanda/producer"
)

const maxLoggedErrors = 20

type LoadConfigFn func() (config.Config, error)

type App struct {
	cfg      config.Config
	logger   zerolog.Logger
	server   *appServer.Server
	waiter   waiter.Waiter
	ctx      context.Context
	cancelFn context.CancelFunc
}

func New(loadConfigFn LoadConfigFn) (*App, error) {
	cfg, err := loadConfigFn()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancelFn := context.WithCancel(context.Background())
	logger := NewZeroLogger(Level(cfg.LogLevel), cfg.LogFormat)

	w := waiter.NewWaiter(ctx, cancelFn)

	return &App{
		cfg:      cfg,
		logger:   logger,
		waiter:   w,
		ctx:      w.Context(),
		cancelFn: w.CancelFunc(),
	}, nil
}

func (a *App) Logger() zerolog.Logger {
	return a.logger
}

// Output is the configured local backup path.
func (a *App) Output() string {
	return a.cfg.Generator.Output
}

// Generate runs one batch through validation, the local backup and the configured sinks.
func (a *App) Generate() (service.GenerateResult, error) {
	gen := a.cfg.Generator

	var closers []func() error
	defer func() { a.close(closers) }()

	var opts []service.Option
	if !gen.LocalOnly {
		uploader, err := gcs.New(a.cfg.Storage, a.logger.With().Str("component", "gcs").Logger())
		if err != nil {
			return service.GenerateResult{}, err
		}
		opts = append(opts, service.WithUploader(uploader, a.cfg.Storage.Prefix))
	}

	if gen.Stream {
		eventProducer, err := producer.NewProducer(
			a.ctx,
			a.cfg.EventProducer,
			a.logger.With().Str("event producer", "Publish").Logger(),
		)
		if err != nil {
			return service.GenerateResult{}, fmt.Errorf("could not setup event producer: %w", err)
		}
		closers = append(closers, eventProducer.Close)

		poolOpts, err := a.deadLetterOptions(&closers)
		if err != nil {
			return service.GenerateResult{}, err
		}
		l := a.logger.With().Str("WORKER", "PUBLISH").Logger()
		publishPool := worker.New(a.ctx, a.cfg.EventWorker, worker.NewRedpandaQueue(eventProducer, nil), l, poolOpts...)
		closers = append(closers, func() error {
			publishPool.GracefulStop()
			return nil
		})
		opts = append(opts, service.WithPublisher(worker.NewPublisher(publishPool)))
	}

	var eventStorage *clickhouse.Clickhouse
	if gen.Warehouse {
		var err error
		if eventStorage, err = a.openStorage(); err != nil {
			return service.GenerateResult{}, err
		}
		defer eventStorage.Close()
		opts = append(opts, service.WithStorage(eventStorage))
	}

	svc := service.New(a.samplerFactory(true), a.logger, opts...)

	a.logger.Info().
		Int("num_events", gen.NumEvents).
		Int("historical_days", gen.HistoricalDays).
		Msg("Generating events.")
	res, err := svc.Generate(a.ctx, service.GenerateRequest{
		NumEvents:      gen.NumEvents,
		HistoricalDays: gen.HistoricalDays,
		Output:         gen.Output,
		LocalOnly:      gen.LocalOnly,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidBatch) {
			a.logErrors(res.Report.Invalid, res.Report.Errors)
		}
		if res.BackupPath != "" {
			a.logger.Warn().Str("path", res.BackupPath).Msg("Local backup is kept.")
		}
		return res, err
	}

	a.logger.Info().Object("summary", res.Summary).Msg("Batch summary.")
	if res.URI != "" {
		a.logger.Info().Str("uri", res.URI).Int64("size_bytes", res.Size).Msg("Upload complete.")
	}
	if eventStorage != nil {
		counts, err := eventStorage.CountByType(a.ctx)
		if err != nil {
			a.logger.Warn().Err(err).Msg("Could not read warehouse totals.")
		} else {
			a.logger.Info().Interface("events_by_type", counts).Msg("Warehouse totals.")
		}
	}
	return res, nil
}

// Validate re-validates an existing JSONL file without generating anything.
func (a *App) Validate(path string) (service.ValidationResult, error) {
	svc := service.New(a.samplerFactory(false), a.logger)

	res, err := svc.ValidateFile(path)
	if err != nil {
		if errors.Is(err, service.ErrInvalidBatch) {
			a.logErrors(res.Invalid, res.Errors)
		}
		return res, err
	}

	a.logger.Info().Int("valid", res.Valid).Str("path", path).Msg("All events validated successfully.")
	a.logger.Info().Object("summary", res.Summary).Msg("Batch summary.")
	return res, nil
}

type BlobInfo struct {
	Name   string
	Exists bool
	Size   int64
}

// Blobs lists the bucket under prefix, or looks up names when any are given.
func (a *App) Blobs(prefix string, names ...string) ([]BlobInfo, error) {
	uploader, err := gcs.New(a.cfg.Storage, a.logger.With().Str("component", "gcs").Logger())
	if err != nil {
		return nil, err
	}

	if len(names) == 0 {
		if names, err = uploader.List(a.ctx, prefix); err != nil {
			return nil, err
		}
	}

	blobs := make([]BlobInfo, 0, len(names))
	for _, name := range names {
		info := BlobInfo{Name: name}
		if info.Exists, err = uploader.Exists(a.ctx, name); err != nil {
			return nil, err
		}
		if info.Exists {
			if info.Size, err = uploader.Size(a.ctx, name); err != nil {
				return nil, err
			}
		}
		blobs = append(blobs, info)
	}
	return blobs, nil
}

// Start serves the HTTP API and, when enabled, the warehouse worker until the app is
// stopped or a signal arrives.
func (a *App) Start() error {
	defer a.cancelFn()

	var closers []func() error
	defer func() { a.close(closers) }()

	var (
		opts      []service.Option
		eventPool *worker.Pool
	)
	if a.cfg.Server.Worker {
		eventStorage, err := a.openStorage()
		if err != nil {
			return err
		}
		closers = append(closers, eventStorage.Close)
		opts = append(opts, service.WithStorage(eventStorage))

		if eventPool, err = a.newEventPool(&closers); err != nil {
			return err
		}
	}

	svc := service.New(a.samplerFactory(false), a.logger, opts...)
	a.server = appServer.New(appServer.NewHandler(svc, a.logger), a.logger)

	a.waitForServer()
	if eventPool != nil {
		svc.StartWorker(eventPool)
		a.waitForWorker(eventPool)
	}

	return a.waiter.Wait()
}

func (a *App) Stop() {
	a.cancelFn()
}

func (a *App) samplerFactory(seeded bool) service.SamplerFactory {
	opts := []generator.Option{
		generator.WithProgress(func(done, total int) {
			a.logger.Debug().Int("done", done).Int("total", total).Msg("Generated events.")
		}),
	}
	if seeded && a.cfg.Generator.Seed != 0 {
		opts = append(opts, generator.WithSeed(a.cfg.Generator.Seed))
	}
	return func() service.Sampler {
		return generator.New(opts...)
	}
}

func (a *App) openStorage() (*clickhouse.Clickhouse, error) {
	eventStorage, err := clickhouse.New(a.ctx, a.cfg.Clickhouse, a.logger.With().Str("component", "clickhouse").Logger())
	if err != nil {
		return nil, fmt.Errorf("could not setup event storage: %w", err)
	}
	if err = eventStorage.Migrate(a.ctx); err != nil {
		_ = eventStorage.Close()
		return nil, fmt.Errorf("could not migrate event storage: %w", err)
	}
	return eventStorage, nil
}

func (a *App) newEventPool(closers *[]func() error) (*worker.Pool, error) {
	consumerErrorChan := make(chan error, 1)
	eventConsumer, err := consumer.NewConsumer(
		a.cfg.EventConsumer,
		consumerErrorChan,
		a.logger.With().Str("event consumer", "Consume").Logger(),
	)
	if err != nil {
		return nil, fmt.Errorf("could not setup event consumer: %w", err)
	}
	*closers = append(*closers, eventConsumer.Close)

	poolOpts, err := a.deadLetterOptions(closers)
	if err != nil {
		return nil, err
	}

	l := a.logger.With().Str("WORKER", "EVENT").Logger()
	eventPool := worker.New(a.ctx, a.cfg.EventWorker, worker.NewRedpandaQueue(nil, eventConsumer), l, poolOpts...)

	a.waiter.Add(func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case err := <-consumerErrorChan:
				l.Warn().Err(err).Msg("Event consumer error.")
			}
		}
	})
	return eventPool, nil
}

// deadLetterOptions sets up the error queue when event_worker.dead_letter_topic is set.
func (a *App) deadLetterOptions(closers *[]func() error) ([]worker.Option, error) {
	topic := a.cfg.EventWorker.DeadLetterTopic
	if topic == "" {
		return nil, nil
	}

	producerCfg := a.cfg.EventProducer
	producerCfg.Topic = topic
	deadLetter, err := producer.NewProducer(
		a.ctx,
		producerCfg,
		a.logger.With().Str("dead letter producer", "Publish").Logger(),
	)
	if err != nil {
		return nil, fmt.Errorf("could not setup dead letter producer: %w", err)
	}
	*closers = append(*closers, deadLetter.Close)
	return []worker.Option{worker.WithErrorQueue(worker.NewRedpandaQueue(deadLetter, nil))}, nil
}

func (a *App) close(closers []func() error) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			a.logger.Warn().Err(err).Msg("Close failed.")
		}
	}
}

func (a *App) logErrors(invalid int, errs []string) {
	a.logger.Error().Int("invalid", invalid).Msg("Validation failed.")
	for i, msg := range errs {
		if i == maxLoggedErrors {
			a.logger.Error().Int("more", len(errs)-i).Msg("Further validation errors omitted.")
			break
		}
		a.logger.Error().Msg(msg)
	}
}

func (a *App) waitForServer() {
	addr := a.cfg.Server.Addr
	a.waiter.Add(func(ctx context.Context) error {
		defer a.logger.Debug().Msg("server has been shutdown")

		group, gCtx := errgroup.WithContext(ctx)
		group.Go(func() error {
			defer a.logger.Debug().Msg("public server exited")
			a.logger.Info().Str("addr", addr).Msg("Starting server.")
			err := a.server.ServePublic(addr)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})

		group.Go(func() error {
			<-gCtx.Done()
			a.logger.Debug().Msg("shutting down the server")
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			if err := a.server.ShutdownPublic(ctx); err != nil {
				a.logger.Warn().Err(err).Msg("error while shutting down the server")
			}
			return nil
		})

		return group.Wait()
	})
}

func (a *App) waitForWorker(eventPool worker.WorkerPool) {
	a.waiter.Add(func(ctx context.Context) error {
		<-ctx.Done()
		eventPool.GracefulStop()
		return nil
	})
}
