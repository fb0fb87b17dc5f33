package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/leshachaplin/mmpgen/internal/domain"
)

var (
	ErrInvalidBatch = errors.New("batch failed validation")
	ErrNoUploader   = errors.New("upload destination is not configured")
	ErrNoStorage    = errors.New("warehouse is not configured")
)

type Sampler interface {
	SampleBatch(n, historicalDays int) []domain.Event
}

// SamplerFactory returns the sampler for one generation run. Samplers are not shared
// between concurrent runs.
type SamplerFactory func() Sampler

type Uploader interface {
	Upload(ctx context.Context, events []domain.Event, blobName string) (string, error)
	Size(ctx context.Context, blobName string) (int64, error)
}

type Publisher interface {
	Publish(ctx context.Context, key string, payload any) error
}

type Storage interface {
	StoreEvents(ctx context.Context, events domain.EventBatch) error
}

type Service struct {
	newSampler SamplerFactory
	uploader   Uploader
	prefix     string
	publisher  Publisher
	storage    Storage
	now        func() time.Time
	logger     zerolog.Logger
}

type Option func(*Service)

// WithUploader uploads generated batches under prefix.
func WithUploader(u Uploader, prefix string) Option {
	return func(s *Service) {
		s.uploader = u
		s.prefix = prefix
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithStorage(st Storage) Option {
	return func(s *Service) {
		s.storage = st
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(newSampler SamplerFactory, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		newSampler: newSampler,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sample draws a batch without validating or storing it.
func (s *Service) Sample(n, historicalDays int) []domain.Event {
	return s.newSampler().SampleBatch(n, historicalDays)
}
