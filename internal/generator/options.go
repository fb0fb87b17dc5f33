package generator

import (
	"math/rand"
	"time"
)

type Option func(*Sampler)

// WithSeed makes the sampler reproducible.
func WithSeed(seed int64) Option {
	return func(s *Sampler) {
		s.rnd = rand.New(rand.NewSource(seed))
	}
}

func WithRand(rnd *rand.Rand) Option {
	return func(s *Sampler) {
		s.rnd = rnd
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Sampler) {
		s.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Sampler) {
		s.newID = newID
	}
}

func WithProgress(fn ProgressFunc) Option {
	return func(s *Sampler) {
		s.progress = fn
	}
}
