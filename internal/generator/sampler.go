// Package generator draws synthetic mobile measurement events from the catalog distributions.
package generator

import (
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/leshachaplin/mmpgen/internal/catalog"
	"github.com/leshachaplin/mmpgen/internal/domain"
)

const (
	DefaultHistoricalDays = 30
	// MaxHistoricalDays bounds the window accepted from configuration and requests.
	MaxHistoricalDays = 3650

	// maxWindowDays keeps days*secondsPerDay+1 inside int64.
	maxWindowDays = math.MaxInt64/secondsPerDay - 1

	secondsPerDay = 24 * 60 * 60
	progressEvery = 10
)

// ProgressFunc is called with the number of events generated so far and the batch size.
type ProgressFunc func(done, total int)

// Sampler is not safe for concurrent use; give every goroutine its own.
type Sampler struct {
	rnd      *rand.Rand
	now      func() time.Time
	newID    func() string
	progress ProgressFunc

	eventTypes catalog.Dimension
	partners   catalog.Dimension
	platforms  catalog.Dimension
	countries  catalog.Dimension
	apps       []string
	campaigns  []string
}

func New(opts ...Option) *Sampler {
	s := &Sampler{
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
		now:        time.Now,
		newID:      uuid.NewString,
		eventTypes: catalog.EventTypeDimension(),
		partners:   catalog.PartnerDimension(),
		platforms:  catalog.PlatformDimension(),
		countries:  catalog.CountryDimension(),
		apps:       catalog.Apps(),
		campaigns:  catalog.Campaigns(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SampleEvent draws one event with a timestamp within the past historicalDays.
// Negative historicalDays is treated as zero.
func (s *Sampler) SampleEvent(historicalDays int) domain.Event {
	eventType := s.weighted(s.eventTypes)

	// independent of event type
	partner := s.weighted(s.partners)
	platform := s.weighted(s.platforms)
	country := s.weighted(s.countries)

	return domain.Event{
		EventID:     s.newID(),
		Timestamp:   s.timestamp(historicalDays),
		EventType:   eventType,
		Partner:     partner,
		CostUSD:     s.cost(eventType),
		AppID:       s.uniform(s.apps),
		CampaignID:  s.uniform(s.campaigns),
		Platform:    platform,
		CountryCode: country,
	}
}

// SampleBatch draws n independent events. n <= 0 yields an empty batch.
func (s *Sampler) SampleBatch(n, historicalDays int) []domain.Event {
	if n <= 0 {
		return []domain.Event{}
	}

	events := make([]domain.Event, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, s.SampleEvent(historicalDays))

		if s.progress != nil && ((i+1)%progressEvery == 0 || i+1 == n) {
			s.progress(i+1, n)
		}
	}
	return events
}

func (s *Sampler) weighted(d catalog.Dimension) string {
	var total float64
	for _, w := range d.Weights {
		total += w
	}

	r := s.rnd.Float64() * total
	last := 0
	for i, w := range d.Weights {
		if w <= 0 {
			continue
		}
		if r < w {
			return d.Values[i]
		}
		r -= w
		last = i
	}
	// float drift on the final bucket
	return d.Values[last]
}

func (s *Sampler) uniform(values []string) string {
	return values[s.rnd.Intn(len(values))]
}

// cost draws uniformly within the event type's range and rounds half away from zero
// to cents, keeping the result inside the range. A range that holds no whole cent,
// like impressions at 0.001 to 0.01, always yields its max, so impressions cost 0.01.
func (s *Sampler) cost(eventType string) float64 {
	r, ok := catalog.CostRangeFor(eventType)
	if !ok {
		return 0
	}

	v := roundCents(r.Min + s.rnd.Float64()*(r.Max-r.Min))

	lo := math.Ceil(r.Min*100-1e-9) / 100
	hi := math.Floor(r.Max*100+1e-9) / 100
	if lo > hi {
		// range narrower than a cent
		return r.Max
	}
	return math.Min(math.Max(v, lo), hi)
}

func (s *Sampler) timestamp(historicalDays int) string {
	days := int64(historicalDays)
	if days < 0 {
		days = 0
	}
	if days > maxWindowDays {
		days = maxWindowDays
	}
	offset := s.rnd.Int63n(days*secondsPerDay + 1)
	// whole seconds; a time.Duration overflows past ~106751 days
	return time.Unix(s.now().Unix()-offset, 0).UTC().Format(domain.TimestampLayout)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
