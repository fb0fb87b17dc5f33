package service

import (
	"fmt"
	"slices"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/leshachaplin/mmpgen/internal/domain"
	"github.com/leshachaplin/mmpgen/internal/validation"
)

type Summary struct {
	TotalEvents    int            `json:"total_events"`
	EventTypes     map[string]int `json:"event_types"`
	Partners       map[string]int `json:"partners"`
	Platforms      map[string]int `json:"platforms"`
	TotalCostUSD   float64        `json:"total_cost_usd"`
	AverageCostUSD float64        `json:"average_cost_usd"`
}

func Summarize(records []domain.Record) (Summary, error) {
	total, err := validation.TotalCost(records)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{
		TotalEvents:  len(records),
		EventTypes:   validation.Distribution(records),
		Partners:     validation.CountBy(records, domain.FieldPartner),
		Platforms:    validation.CountBy(records, domain.FieldPlatform),
		TotalCostUSD: total,
	}
	if s.TotalEvents > 0 {
		s.AverageCostUSD = total / float64(s.TotalEvents)
	}
	return s, nil
}

func (s Summary) MarshalZerologObject(e *zerolog.Event) {
	e.Int("total_events", s.TotalEvents).
		Dict("event_types", s.shares(s.EventTypes)).
		Dict("partners", s.shares(s.Partners)).
		Dict("platforms", s.shares(s.Platforms)).
		Str("total_cost_usd", fmt.Sprintf("%.2f", s.TotalCostUSD)).
		Str("average_cost_usd", fmt.Sprintf("%.2f", s.AverageCostUSD))
}

// shares renders "count (pct%)" per key, keys sorted.
func (s Summary) shares(counts map[string]int) *zerolog.Event {
	d := zerolog.Dict()
	keys := lo.Keys(counts)
	slices.Sort(keys)
	for _, k := range keys {
		var pct float64
		if s.TotalEvents > 0 {
			pct = float64(counts[k]) / float64(s.TotalEvents) * 100
		}
		d.Str(k, fmt.Sprintf("%d (%.1f%%)", counts[k], pct))
	}
	return d
}
