// Package catalog holds the static distributions mobile measurement events are drawn from.
package catalog

import (
	"errors"
	"fmt"
)

const (
	Impression = "impression"
	Click      = "click"
	Install    = "install"
	Reinstall  = "reinstall"

	IOS     = "iOS"
	Android = "Android"
)

// Dimension is a categorical distribution: Values[i] is drawn with weight Weights[i].
// Weights need not sum to one.
type Dimension struct {
	Values  []string
	Weights []float64
}

// CostRange is an inclusive USD range.
type CostRange struct {
	Min float64
	Max float64
}

func (r CostRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

var (
	eventTypes = Dimension{
		Values:  []string{Impression, Click, Install, Reinstall},
		Weights: []float64{0.60, 0.25, 0.12, 0.03},
	}

	// market share of measurement partners
	partners = Dimension{
		Values:  []string{"Adjust", "AppsFlyer", "Branch", "Kochava", "Singular"},
		Weights: []float64{0.30, 0.35, 0.20, 0.10, 0.05},
	}

	platforms = Dimension{
		Values:  []string{IOS, Android},
		Weights: []float64{0.40, 0.60},
	}

	countries = Dimension{
		Values:  []string{"US", "CN", "IN", "BR", "JP", "DE", "GB", "FR", "KR", "CA"},
		Weights: []float64{0.25, 0.15, 0.12, 0.10, 0.08, 0.07, 0.06, 0.05, 0.05, 0.07},
	}

	// CPM, CPC and CPI-like cost models
	costRanges = map[string]CostRange{
		Impression: {Min: 0.001, Max: 0.01},
		Click:      {Min: 0.10, Max: 0.50},
		Install:    {Min: 1.50, Max: 8.00},
		Reinstall:  {Min: 0.80, Max: 4.00},
	}

	apps = []string{
		"com.example.game",
		"com.example.fitness",
		"com.example.social",
		"com.example.ecommerce",
		"com.example.productivity",
	}

	campaigns = []string{
		"campaign_001_summer",
		"campaign_002_winter",
		"campaign_003_holiday",
		"campaign_004_launch",
		"campaign_005_retargeting",
		"campaign_006_brand",
		"campaign_007_performance",
		"campaign_008_test",
	}
)

func EventTypeDimension() Dimension { return eventTypes.clone() }
func PartnerDimension() Dimension   { return partners.clone() }
func PlatformDimension() Dimension  { return platforms.clone() }
func CountryDimension() Dimension   { return countries.clone() }

func EventTypes() []string { return clone(eventTypes.Values) }
func Partners() []string   { return clone(partners.Values) }
func Platforms() []string  { return clone(platforms.Values) }
func Countries() []string  { return clone(countries.Values) }
func Apps() []string       { return clone(apps) }
func Campaigns() []string  { return clone(campaigns) }

// CostRangeFor returns the cost range registered for eventType.
func CostRangeFor(eventType string) (CostRange, bool) {
	r, ok := costRanges[eventType]
	return r, ok
}

var ErrMalformed = errors.New("malformed catalog")

// Validate reports the first structural problem of the built-in tables.
func Validate() error {
	dims := map[string]Dimension{
		"event_type": eventTypes,
		"partner":    partners,
		"platform":   platforms,
		"country":    countries,
	}
	for name, d := range dims {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	for _, et := range eventTypes.Values {
		r, ok := costRanges[et]
		if !ok {
			return fmt.Errorf("%w: no cost range for %q", ErrMalformed, et)
		}
		if r.Min < 0 || r.Min > r.Max {
			return fmt.Errorf("%w: bad cost range for %q: [%v, %v]", ErrMalformed, et, r.Min, r.Max)
		}
	}

	if len(apps) == 0 || len(campaigns) == 0 {
		return fmt.Errorf("%w: empty sample set", ErrMalformed)
	}
	return nil
}

// Validate checks the vectors are parallel, weights are non-negative and not all zero.
func (d Dimension) Validate() error {
	if len(d.Values) == 0 {
		return fmt.Errorf("%w: no values", ErrMalformed)
	}
	if len(d.Values) != len(d.Weights) {
		return fmt.Errorf("%w: %d values, %d weights", ErrMalformed, len(d.Values), len(d.Weights))
	}

	var total float64
	for i, w := range d.Weights {
		if w < 0 {
			return fmt.Errorf("%w: negative weight for %q", ErrMalformed, d.Values[i])
		}
		total += w
	}
	if total == 0 {
		return fmt.Errorf("%w: all weights are zero", ErrMalformed)
	}
	return nil
}

func (d Dimension) clone() Dimension {
	return Dimension{
		Values:  clone(d.Values),
		Weights: clone(d.Weights),
	}
}

func clone[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}
