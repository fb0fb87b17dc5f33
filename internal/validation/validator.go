// Package validation checks mobile measurement event records and aggregates batch statistics.
package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/leshachaplin/mmpgen/internal/catalog"
	"github.com/leshachaplin/mmpgen/internal/domain"
)

// ValidateEvent reports whether the record is a well-formed event.
// Absent fields short-circuit the remaining checks; all other findings accumulate.
func ValidateEvent(r domain.Record) (bool, []string) {
	var errs []string

	for _, field := range domain.RequiredFields {
		if v, ok := r[field]; !ok || v == nil {
			errs = append(errs, fmt.Sprintf("Missing required field: %s", field))
		}
	}
	if len(errs) > 0 {
		return false, errs
	}

	if eventTypes := catalog.EventTypes(); !oneOf(r[domain.FieldEventType], eventTypes) {
		errs = append(errs, fmt.Sprintf("Invalid event_type: %v. Must be one of %v", r[domain.FieldEventType], eventTypes))
	}

	if platforms := catalog.Platforms(); !oneOf(r[domain.FieldPlatform], platforms) {
		errs = append(errs, fmt.Sprintf("Invalid platform: %v. Must be one of %v", r[domain.FieldPlatform], platforms))
	}

	if cost, ok := toFloat(r[domain.FieldCostUSD]); !ok {
		errs = append(errs, fmt.Sprintf("Invalid cost_usd value: %v", r[domain.FieldCostUSD]))
	} else if cost < 0 {
		errs = append(errs, fmt.Sprintf("Cost must be non-negative: %v", cost))
	}

	if !isTimestamp(r[domain.FieldTimestamp]) {
		errs = append(errs, fmt.Sprintf("Invalid timestamp format: %v", r[domain.FieldTimestamp]))
	}

	if id, ok := r[domain.FieldEventID].(string); !ok || id == "" {
		errs = append(errs, "event_id must be a non-empty string")
	}

	return len(errs) == 0, errs
}

// ValidateBatch validates records in order. Every invalid record yields one summary
// "Event <index>: <errors joined by '; '>".
func ValidateBatch(records []domain.Record) (valid, invalid int, summaries []string) {
	summaries = make([]string, 0)
	for i, r := range records {
		ok, errs := ValidateEvent(r)
		if ok {
			valid++
			continue
		}
		invalid++
		summaries = append(summaries, fmt.Sprintf("Event %d: %s", i, strings.Join(errs, "; ")))
	}
	return valid, invalid, summaries
}

// Report is the outcome of validating a batch.
type Report struct {
	Valid   int      `json:"valid"`
	Invalid int      `json:"invalid"`
	Errors  []string `json:"errors"`
}

func (r Report) OK() bool {
	return r.Invalid == 0
}

func Check(records []domain.Record) Report {
	valid, invalid, summaries := ValidateBatch(records)
	return Report{
		Valid:   valid,
		Invalid: invalid,
		Errors:  summaries,
	}
}

func oneOf(v any, allowed []string) bool {
	s, ok := v.(string)
	return ok && lo.Contains(allowed, s)
}

func isTimestamp(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	_, err := domain.ParseTimestamp(s)
	return err == nil
}

// toFloat coerces JSON numbers and numeric strings. NaN and infinities are rejected.
func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
