package validation

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/leshachaplin/mmpgen/internal/domain"
)

const unknownValue = "unknown"

// Distribution counts records per event_type. Records without one count as "unknown".
func Distribution(records []domain.Record) map[string]int {
	return CountBy(records, domain.FieldEventType)
}

// CountBy counts records per value of field.
func CountBy(records []domain.Record, field string) map[string]int {
	return lo.CountValuesBy(records, func(r domain.Record) string {
		v, ok := r[field]
		if !ok || v == nil {
			return unknownValue
		}
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	})
}

// TotalCost sums cost_usd over records; records without it contribute zero.
func TotalCost(records []domain.Record) (float64, error) {
	var total float64
	for i, r := range records {
		v, ok := r[domain.FieldCostUSD]
		if !ok || v == nil {
			continue
		}
		cost, ok := toFloat(v)
		if !ok {
			return 0, fmt.Errorf("event %d: cost_usd %v is not a number", i, v)
		}
		total += cost
	}
	return total, nil
}
