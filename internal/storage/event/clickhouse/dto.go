package clickhouse

import (
	"fmt"
	"time"

	"github.com/leshachaplin/mmpgen/internal/domain"
)

type event struct {
	EventID     string    `ch:"event_id"`
	Timestamp   time.Time `ch:"timestamp"`
	EventType   string    `ch:"event_type"`
	Partner     string    `ch:"partner"`
	CostUSD     float64   `ch:"cost_usd"`
	AppID       string    `ch:"app_id"`
	CampaignID  string    `ch:"campaign_id"`
	Platform    string    `ch:"platform"`
	CountryCode string    `ch:"country_code"`
	BatchID     string    `ch:"batch_id"`
	LoadedAt    time.Time `ch:"loaded_at"`
}

func eventsFromBatch(batch domain.EventBatch, loadedAt time.Time) ([]event, error) {
	events := make([]event, len(batch.Events))
	for i := 0; i < len(events); i++ {
		e := batch.Events[i]
		ts, err := e.Time()
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", e.EventID, err)
		}
		events[i] = event{
			EventID:     e.EventID,
			Timestamp:   ts,
			EventType:   e.EventType,
			Partner:     e.Partner,
			CostUSD:     e.CostUSD,
			AppID:       e.AppID,
			CampaignID:  e.CampaignID,
			Platform:    e.Platform,
			CountryCode: e.CountryCode,
			BatchID:     batch.ID,
			LoadedAt:    loadedAt.UTC(),
		}
	}
	return events, nil
}
