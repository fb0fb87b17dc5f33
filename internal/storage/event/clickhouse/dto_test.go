package clickhouse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leshachaplin/mmpgen/internal/domain"
)

func TestEventsFromBatch(t *testing.T) {
	loadedAt := time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC)
	batch := domain.EventBatch{
		ID: "batch-1",
		Events: []domain.Event{{
			EventID:     "e-1",
			Timestamp:   "2026-02-12T14:30:00Z",
			EventType:   "reinstall",
			Partner:     "Singular",
			CostUSD:     1.25,
			AppID:       "com.example.fitness",
			CampaignID:  "campaign_005_retargeting",
			Platform:    "Android",
			CountryCode: "IN",
		}},
	}

	rows, err := eventsFromBatch(batch, loadedAt)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, event{
		EventID:     "e-1",
		Timestamp:   time.Date(2026, 2, 12, 14, 30, 0, 0, time.UTC),
		EventType:   "reinstall",
		Partner:     "Singular",
		CostUSD:     1.25,
		AppID:       "com.example.fitness",
		CampaignID:  "campaign_005_retargeting",
		Platform:    "Android",
		CountryCode: "IN",
		BatchID:     "batch-1",
		LoadedAt:    loadedAt,
	}, rows[0])
}

func TestEventsFromBatch_BadTimestamp(t *testing.T) {
	_, err := eventsFromBatch(domain.EventBatch{
		Events: []domain.Event{{EventID: "e-1", Timestamp: "yesterday"}},
	}, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "e-1")
}

func TestEventsFromBatch_AcceptedLayouts(t *testing.T) {
	want := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	for _, ts := range []string{
		"2026-02-10T08:00:00+00:00",
		"2026-02-10T10:00:00+02:00",
		"2026-02-10 08:00:00",
		"2026-02-10T08:00",
	} {
		rows, err := eventsFromBatch(domain.EventBatch{
			Events: []domain.Event{{EventID: "e-1", Timestamp: ts}},
		}, time.Now())
		require.NoError(t, err, ts)
		assert.True(t, want.Equal(rows[0].Timestamp), ts)
		assert.Equal(t, time.UTC, rows[0].Timestamp.Location(), ts)
	}
}
