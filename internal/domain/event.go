package domain

import "time"

// TimestampLayout is the wire layout of Event.Timestamp: UTC, second precision, trailing Z.
const TimestampLayout = "2006-01-02T15:04:05Z"

// TimestampLayouts are the ISO-8601 forms accepted when reading events back.
// Layouts without a zone are read as UTC.
var TimestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

const (
	FieldEventID     = "event_id"
	FieldTimestamp   = "timestamp"
	FieldEventType   = "event_type"
	FieldPartner     = "partner"
	FieldCostUSD     = "cost_usd"
	FieldAppID       = "app_id"
	FieldCampaignID  = "campaign_id"
	FieldPlatform    = "platform"
	FieldCountryCode = "country_code"
)

// RequiredFields lists every field an event record must carry, in wire order.
var RequiredFields = []string{
	FieldEventID,
	FieldTimestamp,
	FieldEventType,
	FieldPartner,
	FieldCostUSD,
	FieldAppID,
	FieldCampaignID,
	FieldPlatform,
	FieldCountryCode,
}

type Event struct {
	EventID     string  `json:"event_id" ch:"event_id"`
	Timestamp   string  `json:"timestamp" ch:"timestamp"`
	EventType   string  `json:"event_type" ch:"event_type"`
	Partner     string  `json:"partner" ch:"partner"`
	CostUSD     float64 `json:"cost_usd" ch:"cost_usd"`
	AppID       string  `json:"app_id" ch:"app_id"`
	CampaignID  string  `json:"campaign_id" ch:"campaign_id"`
	Platform    string  `json:"platform" ch:"platform"`
	CountryCode string  `json:"country_code" ch:"country_code"`
}

// ParseTimestamp parses s with the first matching layout of TimestampLayouts.
func ParseTimestamp(s string) (time.Time, error) {
	var err error
	for _, layout := range TimestampLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}

// Time parses the wire timestamp.
func (e Event) Time() (time.Time, error) {
	return ParseTimestamp(e.Timestamp)
}

// Record returns the event as an untyped record, the shape the validator works on.
func (e Event) Record() Record {
	return Record{
		FieldEventID:     e.EventID,
		FieldTimestamp:   e.Timestamp,
		FieldEventType:   e.EventType,
		FieldPartner:     e.Partner,
		FieldCostUSD:     e.CostUSD,
		FieldAppID:       e.AppID,
		FieldCampaignID:  e.CampaignID,
		FieldPlatform:    e.Platform,
		FieldCountryCode: e.CountryCode,
	}
}

// Record is a decoded JSON object that may be missing fields or carry wrong types.
type Record map[string]any

// Records converts generated events into records.
func Records(events []Event) []Record {
	records := make([]Record, len(events))
	for i := range events {
		records[i] = events[i].Record()
	}
	return records
}

type EventBatch struct {
	ID     string  `json:"id"`
	Events []Event `json:"events"`
}
