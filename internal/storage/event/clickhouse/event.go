package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/leshachaplin/mmpgen/internal/domain"
)

func (c *Clickhouse) StoreEvents(ctx context.Context, events domain.EventBatch) error {
	rows, err := eventsFromBatch(events, time.Now())
	if err != nil {
		return err
	}

	batch, err := c.conn.PrepareBatch(ctx, fmt.Sprintf(`INSERT INTO %s`, c.table))
	if err != nil {
		return err
	}
	for i := 0; i < len(rows); i++ {
		if errAppend := batch.AppendStruct(&rows[i]); errAppend != nil {
			_ = batch.Abort()
			return fmt.Errorf("append event %s: %w", rows[i].EventID, errAppend)
		}
	}
	if err = batch.Send(); err != nil {
		return err
	}

	c.logger.Debug().Str("batch_id", events.ID).Int("events", len(rows)).Msg("stored events")
	return nil
}

// CountByType returns stored events per event_type.
func (c *Clickhouse) CountByType(ctx context.Context) (map[string]uint64, error) {
	rows, err := c.conn.Query(ctx, fmt.Sprintf(`SELECT event_type, count() FROM %s GROUP BY event_type`, c.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]uint64)
	for rows.Next() {
		var (
			eventType string
			n         uint64
		)
		if err = rows.Scan(&eventType, &n); err != nil {
			return nil, err
		}
		counts[eventType] = n
	}
	return counts, rows.Err()
}
