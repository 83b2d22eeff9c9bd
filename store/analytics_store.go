// api/store/analytics_store.go
package store

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"globesuggest/api/database"
	"globesuggest/api/models"
	"globesuggest/api/utils"
)

// AnalyticsStore is the ClickHouse mirror of analytics events used for
// reporting. It implements ingest.EventSink.
type AnalyticsStore struct {
	DB *database.ClickHouseClient
}

func NewAnalyticsStore(chClient *database.ClickHouseClient) *AnalyticsStore {
	return &AnalyticsStore{
		DB: chClient,
	}
}

func (s *AnalyticsStore) MirrorEvents(ctx context.Context, events []models.TrackedEvent) error {
	if len(events) == 0 {
		return nil
	}

	// Column order must match the table created by EnsureSchema.
	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO analytics_events (
			event_id, event_type, session_id, product_id, user_id, timestamp,
			page_url, referrer, device, country, duration_ms, event_data
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, event := range events {
		id, err := uuid.Parse(event.EventID)
		if err != nil {
			id = uuid.New()
		}
		err = batch.Append(
			id,
			event.EventType,
			event.SessionID,
			event.ProductID,
			event.UserID,
			event.Timestamp.UTC(),
			event.PageURL,
			event.Referrer,
			event.Device,
			event.Country,
			event.DurationMs,
			string(event.EventData),
		)
		if err != nil {
			log.Printf("Error appending event to batch (EventID: %s): %v", event.EventID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

func (s *AnalyticsStore) GetEventCountsOverTime(ctx context.Context, interval string, start, end time.Time, eventTypeFilter string) ([]models.EventTypeCountByTime, error) {
	if !utils.IsValidInterval(interval) {
		return nil, fmt.Errorf("invalid interval: %s", interval)
	}

	args := []any{start, end}
	selectCols := fmt.Sprintf("toStartOf%s(timestamp) AS time_bucket, count() AS total_events", interval)
	groupByCols := "time_bucket"
	whereClause := "WHERE timestamp >= ? AND timestamp <= ?"
	orderByCols := "time_bucket ASC"
	isFilteringByType := eventTypeFilter != ""

	if isFilteringByType {
		selectCols += ", event_type"
		groupByCols += ", event_type"
		whereClause += " AND event_type = ?"
		args = append(args, eventTypeFilter)
		orderByCols += ", event_type ASC"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM analytics_events
		%s
		GROUP BY %s
		ORDER BY %s
	`, selectCols, whereClause, groupByCols, orderByCols)

	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query event counts over time: %w", err)
	}
	defer rows.Close()

	var results []models.EventTypeCountByTime
	for rows.Next() {
		var (
			timeBucket time.Time
			count      uint64
			eventType  string
			current    models.EventTypeCountByTime
		)
		if isFilteringByType {
			if err := rows.Scan(&timeBucket, &count, &eventType); err != nil {
				log.Printf("Error scanning row for event counts over time (with type filter): %v", err)
				continue
			}
			current.EventType = &eventType
		} else if err := rows.Scan(&timeBucket, &count); err != nil {
			log.Printf("Error scanning row for event counts over time: %v", err)
			continue
		}
		current.Time = timeBucket
		current.Count = count
		results = append(results, current)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during event counts over time query: %w", err)
	}
	return results, nil
}

func (s *AnalyticsStore) GetUniqueSessionsOverTime(ctx context.Context, interval string, start, end time.Time) ([]models.EventTypeCountByTime, error) {
	if !utils.IsValidInterval(interval) {
		return nil, fmt.Errorf("invalid interval: %s", interval)
	}

	query := fmt.Sprintf(`
		SELECT toStartOf%s(timestamp) AS time_bucket, uniq(session_id) AS sessions
		FROM analytics_events
		WHERE timestamp >= ? AND timestamp <= ?
		GROUP BY time_bucket
		ORDER BY time_bucket ASC
	`, interval)

	rows, err := s.DB.Conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query unique sessions over time: %w", err)
	}
	defer rows.Close()

	var results []models.EventTypeCountByTime
	for rows.Next() {
		var timeBucket time.Time
		var sessions uint64
		if err := rows.Scan(&timeBucket, &sessions); err != nil {
			log.Printf("Error scanning row for unique sessions: %v", err)
			continue
		}
		results = append(results, models.EventTypeCountByTime{Time: timeBucket, Count: sessions})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows for unique sessions: %w", err)
	}
	return results, nil
}

func (s *AnalyticsStore) GetAverageEventDuration(ctx context.Context, eventTypeFilter string, start, end time.Time) (float64, error) {
	query := `SELECT avg(duration_ms) FROM analytics_events WHERE timestamp >= ? AND timestamp <= ?`
	args := []any{start, end}
	if eventTypeFilter != "" {
		query += ` AND event_type = ?`
		args = append(args, eventTypeFilter)
	}

	var avgDuration float64
	if err := s.DB.Conn.QueryRow(ctx, query, args...).Scan(&avgDuration); err != nil {
		return 0, fmt.Errorf("failed to query average event duration: %w", err)
	}
	// avg() over no rows is NaN, which encoding/json rejects.
	if math.IsNaN(avgDuration) {
		return 0, nil
	}
	return avgDuration, nil
}

func (s *AnalyticsStore) GetTopProducts(ctx context.Context, start, end time.Time, limit uint64) ([]models.TopProductResult, error) {
	if limit == 0 {
		limit = 10
	}

	query := `
		SELECT product_id, count() AS views, uniq(session_id) AS sessions
		FROM analytics_events
		WHERE event_type = 'page_view' AND product_id != '' AND timestamp >= ? AND timestamp <= ?
		GROUP BY product_id
		ORDER BY views DESC
		LIMIT ?
	`
	rows, err := s.DB.Conn.Query(ctx, query, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top products: %w", err)
	}
	defer rows.Close()

	var results []models.TopProductResult
	for rows.Next() {
		var r models.TopProductResult
		if err := rows.Scan(&r.ProductID, &r.Views, &r.Sessions); err != nil {
			log.Printf("Error scanning row for top products: %v", err)
			continue
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows for top products: %w", err)
	}
	return results, nil
}
