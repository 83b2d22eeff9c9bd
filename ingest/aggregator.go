// Package ingest merges decrypted telemetry snapshots into durable
// analytics sessions and events.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"globesuggest/api/models"
)

const (
	StatusOK      = "ok"
	StatusIgnored = "ignored"

	ReasonMissingSession = "missing session_id"
	ReasonInvalidPayload = "invalid_payload"
)

// Tx is the transactional view of the analytics store used for one ingest.
type Tx interface {
	// GetOrCreateSession returns the row for (seed.SessionID, seed.ProductID),
	// inserting seed first when none exists. The row is locked for the rest
	// of the transaction where the backend supports it.
	GetOrCreateSession(ctx context.Context, seed models.AnalyticsSession) (*models.AnalyticsSession, error)
	UpdateSession(ctx context.Context, s *models.AnalyticsSession) error
	InsertEvent(ctx context.Context, e *models.AnalyticsEvent) error
}

type Repository interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// EventSink receives committed events for the reporting store.
type EventSink interface {
	MirrorEvents(ctx context.Context, events []models.TrackedEvent) error
}

type Aggregator struct {
	repo  Repository
	sink  EventSink
	locks *keyedMutex
	now   func() time.Time
}

// NewAggregator builds an Aggregator. sink may be nil.
func NewAggregator(repo Repository, sink EventSink) *Aggregator {
	return &Aggregator{
		repo:  repo,
		sink:  sink,
		locks: newKeyedMutex(),
		now:   time.Now,
	}
}

// Ingest applies one snapshot. Re-ingesting the same payload is allowed:
// counters stay monotonic, section durations add up again and events are
// appended again.
func (a *Aggregator) Ingest(ctx context.Context, payload models.IngestPayload) (models.IngestResult, error) {
	in := payload.Session
	sessionID := truncate(str(in["session_id"]), maxSessionID)
	if sessionID == "" {
		return models.IngestResult{Status: StatusIgnored, Reason: ReasonMissingSession}, nil
	}
	productID := truncate(str(in["product_id"]), maxProductID)

	session, saved, err := a.apply(ctx, sessionID, productID, payload)
	if err != nil {
		return models.IngestResult{}, err
	}

	a.mirror(ctx, session, saved)

	return models.IngestResult{
		Status:      StatusOK,
		SessionID:   session.SessionID,
		ProductID:   session.ProductID,
		EventsSaved: len(saved),
	}, nil
}

// apply merges payload into the stored session under the per-key lock. The
// lock covers the transaction only.
func (a *Aggregator) apply(ctx context.Context, sessionID, productID string, payload models.IngestPayload) (*models.AnalyticsSession, []models.AnalyticsEvent, error) {
	unlock := a.locks.Lock(sessionID + "\x00" + productID)
	defer unlock()

	in := payload.Session
	var (
		session *models.AnalyticsSession
		saved   []models.AnalyticsEvent
	)
	err := a.repo.InTx(ctx, func(tx Tx) error {
		seed := models.AnalyticsSession{
			SessionID: sessionID,
			ProductID: productID,
			UserID:    truncate(str(in["user_id"]), maxUserID),
			StartedAt: parseTime(in["started_at"]),
			EndedAt:   parseTime(in["ended_at"]),
		}
		s, err := tx.GetOrCreateSession(ctx, seed)
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}

		mergeSession(s, in)
		if err := tx.UpdateSession(ctx, s); err != nil {
			return fmt.Errorf("update session: %w", err)
		}

		events := buildEvents(s, payload.Events, a.now().UTC())
		for i := range events {
			if err := tx.InsertEvent(ctx, &events[i]); err != nil {
				return fmt.Errorf("insert event %q: %w", events[i].EventType, err)
			}
		}
		session, saved = s, events
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return session, saved, nil
}

// mirror copies committed events to the sink. The primary write has already
// succeeded, so failures are only logged.
func (a *Aggregator) mirror(ctx context.Context, s *models.AnalyticsSession, events []models.AnalyticsEvent) {
	if a.sink == nil || len(events) == 0 {
		return
	}
	rows := make([]models.TrackedEvent, 0, len(events))
	for _, e := range events {
		data, err := json.Marshal(e.Payload)
		if err != nil {
			data = []byte("{}")
		}
		duration, _ := toInt(e.Payload["duration_ms"])
		if duration < 0 {
			duration = 0
		}
		rows = append(rows, models.TrackedEvent{
			EventID:    uuid.NewString(),
			EventType:  e.EventType,
			SessionID:  s.SessionID,
			ProductID:  s.ProductID,
			UserID:     s.UserID,
			Timestamp:  e.OccurredAt,
			PageURL:    e.PageURL,
			Referrer:   e.Referrer,
			Device:     s.Device,
			Country:    s.Country,
			DurationMs: duration,
			EventData:  data,
		})
	}

	mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := a.sink.MirrorEvents(mctx, rows); err != nil {
		log.Printf("ingest: mirror %d events for session %s: %v", len(rows), s.SessionID, err)
	}
}
