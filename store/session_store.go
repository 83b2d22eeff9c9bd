package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"globesuggest/api/database"
	"globesuggest/api/ingest"
	"globesuggest/api/models"
)

// ErrSessionNotFound is returned by SessionDetails when no session matches.
var ErrSessionNotFound = errors.New("analytics session not found")

// SessionStore persists analytics sessions and events in the relational
// database. It implements ingest.Repository.
type SessionStore struct {
	db      *sql.DB
	dialect database.Dialect
	now     func() time.Time
}

func NewSessionStore(c *database.DBClient) *SessionStore {
	return &SessionStore{db: c.DB, dialect: c.Dialect, now: time.Now}
}

// InTx runs fn in a single transaction, committing when fn returns nil.
func (s *SessionStore) InTx(ctx context.Context, fn func(tx ingest.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&sessionTx{tx: tx, dialect: s.dialect, now: s.now}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Printf("store: rollback failed: %v", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const sessionColumns = `id, session_id, product_id, user_id, started_at, ended_at,
	path, traffic_source, utm_source, utm_medium, utm_campaign, utm_term, utm_content,
	device, os, browser, viewport, orientation, language, country,
	consent, is_returning, sampled,
	max_scroll_pct, cta_clicks, enquiry_submissions, video_seconds_watched, idle_time_ms, events_count, duration_ms,
	section_durations, last_active_section, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.AnalyticsSession, error) {
	var (
		s         models.AnalyticsSession
		started   sql.NullTime
		ended     sql.NullTime
		durations []byte
	)
	err := row.Scan(
		&s.ID, &s.SessionID, &s.ProductID, &s.UserID, &started, &ended,
		&s.Path, &s.TrafficSource, &s.UTMSource, &s.UTMMedium, &s.UTMCampaign, &s.UTMTerm, &s.UTMContent,
		&s.Device, &s.OS, &s.Browser, &s.Viewport, &s.Orientation, &s.Language, &s.Country,
		&s.Consent, &s.IsReturning, &s.Sampled,
		&s.MaxScrollPct, &s.CTAClicks, &s.EnquirySubmissions, &s.VideoSecondsWatched, &s.IdleTimeMs, &s.EventsCount, &s.DurationMs,
		&durations, &s.LastActiveSection, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if started.Valid {
		t := started.Time.UTC()
		s.StartedAt = &t
	}
	if ended.Valid {
		t := ended.Time.UTC()
		s.EndedAt = &t
	}
	s.SectionDurations = map[string]int64{}
	if len(durations) > 0 {
		if err := json.Unmarshal(durations, &s.SectionDurations); err != nil {
			log.Printf("store: session %d has unreadable section_durations: %v", s.ID, err)
			s.SectionDurations = map[string]int64{}
		}
	}
	return &s, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

type sessionTx struct {
	tx      *sql.Tx
	dialect database.Dialect
	now     func() time.Time
}

func (t *sessionTx) GetOrCreateSession(ctx context.Context, seed models.AnalyticsSession) (*models.AnalyticsSession, error) {
	now := t.now().UTC()
	insert := t.dialect.Rebind(`
		INSERT INTO analytics_sessions (session_id, product_id, user_id, started_at, ended_at, section_durations, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id, product_id) DO NOTHING`)
	if _, err := t.tx.ExecContext(ctx, insert,
		seed.SessionID, seed.ProductID, seed.UserID, nullTime(seed.StartedAt), nullTime(seed.EndedAt), "{}", now, now,
	); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	query := t.dialect.Rebind(`SELECT `+sessionColumns+`
		FROM analytics_sessions
		WHERE session_id = ? AND product_id = ?`) + t.dialect.ForUpdate()
	s, err := scanSession(t.tx.QueryRowContext(ctx, query, seed.SessionID, seed.ProductID))
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}
	return s, nil
}

func (t *sessionTx) UpdateSession(ctx context.Context, s *models.AnalyticsSession) error {
	durations, err := json.Marshal(s.SectionDurations)
	if err != nil {
		return fmt.Errorf("encode section durations: %w", err)
	}
	if s.SectionDurations == nil {
		durations = []byte("{}")
	}
	s.UpdatedAt = t.now().UTC()

	query := t.dialect.Rebind(`
		UPDATE analytics_sessions SET
			user_id = ?, started_at = ?, ended_at = ?,
			path = ?, traffic_source = ?, utm_source = ?, utm_medium = ?, utm_campaign = ?, utm_term = ?, utm_content = ?,
			device = ?, os = ?, browser = ?, viewport = ?, orientation = ?, language = ?, country = ?,
			consent = ?, is_returning = ?, sampled = ?,
			max_scroll_pct = ?, cta_clicks = ?, enquiry_submissions = ?, video_seconds_watched = ?,
			idle_time_ms = ?, events_count = ?, duration_ms = ?,
			section_durations = ?, last_active_section = ?, updated_at = ?
		WHERE id = ?`)
	_, err = t.tx.ExecContext(ctx, query,
		s.UserID, nullTime(s.StartedAt), nullTime(s.EndedAt),
		s.Path, s.TrafficSource, s.UTMSource, s.UTMMedium, s.UTMCampaign, s.UTMTerm, s.UTMContent,
		s.Device, s.OS, s.Browser, s.Viewport, s.Orientation, s.Language, s.Country,
		s.Consent, s.IsReturning, s.Sampled,
		s.MaxScrollPct, s.CTAClicks, s.EnquirySubmissions, s.VideoSecondsWatched,
		s.IdleTimeMs, s.EventsCount, s.DurationMs,
		string(durations), s.LastActiveSection, s.UpdatedAt,
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("update session %d: %w", s.ID, err)
	}
	return nil
}

func (t *sessionTx) InsertEvent(ctx context.Context, e *models.AnalyticsEvent) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("encode event payload: %w", err)
	}
	if e.Payload == nil {
		payload = []byte("{}")
	}
	e.CreatedAt = t.now().UTC()

	query := t.dialect.Rebind(`
		INSERT INTO analytics_events (session_pk, event_type, occurred_at, page_url, referrer, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err = t.tx.QueryRowContext(ctx, query,
		e.SessionPK, e.EventType, e.OccurredAt.UTC(), e.PageURL, e.Referrer, string(payload), e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// SessionDetails returns every product session recorded under sessionID
// with its events in occurrence order.
func (s *SessionStore) SessionDetails(ctx context.Context, sessionID string) ([]models.SessionDetail, error) {
	query := s.dialect.Rebind(`SELECT ` + sessionColumns + `
		FROM analytics_sessions
		WHERE session_id = ?
		ORDER BY id ASC`)
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	var details []models.SessionDetail
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan session: %w", err)
		}
		details = append(details, models.SessionDetail{Session: *sess})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	rows.Close()

	if len(details) == 0 {
		return nil, ErrSessionNotFound
	}
	for i := range details {
		events, err := s.events(ctx, details[i].Session.ID)
		if err != nil {
			return nil, err
		}
		details[i].Events = events
	}
	return details, nil
}

func (s *SessionStore) events(ctx context.Context, sessionPK int64) ([]models.AnalyticsEvent, error) {
	query := s.dialect.Rebind(`
		SELECT id, session_pk, event_type, occurred_at, page_url, referrer, payload, created_at
		FROM analytics_events
		WHERE session_pk = ?
		ORDER BY occurred_at ASC, id ASC`)
	rows, err := s.db.QueryContext(ctx, query, sessionPK)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []models.AnalyticsEvent{}
	for rows.Next() {
		var (
			e       models.AnalyticsEvent
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.SessionPK, &e.EventType, &e.OccurredAt, &e.PageURL, &e.Referrer, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Payload = map[string]any{}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				log.Printf("store: event %d has unreadable payload: %v", e.ID, err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
