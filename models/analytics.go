package models

import "time"

// IngestPayload is the decrypted (or plaintext) telemetry body. Both parts
// stay untyped: the client is not trusted to send well-formed values and
// every field is coerced during merge.
type IngestPayload struct {
	Session map[string]any `json:"session"`
	Events  []any          `json:"events"`
}

type IngestResult struct {
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
	ProductID   string `json:"product_id,omitempty"`
	EventsSaved int    `json:"events_saved"`
}

// AnalyticsSession is the aggregate for one (session id, product id) pair.
type AnalyticsSession struct {
	ID        int64      `json:"id"`
	SessionID string     `json:"session_id"`
	ProductID string     `json:"product_id"`
	UserID    string     `json:"user_id"`
	StartedAt *time.Time `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`

	Path          string `json:"path"`
	TrafficSource string `json:"traffic_source"`
	UTMSource     string `json:"utm_source"`
	UTMMedium     string `json:"utm_medium"`
	UTMCampaign   string `json:"utm_campaign"`
	UTMTerm       string `json:"utm_term"`
	UTMContent    string `json:"utm_content"`
	Device        string `json:"device"`
	OS            string `json:"os"`
	Browser       string `json:"browser"`
	Viewport      string `json:"viewport"`
	Orientation   string `json:"orientation"`
	Language      string `json:"language"`
	Country       string `json:"country"`

	Consent     bool `json:"consent"`
	IsReturning bool `json:"is_returning"`
	Sampled     bool `json:"sampled"`

	MaxScrollPct        int64 `json:"max_scroll_pct"`
	CTAClicks           int64 `json:"cta_clicks"`
	EnquirySubmissions  int64 `json:"enquiry_submissions"`
	VideoSecondsWatched int64 `json:"video_seconds_watched"`
	IdleTimeMs          int64 `json:"idle_time_ms"`
	EventsCount         int64 `json:"events_count"`
	DurationMs          int64 `json:"duration_ms"`

	SectionDurations  map[string]int64 `json:"section_durations"`
	LastActiveSection string           `json:"last_active_section"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AnalyticsEvent is an immutable event row owned by one session.
type AnalyticsEvent struct {
	ID         int64          `json:"id"`
	SessionPK  int64          `json:"-"`
	EventType  string         `json:"event_type"`
	OccurredAt time.Time      `json:"occurred_at"`
	PageURL    string         `json:"page_url"`
	Referrer   string         `json:"referrer"`
	Payload    map[string]any `json:"payload"`
	CreatedAt  time.Time      `json:"created_at"`
}

// SessionDetail is the stats view of a session and its events.
type SessionDetail struct {
	Session AnalyticsSession `json:"session"`
	Events  []AnalyticsEvent `json:"events"`
}

// ClientAnalyticsConfig is what the browser collector needs to encrypt and
// post telemetry.
type ClientAnalyticsConfig struct {
	IngestURL          string  `json:"ingest_url"`
	LocalIngestURL     string  `json:"local_ingest_url"`
	ForwardURL         string  `json:"forward_url"`
	SampleRate         float64 `json:"sample_rate"`
	RequireConsent     bool    `json:"require_consent"`
	RemotePublicKeyPEM string  `json:"remote_public_key_pem"`
	LocalPublicKeyPEM  string  `json:"local_public_key_pem"`
}
