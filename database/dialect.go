package database

import (
	"strconv"
	"strings"
)

// Dialect selects the SQL flavour the stores generate.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "PostgreSQL"
	default:
		return "SQLite"
	}
}

// Rebind rewrites ? placeholders into the $n form lib/pq expects. Queries
// are written once with ? and rebound per dialect. Placeholders inside
// string literals are not supported.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ForUpdate returns the row-lock suffix for a SELECT inside a transaction.
// SQLite serialises writers at the database level and has no row locks.
func (d Dialect) ForUpdate() string {
	if d == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

// Schema returns the DDL for the session, event, lead and contact tables.
func (d Dialect) Schema() string {
	if d == Postgres {
		return postgresSchema
	}
	return sqliteSchema
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS analytics_sessions (
	id BIGSERIAL PRIMARY KEY,
	session_id VARCHAR(64) NOT NULL,
	product_id VARCHAR(64) NOT NULL DEFAULT '',
	user_id VARCHAR(64) NOT NULL DEFAULT '',
	started_at TIMESTAMPTZ,
	ended_at TIMESTAMPTZ,
	path VARCHAR(500) NOT NULL DEFAULT '',
	traffic_source VARCHAR(64) NOT NULL DEFAULT '',
	utm_source VARCHAR(100) NOT NULL DEFAULT '',
	utm_medium VARCHAR(100) NOT NULL DEFAULT '',
	utm_campaign VARCHAR(100) NOT NULL DEFAULT '',
	utm_term VARCHAR(100) NOT NULL DEFAULT '',
	utm_content VARCHAR(100) NOT NULL DEFAULT '',
	device VARCHAR(32) NOT NULL DEFAULT '',
	os VARCHAR(128) NOT NULL DEFAULT '',
	browser VARCHAR(255) NOT NULL DEFAULT '',
	viewport VARCHAR(32) NOT NULL DEFAULT '',
	orientation VARCHAR(32) NOT NULL DEFAULT '',
	language VARCHAR(32) NOT NULL DEFAULT '',
	country VARCHAR(64) NOT NULL DEFAULT '',
	consent BOOLEAN NOT NULL DEFAULT FALSE,
	is_returning BOOLEAN NOT NULL DEFAULT FALSE,
	sampled BOOLEAN NOT NULL DEFAULT FALSE,
	max_scroll_pct INT NOT NULL DEFAULT 0,
	cta_clicks BIGINT NOT NULL DEFAULT 0,
	enquiry_submissions BIGINT NOT NULL DEFAULT 0,
	video_seconds_watched BIGINT NOT NULL DEFAULT 0,
	idle_time_ms BIGINT NOT NULL DEFAULT 0,
	events_count BIGINT NOT NULL DEFAULT 0,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	section_durations JSONB NOT NULL DEFAULT '{}',
	last_active_section VARCHAR(100) NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (session_id, product_id)
);

CREATE TABLE IF NOT EXISTS analytics_events (
	id BIGSERIAL PRIMARY KEY,
	session_pk BIGINT NOT NULL REFERENCES analytics_sessions(id) ON DELETE CASCADE,
	event_type VARCHAR(64) NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	page_url VARCHAR(500) NOT NULL DEFAULT '',
	referrer VARCHAR(500) NOT NULL DEFAULT '',
	payload JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS leads (
	id BIGSERIAL PRIMARY KEY,
	session_id VARCHAR(64) NOT NULL DEFAULT '',
	product_id VARCHAR(64) NOT NULL DEFAULT '',
	product_slug VARCHAR(255) NOT NULL DEFAULT '',
	product_name VARCHAR(255) NOT NULL DEFAULT '',
	quantity INT,
	frequency VARCHAR(32) NOT NULL DEFAULT '',
	email VARCHAR(254) NOT NULL DEFAULT '',
	mobile VARCHAR(32) NOT NULL DEFAULT '',
	page_url VARCHAR(500) NOT NULL DEFAULT '',
	source VARCHAR(16) NOT NULL DEFAULT 'discuss',
	is_draft BOOLEAN NOT NULL DEFAULT FALSE,
	submitted_at TIMESTAMPTZ,
	ip_hash VARCHAR(64) NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS contact_enquiries (
	id BIGSERIAL PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	email VARCHAR(254) NOT NULL,
	phone VARCHAR(64) NOT NULL,
	message TEXT NOT NULL,
	ip_hash VARCHAR(64) NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_analytics_sessions_started ON analytics_sessions(started_at);
CREATE INDEX IF NOT EXISTS idx_analytics_events_session ON analytics_events(session_pk);
CREATE INDEX IF NOT EXISTS idx_analytics_events_type ON analytics_events(event_type);
CREATE INDEX IF NOT EXISTS idx_leads_session_product ON leads(session_id, product_id, is_draft);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS analytics_sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	product_id TEXT NOT NULL DEFAULT '',
	user_id TEXT NOT NULL DEFAULT '',
	started_at TIMESTAMP,
	ended_at TIMESTAMP,
	path TEXT NOT NULL DEFAULT '',
	traffic_source TEXT NOT NULL DEFAULT '',
	utm_source TEXT NOT NULL DEFAULT '',
	utm_medium TEXT NOT NULL DEFAULT '',
	utm_campaign TEXT NOT NULL DEFAULT '',
	utm_term TEXT NOT NULL DEFAULT '',
	utm_content TEXT NOT NULL DEFAULT '',
	device TEXT NOT NULL DEFAULT '',
	os TEXT NOT NULL DEFAULT '',
	browser TEXT NOT NULL DEFAULT '',
	viewport TEXT NOT NULL DEFAULT '',
	orientation TEXT NOT NULL DEFAULT '',
	language TEXT NOT NULL DEFAULT '',
	country TEXT NOT NULL DEFAULT '',
	consent BOOLEAN NOT NULL DEFAULT 0,
	is_returning BOOLEAN NOT NULL DEFAULT 0,
	sampled BOOLEAN NOT NULL DEFAULT 0,
	max_scroll_pct INTEGER NOT NULL DEFAULT 0,
	cta_clicks INTEGER NOT NULL DEFAULT 0,
	enquiry_submissions INTEGER NOT NULL DEFAULT 0,
	video_seconds_watched INTEGER NOT NULL DEFAULT 0,
	idle_time_ms INTEGER NOT NULL DEFAULT 0,
	events_count INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	section_durations TEXT NOT NULL DEFAULT '{}',
	last_active_section TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE (session_id, product_id)
);

CREATE TABLE IF NOT EXISTS analytics_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_pk INTEGER NOT NULL REFERENCES analytics_sessions(id) ON DELETE CASCADE,
	event_type TEXT NOT NULL,
	occurred_at TIMESTAMP NOT NULL,
	page_url TEXT NOT NULL DEFAULT '',
	referrer TEXT NOT NULL DEFAULT '',
	payload TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS leads (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL DEFAULT '',
	product_id TEXT NOT NULL DEFAULT '',
	product_slug TEXT NOT NULL DEFAULT '',
	product_name TEXT NOT NULL DEFAULT '',
	quantity INTEGER,
	frequency TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	mobile TEXT NOT NULL DEFAULT '',
	page_url TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT 'discuss',
	is_draft BOOLEAN NOT NULL DEFAULT 0,
	submitted_at TIMESTAMP,
	ip_hash TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS contact_enquiries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	phone TEXT NOT NULL,
	message TEXT NOT NULL,
	ip_hash TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	submitted_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analytics_sessions_started ON analytics_sessions(started_at);
CREATE INDEX IF NOT EXISTS idx_analytics_events_session ON analytics_events(session_pk);
CREATE INDEX IF NOT EXISTS idx_analytics_events_type ON analytics_events(event_type);
CREATE INDEX IF NOT EXISTS idx_leads_session_product ON leads(session_id, product_id, is_draft);
`
