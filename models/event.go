package models

import (
	"encoding/json"
	"time"
)

// TrackedEvent is one row of the ClickHouse analytics_events mirror.
type TrackedEvent struct {
	EventID    string          `json:"eventId"`
	EventType  string          `json:"eventType"`
	SessionID  string          `json:"sessionId"`
	ProductID  string          `json:"productId"`
	UserID     string          `json:"userId"`
	Timestamp  time.Time       `json:"timestamp"`
	PageURL    string          `json:"pageUrl"`
	Referrer   string          `json:"referrer"`
	Device     string          `json:"device"`
	Country    string          `json:"country"`
	DurationMs int64           `json:"durationMs"`
	EventData  json.RawMessage `json:"eventData,omitempty"`
}

type EventTypeCountByTime struct {
	Time      time.Time `json:"time"`
	EventType *string   `json:"eventType,omitempty"`
	Count     uint64    `json:"count"`
}

type TopProductResult struct {
	ProductID string `json:"productId"`
	Views     uint64 `json:"views"`
	Sessions  uint64 `json:"sessions"`
}
