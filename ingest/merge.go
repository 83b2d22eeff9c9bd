package ingest

import (
	"time"

	"globesuggest/api/models"
)

// Maximum stored lengths, in characters.
const (
	maxSessionID         = 64
	maxProductID         = 64
	maxUserID            = 64
	maxPath              = 500
	maxTrafficSource     = 64
	maxUTM               = 100
	maxDevice            = 32
	maxOS                = 128
	maxBrowser           = 255
	maxViewport          = 32
	maxOrientation       = 32
	maxLanguage          = 32
	maxCountry           = 64
	maxLastActiveSection = 100
	maxEventType         = 64
	maxEventURL          = 500
	maxReferrer          = 500
)

type stringField struct {
	key string
	max int
	dst func(s *models.AnalyticsSession) *string
}

var stringFields = []stringField{
	{"user_id", maxUserID, func(s *models.AnalyticsSession) *string { return &s.UserID }},
	{"path", maxPath, func(s *models.AnalyticsSession) *string { return &s.Path }},
	{"traffic_source", maxTrafficSource, func(s *models.AnalyticsSession) *string { return &s.TrafficSource }},
	{"utm_source", maxUTM, func(s *models.AnalyticsSession) *string { return &s.UTMSource }},
	{"utm_medium", maxUTM, func(s *models.AnalyticsSession) *string { return &s.UTMMedium }},
	{"utm_campaign", maxUTM, func(s *models.AnalyticsSession) *string { return &s.UTMCampaign }},
	{"utm_term", maxUTM, func(s *models.AnalyticsSession) *string { return &s.UTMTerm }},
	{"utm_content", maxUTM, func(s *models.AnalyticsSession) *string { return &s.UTMContent }},
	{"device", maxDevice, func(s *models.AnalyticsSession) *string { return &s.Device }},
	{"os", maxOS, func(s *models.AnalyticsSession) *string { return &s.OS }},
	{"browser", maxBrowser, func(s *models.AnalyticsSession) *string { return &s.Browser }},
	{"viewport", maxViewport, func(s *models.AnalyticsSession) *string { return &s.Viewport }},
	{"orientation", maxOrientation, func(s *models.AnalyticsSession) *string { return &s.Orientation }},
	{"language", maxLanguage, func(s *models.AnalyticsSession) *string { return &s.Language }},
	{"country", maxCountry, func(s *models.AnalyticsSession) *string { return &s.Country }},
	{"last_active_section", maxLastActiveSection, func(s *models.AnalyticsSession) *string { return &s.LastActiveSection }},
}

var boolFields = []struct {
	key string
	dst func(s *models.AnalyticsSession) *bool
}{
	{"consent", func(s *models.AnalyticsSession) *bool { return &s.Consent }},
	{"is_returning", func(s *models.AnalyticsSession) *bool { return &s.IsReturning }},
	{"sampled", func(s *models.AnalyticsSession) *bool { return &s.Sampled }},
}

var counterFields = []struct {
	key string
	dst func(s *models.AnalyticsSession) *int64
}{
	{"max_scroll_pct", func(s *models.AnalyticsSession) *int64 { return &s.MaxScrollPct }},
	{"cta_clicks", func(s *models.AnalyticsSession) *int64 { return &s.CTAClicks }},
	{"enquiry_submissions", func(s *models.AnalyticsSession) *int64 { return &s.EnquirySubmissions }},
	{"video_seconds_watched", func(s *models.AnalyticsSession) *int64 { return &s.VideoSecondsWatched }},
	{"idle_time_ms", func(s *models.AnalyticsSession) *int64 { return &s.IdleTimeMs }},
	{"events_count", func(s *models.AnalyticsSession) *int64 { return &s.EventsCount }},
	{"duration_ms", func(s *models.AnalyticsSession) *int64 { return &s.DurationMs }},
}

// mergeSession folds one client snapshot into the stored aggregate. It is
// safe to apply the same snapshot any number of times: counters never go
// down and only section durations accumulate.
func mergeSession(s *models.AnalyticsSession, in map[string]any) {
	if t := parseTime(in["started_at"]); t != nil && s.StartedAt == nil {
		s.StartedAt = t
	}
	if t := parseTime(in["ended_at"]); t != nil {
		s.EndedAt = t
	}

	for _, f := range stringFields {
		if v := truncate(str(in[f.key]), f.max); v != "" {
			*f.dst(s) = v
		}
	}

	for _, f := range boolFields {
		if v, ok := in[f.key]; ok {
			*f.dst(s) = truthy(v)
		}
	}

	for _, f := range counterFields {
		v, present := in[f.key]
		if !present {
			continue
		}
		n, ok := toInt(v)
		if !ok {
			continue
		}
		if n < 0 {
			n = 0
		}
		if f.key == "max_scroll_pct" && n > 100 {
			n = 100
		}
		if dst := f.dst(s); n > *dst {
			*dst = n
		}
	}
	if s.MaxScrollPct > 100 {
		s.MaxScrollPct = 100
	}

	if durations, ok := in["section_durations"].(map[string]any); ok {
		if s.SectionDurations == nil {
			s.SectionDurations = make(map[string]int64, len(durations))
		}
		for section, raw := range durations {
			inc, ok := toInt(raw)
			if !ok || inc <= 0 {
				continue
			}
			s.SectionDurations[section] += inc
		}
	}
}

// buildEvents validates the raw event list. Entries that are not objects or
// carry no event_type are skipped.
func buildEvents(s *models.AnalyticsSession, raw []any, now time.Time) []models.AnalyticsEvent {
	var out []models.AnalyticsEvent
	for _, item := range raw {
		ev, ok := item.(map[string]any)
		if !ok {
			continue
		}
		eventType := truncate(str(ev["event_type"]), maxEventType)
		if eventType == "" {
			continue
		}

		occurred := now
		if t := parseTime(ev["occurred_at"]); t != nil {
			occurred = *t
		} else if s.StartedAt != nil {
			occurred = *s.StartedAt
		}

		pageURL := str(ev["page_url"])
		if pageURL == "" {
			pageURL = s.Path
		}

		out = append(out, models.AnalyticsEvent{
			SessionPK:  s.ID,
			EventType:  eventType,
			OccurredAt: occurred,
			PageURL:    truncate(pageURL, maxEventURL),
			Referrer:   truncate(str(ev["referrer"]), maxReferrer),
			Payload:    eventPayload(ev["payload"]),
		})
	}
	return out
}

func eventPayload(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		if m == nil {
			return map[string]any{}
		}
		return m
	}
	if !truthy(v) {
		return map[string]any{}
	}
	return map[string]any{"value": v}
}
