package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"globesuggest/api/models"
	"globesuggest/api/store"
	"globesuggest/api/utils"
)

// ReportingStore answers aggregate queries over mirrored events.
type ReportingStore interface {
	GetEventCountsOverTime(ctx context.Context, interval string, start, end time.Time, eventTypeFilter string) ([]models.EventTypeCountByTime, error)
	GetUniqueSessionsOverTime(ctx context.Context, interval string, start, end time.Time) ([]models.EventTypeCountByTime, error)
	GetAverageEventDuration(ctx context.Context, eventTypeFilter string, start, end time.Time) (float64, error)
	GetTopProducts(ctx context.Context, start, end time.Time, limit uint64) ([]models.TopProductResult, error)
}

type SessionReader interface {
	SessionDetails(ctx context.Context, sessionID string) ([]models.SessionDetail, error)
}

// StatsHandlers serves the admin reporting API. Reporting is nil when no
// ClickHouse mirror is configured.
type StatsHandlers struct {
	Reporting ReportingStore
	Sessions  SessionReader
}

func NewStatsHandlers(reporting ReportingStore, sessions SessionReader) *StatsHandlers {
	return &StatsHandlers{Reporting: reporting, Sessions: sessions}
}

func (h *StatsHandlers) reportingAvailable(c *gin.Context) bool {
	if h.Reporting == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Reporting store is not configured"})
		return false
	}
	return true
}

func (h *StatsHandlers) GetEventCountsOverTime(c *gin.Context) {
	if !h.reportingAvailable(c) {
		return
	}
	interval := c.Query("interval")
	if interval == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interval query parameter is required (e.g., 'Day', 'Hour')"})
		return
	}
	if !utils.IsValidInterval(interval) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid interval. Use Minute, Hour, Day, Week, Month, Quarter or Year"})
		return
	}
	eventTypeFilter := c.Query("eventType")

	start, end, ok := parseTimeRange(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results, err := h.Reporting.GetEventCountsOverTime(ctx, interval, start, end, eventTypeFilter)
	if err != nil {
		log.Printf("Error getting event counts over time: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve event statistics"})
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *StatsHandlers) GetUniqueSessionsOverTime(c *gin.Context) {
	if !h.reportingAvailable(c) {
		return
	}
	interval := c.DefaultQuery("interval", "Day")
	if !utils.IsValidInterval(interval) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid interval. Use Minute, Hour, Day, Week, Month, Quarter or Year"})
		return
	}
	start, end, ok := parseTimeRange(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results, err := h.Reporting.GetUniqueSessionsOverTime(ctx, interval, start, end)
	if err != nil {
		log.Printf("Error getting unique sessions over time: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve unique session statistics"})
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *StatsHandlers) GetAverageEventDuration(c *gin.Context) {
	if !h.reportingAvailable(c) {
		return
	}
	eventTypeFilter := c.Query("eventType")
	start, end, ok := parseTimeRange(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	avgDuration, err := h.Reporting.GetAverageEventDuration(ctx, eventTypeFilter, start, end)
	if err != nil {
		log.Printf("Error getting average event duration: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve average event duration statistics"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"eventType":         eventTypeFilter,
		"startDate":         start.Format(time.RFC3339),
		"endDate":           end.Format(time.RFC3339),
		"averageDurationMs": avgDuration,
	})
}

func (h *StatsHandlers) GetTopProducts(c *gin.Context) {
	if !h.reportingAvailable(c) {
		return
	}
	limit := uint64(10)
	if limitParam := c.Query("limit"); limitParam != "" {
		n, err := strconv.ParseUint(limitParam, 10, 64)
		if err != nil || n == 0 || n > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 100"})
			return
		}
		limit = n
	}
	start, end, ok := parseTimeRange(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results, err := h.Reporting.GetTopProducts(ctx, start, end, limit)
	if err != nil {
		log.Printf("Error getting top products: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve top products"})
		return
	}
	c.JSON(http.StatusOK, results)
}

// GetSession returns every product session recorded under a session id,
// with its events, from the primary store.
func (h *StatsHandlers) GetSession(c *gin.Context) {
	sessionID := c.Param("session_id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	details, err := h.Sessions.SessionDetails(ctx, sessionID)
	if errors.Is(err, store.ErrSessionNotFound) || (err == nil && len(details) == 0) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	if err != nil {
		log.Printf("Error loading session %q: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve session"})
		return
	}
	c.JSON(http.StatusOK, details)
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
