// api/handlers/analytics_handlers.go
package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"globesuggest/api/ingest"
	"globesuggest/api/models"
	"globesuggest/api/relay"
)

type Ingester interface {
	Ingest(ctx context.Context, payload models.IngestPayload) (models.IngestResult, error)
}

type Forwarder interface {
	Forward(ctx context.Context, raw []byte) (relay.Result, error)
}

// AnalyticsHandlers serves the browser collector: local ingest, the
// pass-through relay and the client bootstrap config.
type AnalyticsHandlers struct {
	Aggregator   Ingester
	Codec        ingest.Decrypter
	Relay        Forwarder
	ClientConfig models.ClientAnalyticsConfig
}

func NewAnalyticsHandlers(agg Ingester, codec ingest.Decrypter, fwd Forwarder, clientCfg models.ClientAnalyticsConfig) *AnalyticsHandlers {
	return &AnalyticsHandlers{
		Aggregator:   agg,
		Codec:        codec,
		Relay:        fwd,
		ClientConfig: clientCfg,
	}
}

// Ingest accepts a plaintext or encrypted snapshot and merges it into the
// session store. Payloads that cannot be read are acknowledged and dropped
// so the collector does not retry them.
func (h *AnalyticsHandlers) Ingest(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		log.Printf("Analytics ingest: %v", err)
		c.JSON(http.StatusOK, models.IngestResult{Status: ingest.StatusIgnored, Reason: ingest.ReasonInvalidPayload})
		return
	}

	payload, err := ingest.Decode(body, h.Codec)
	if err != nil {
		log.Printf("Analytics ingest: %v", err)
		c.JSON(http.StatusOK, models.IngestResult{Status: ingest.StatusIgnored, Reason: ingest.ReasonInvalidPayload})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	res, err := h.Aggregator.Ingest(ctx, payload)
	if err != nil {
		log.Printf("Error ingesting analytics snapshot: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "reason": "storage_error"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// Forward relays an encrypted envelope to the remote collector unopened.
func (h *AnalyticsHandlers) Forward(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "reason": "invalid_json"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	res, err := h.Relay.Forward(ctx, body)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "ok", "forwarded_status": res.Status})
	case errors.Is(err, relay.ErrInvalidJSON):
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "reason": "invalid_json"})
	case errors.Is(err, relay.ErrInvalidEnvelope):
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "reason": "invalid_envelope"})
	case errors.Is(err, relay.ErrNotConfigured):
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "reason": "remote_url_not_configured"})
	default:
		log.Printf("Analytics forward failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"status": "error", "reason": "upstream_unreachable"})
	}
}

// Config returns what the collector script needs to start.
func (h *AnalyticsHandlers) Config(c *gin.Context) {
	c.JSON(http.StatusOK, h.ClientConfig)
}
