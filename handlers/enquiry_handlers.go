package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"globesuggest/api/models"
	"globesuggest/api/utils"
)

const maxUserAgent = 1024

type LeadRepository interface {
	SaveDraft(ctx context.Context, l models.Lead) (*models.Lead, error)
	Submit(ctx context.Context, l models.Lead) (*models.Lead, error)
}

// EnquiryHandlers captures the product page enquiry forms as leads.
type EnquiryHandlers struct {
	Leads     LeadRepository
	IPHashKey []byte
}

func NewEnquiryHandlers(leads LeadRepository, ipHashKey []byte) *EnquiryHandlers {
	return &EnquiryHandlers{Leads: leads, IPHashKey: ipHashKey}
}

// Draft autosaves partially filled forms, one draft per (session, product).
func (h *EnquiryHandlers) Draft(c *gin.Context) {
	lead := h.leadFromRequest(c)
	if lead.Mobile == "" && lead.Email == "" && lead.Quantity == nil && lead.Frequency == "" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	saved, err := h.Leads.SaveDraft(ctx, lead)
	if err != nil {
		log.Printf("Error saving enquiry draft: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to save draft"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "lead_id": saved.ID})
}

// Submit records an explicit enquiry from the discuss form or the quick
// enquiry popup.
func (h *EnquiryHandlers) Submit(c *gin.Context) {
	lead := h.leadFromRequest(c)
	if lead.Mobile == "" && lead.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Please enter your email address or mobile number.",
		})
		return
	}
	lead.Source = models.LeadSourceQuick
	if lead.Quantity != nil || lead.Frequency != "" {
		lead.Source = models.LeadSourceDiscuss
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	saved, err := h.Leads.Submit(ctx, lead)
	if err != nil {
		log.Printf("Error submitting enquiry: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to submit enquiry"})
		return
	}
	log.Printf("Enquiry %d received for product %q (%s)", saved.ID, saved.ProductID, saved.Source)
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Thanks! We received your enquiry. Our team will contact you shortly.",
		"lead_id": saved.ID,
	})
}

// leadFromRequest reads the form body leniently: an unreadable body is an
// empty form.
func (h *EnquiryHandlers) leadFromRequest(c *gin.Context) models.Lead {
	form := map[string]any{}
	if body, err := readBody(c); err == nil && len(bytes.TrimSpace(body)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		var m map[string]any
		if err := dec.Decode(&m); err == nil && m != nil {
			form = m
		}
	}

	field := func(key string, n int) string {
		return utils.TruncateRunes(formString(form[key]), n)
	}
	pageURL := field("page_url", 500)
	if pageURL == "" {
		pageURL = c.Request.URL.Path
	}

	return models.Lead{
		SessionID:   field("session_id", 64),
		ProductID:   field("product_id", 64),
		ProductSlug: field("product_slug", 255),
		ProductName: field("product_name", 255),
		Quantity:    parseQuantity(form["quantity"]),
		Frequency:   field("frequency", 32),
		Email:       field("email", 254),
		Mobile:      field("mobile", 32),
		PageURL:     pageURL,
		IPHash:      utils.HashIP(h.IPHashKey, utils.ClientIP(c.Request)),
		UserAgent:   utils.TruncateRunes(c.Request.UserAgent(), maxUserAgent),
	}
}

func formString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// parseQuantity accepts integers, integral strings and numbers (truncated).
// Anything else, and any value not above zero, means no quantity.
func parseQuantity(v any) *int {
	var n int64
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			n = i
		} else if f, err := t.Float64(); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			n = int64(f)
		} else {
			return nil
		}
	case float64:
		n = int64(t)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return nil
		}
		n = i
	case bool:
		if t {
			n = 1
		}
	default:
		return nil
	}
	if n <= 0 || n > math.MaxInt32 {
		return nil
	}
	q := int(n)
	return &q
}
