package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"globesuggest/api/models"
	"globesuggest/api/utils"
)

type ContactRepository interface {
	Create(ctx context.Context, e models.ContactEnquiry) (*models.ContactEnquiry, error)
}

// ContactNotifier is told about each stored enquiry.
type ContactNotifier interface {
	NotifyContact(ctx context.Context, e models.ContactEnquiry) error
}

type ContactHandlers struct {
	Enquiries ContactRepository
	Notifier  ContactNotifier
	IPHashKey []byte
}

func NewContactHandlers(repo ContactRepository, notifier ContactNotifier, ipHashKey []byte) *ContactHandlers {
	return &ContactHandlers{Enquiries: repo, Notifier: notifier, IPHashKey: ipHashKey}
}

// Submit stores an enquiry from the contact page form, then notifies staff.
// Only the store failing is an error for the caller.
func (h *ContactHandlers) Submit(c *gin.Context) {
	if c.GetHeader("X-Requested-With") != "XMLHttpRequest" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request."})
		return
	}

	e := models.ContactEnquiry{
		Name:      utils.TruncateRunes(strings.TrimSpace(c.PostForm("name")), 255),
		Email:     utils.TruncateRunes(strings.TrimSpace(c.PostForm("email")), 254),
		Phone:     utils.TruncateRunes(strings.TrimSpace(c.PostForm("phone")), 64),
		Message:   strings.TrimSpace(c.PostForm("message")),
		IPHash:    utils.HashIP(h.IPHashKey, utils.ClientIP(c.Request)),
		UserAgent: utils.TruncateRunes(c.Request.UserAgent(), maxUserAgent),
	}
	if e.Name == "" || e.Email == "" || e.Phone == "" || e.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Please fill in all required fields before submitting."})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	saved, err := h.Enquiries.Create(ctx, e)
	if err != nil {
		log.Printf("Error storing contact enquiry: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Unable to submit your enquiry right now."})
		return
	}

	if h.Notifier != nil {
		if err := h.Notifier.NotifyContact(ctx, *saved); err != nil {
			log.Printf("Contact enquiry %d stored but notification failed: %v", saved.ID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Thank you! Your enquiry has been received."})
}
