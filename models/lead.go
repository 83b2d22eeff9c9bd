package models

import "time"

const (
	LeadSourceDiscuss = "discuss"
	LeadSourceQuick   = "quick"
	LeadSourceDraft   = "draft"
)

type Lead struct {
	ID          int64      `json:"id"`
	SessionID   string     `json:"session_id"`
	ProductID   string     `json:"product_id"`
	ProductSlug string     `json:"product_slug"`
	ProductName string     `json:"product_name"`
	Quantity    *int       `json:"quantity"`
	Frequency   string     `json:"frequency"`
	Email       string     `json:"email"`
	Mobile      string     `json:"mobile"`
	PageURL     string     `json:"page_url"`
	Source      string     `json:"source"`
	IsDraft     bool       `json:"is_draft"`
	SubmittedAt *time.Time `json:"submitted_at"`
	IPHash      string     `json:"-"`
	UserAgent   string     `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
