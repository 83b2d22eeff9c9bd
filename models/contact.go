package models

import "time"

// ContactEnquiry is a message from the site-wide contact form. Rows are
// append-only.
type ContactEnquiry struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Message     string    `json:"message"`
	IPHash      string    `json:"-"`
	UserAgent   string    `json:"-"`
	SubmittedAt time.Time `json:"submitted_at"`
}
