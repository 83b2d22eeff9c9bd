package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"globesuggest/api/database"
	"globesuggest/api/models"
)

// ContactStore persists contact form enquiries.
type ContactStore struct {
	db      *sql.DB
	dialect database.Dialect
	now     func() time.Time
}

func NewContactStore(c *database.DBClient) *ContactStore {
	return &ContactStore{db: c.DB, dialect: c.Dialect, now: time.Now}
}

// Create inserts e, filling in its ID and SubmittedAt.
func (s *ContactStore) Create(ctx context.Context, e models.ContactEnquiry) (*models.ContactEnquiry, error) {
	e.SubmittedAt = s.now().UTC()
	query := s.dialect.Rebind(`
		INSERT INTO contact_enquiries (name, email, phone, message, ip_hash, user_agent, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err := s.db.QueryRowContext(ctx, query,
		e.Name, e.Email, e.Phone, e.Message, e.IPHash, e.UserAgent, e.SubmittedAt,
	).Scan(&e.ID)
	if err != nil {
		return nil, fmt.Errorf("insert contact enquiry: %w", err)
	}
	return &e, nil
}

// Get loads one enquiry by id.
func (s *ContactStore) Get(ctx context.Context, id int64) (*models.ContactEnquiry, error) {
	query := s.dialect.Rebind(`SELECT id, name, email, phone, message, ip_hash, user_agent, submitted_at
		FROM contact_enquiries WHERE id = ?`)
	var e models.ContactEnquiry
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.Name, &e.Email, &e.Phone, &e.Message, &e.IPHash, &e.UserAgent, &e.SubmittedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get contact enquiry %d: %w", id, err)
	}
	return &e, nil
}
