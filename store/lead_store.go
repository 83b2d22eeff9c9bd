package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"globesuggest/api/database"
	"globesuggest/api/models"
)

// LeadStore persists product enquiries.
type LeadStore struct {
	db      *sql.DB
	dialect database.Dialect
	now     func() time.Time
}

func NewLeadStore(c *database.DBClient) *LeadStore {
	return &LeadStore{db: c.DB, dialect: c.Dialect, now: time.Now}
}

const leadColumns = `id, session_id, product_id, product_slug, product_name, quantity, frequency,
	email, mobile, page_url, source, is_draft, submitted_at, ip_hash, user_agent, created_at, updated_at`

func scanLead(row rowScanner) (*models.Lead, error) {
	var (
		l         models.Lead
		quantity  sql.NullInt64
		submitted sql.NullTime
	)
	err := row.Scan(&l.ID, &l.SessionID, &l.ProductID, &l.ProductSlug, &l.ProductName, &quantity, &l.Frequency,
		&l.Email, &l.Mobile, &l.PageURL, &l.Source, &l.IsDraft, &submitted, &l.IPHash, &l.UserAgent, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if quantity.Valid {
		q := int(quantity.Int64)
		l.Quantity = &q
	}
	if submitted.Valid {
		t := submitted.Time.UTC()
		l.SubmittedAt = &t
	}
	return &l, nil
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

// SaveDraft upserts the autosaved draft for (session, product). Without both
// keys a fresh draft row is created. Non-empty fields of l overwrite the
// stored ones; quantity always does.
func (s *LeadStore) SaveDraft(ctx context.Context, l models.Lead) (*models.Lead, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing *models.Lead
	if l.SessionID != "" && l.ProductID != "" {
		query := s.dialect.Rebind(`SELECT `+leadColumns+`
			FROM leads
			WHERE session_id = ? AND product_id = ? AND is_draft = ?
			ORDER BY created_at DESC, id DESC
			LIMIT 1`) + s.dialect.ForUpdate()
		existing, err = scanLead(tx.QueryRowContext(ctx, query, l.SessionID, l.ProductID, true))
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find draft: %w", err)
		}
	}

	now := s.now().UTC()
	if existing == nil {
		l.Source = models.LeadSourceDraft
		l.IsDraft = true
		l.SubmittedAt = nil
		if err := s.insert(ctx, tx, &l, now); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit draft: %w", err)
		}
		return &l, nil
	}

	d := existing
	overwrite := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	overwrite(&d.ProductSlug, l.ProductSlug)
	overwrite(&d.ProductName, l.ProductName)
	overwrite(&d.PageURL, l.PageURL)
	overwrite(&d.Mobile, l.Mobile)
	overwrite(&d.Email, l.Email)
	overwrite(&d.Frequency, l.Frequency)
	d.Quantity = l.Quantity
	d.IPHash = l.IPHash
	d.UserAgent = l.UserAgent
	d.UpdatedAt = now

	query := s.dialect.Rebind(`
		UPDATE leads SET product_slug = ?, product_name = ?, page_url = ?, mobile = ?, email = ?,
			frequency = ?, quantity = ?, ip_hash = ?, user_agent = ?, updated_at = ?
		WHERE id = ?`)
	if _, err := tx.ExecContext(ctx, query,
		d.ProductSlug, d.ProductName, d.PageURL, d.Mobile, d.Email,
		d.Frequency, nullInt(d.Quantity), d.IPHash, d.UserAgent, d.UpdatedAt, d.ID,
	); err != nil {
		return nil, fmt.Errorf("update draft %d: %w", d.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit draft: %w", err)
	}
	return d, nil
}

// Submit records an explicit enquiry and promotes any drafts for the same
// (session, product) to submitted.
func (s *LeadStore) Submit(ctx context.Context, l models.Lead) (*models.Lead, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UTC()
	l.IsDraft = false
	l.SubmittedAt = &now
	if err := s.insert(ctx, tx, &l, now); err != nil {
		return nil, err
	}

	if l.SessionID != "" && l.ProductID != "" {
		query := s.dialect.Rebind(`
			UPDATE leads SET is_draft = ?, submitted_at = ?, updated_at = ?
			WHERE session_id = ? AND product_id = ? AND is_draft = ?`)
		res, err := tx.ExecContext(ctx, query, false, now, now, l.SessionID, l.ProductID, true)
		if err != nil {
			return nil, fmt.Errorf("promote drafts: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			log.Printf("store: promoted %d draft lead(s) for session %s", n, l.SessionID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit lead: %w", err)
	}
	return &l, nil
}

func (s *LeadStore) insert(ctx context.Context, tx *sql.Tx, l *models.Lead, now time.Time) error {
	l.CreatedAt, l.UpdatedAt = now, now
	query := s.dialect.Rebind(`
		INSERT INTO leads (session_id, product_id, product_slug, product_name, quantity, frequency,
			email, mobile, page_url, source, is_draft, submitted_at, ip_hash, user_agent, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err := tx.QueryRowContext(ctx, query,
		l.SessionID, l.ProductID, l.ProductSlug, l.ProductName, nullInt(l.Quantity), l.Frequency,
		l.Email, l.Mobile, l.PageURL, l.Source, l.IsDraft, nullTime(l.SubmittedAt), l.IPHash, l.UserAgent,
		l.CreatedAt, l.UpdatedAt,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

// Get loads one lead by id.
func (s *LeadStore) Get(ctx context.Context, id int64) (*models.Lead, error) {
	query := s.dialect.Rebind(`SELECT ` + leadColumns + ` FROM leads WHERE id = ?`)
	l, err := scanLead(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get lead %d: %w", id, err)
	}
	return l, nil
}
