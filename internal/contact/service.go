// Package contact persists the contact ledger: one row per person per
// channel, merged incrementally as the conversation reveals more.
package contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadlinehq/leadline/internal/db"
)

var ErrContactNotFound = errors.New("contact not found")

type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewService(logger *slog.Logger, pool *pgxpool.Pool) *Service {
	return &Service{
		pool:   pool,
		logger: logger.With(slog.String("service", "contact")),
	}
}

const contactColumns = `id, channel, external_id, name, email, phone,
	bot_paused, is_student, paid_at, follow_up_count, last_contact_at,
	pain_point, maturity, commitment, lead_tier, created_at, updated_at`

// GetOrCreate returns the contact for (channel, externalID), creating it on
// first contact. Concurrent first messages race safely on the unique index.
func (s *Service) GetOrCreate(ctx context.Context, channel, externalID string) (Contact, error) {
	channel = strings.TrimSpace(channel)
	externalID = strings.TrimSpace(externalID)
	if channel == "" || externalID == "" {
		return Contact{}, fmt.Errorf("channel and external id are required")
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO contacts (channel, external_id)
		VALUES ($1, $2)
		ON CONFLICT (channel, external_id) DO UPDATE SET external_id = EXCLUDED.external_id
		RETURNING `+contactColumns,
		channel, externalID)

	c, err := scanContact(row)
	if err != nil {
		return Contact{}, fmt.Errorf("get or create contact: %w", err)
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (Contact, error) {
	uid, err := db.ParseUUID(id)
	if err != nil {
		return Contact{}, ErrContactNotFound
	}
	row := s.pool.QueryRow(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1`, uid)
	c, err := scanContact(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, ErrContactNotFound
	}
	if err != nil {
		return Contact{}, fmt.Errorf("get contact: %w", err)
	}
	return c, nil
}

// GetByEmail finds a contact by case-insensitive email. Used by the payment
// webhook fallback path.
func (s *Service) GetByEmail(ctx context.Context, email string) (Contact, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Contact{}, ErrContactNotFound
	}
	row := s.pool.QueryRow(ctx, `
		SELECT `+contactColumns+` FROM contacts
		WHERE lower(email) = lower($1)
		ORDER BY updated_at DESC
		LIMIT 1`, email)
	c, err := scanContact(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, ErrContactNotFound
	}
	if err != nil {
		return Contact{}, fmt.Errorf("get contact by email: %w", err)
	}
	return c, nil
}

// Merge applies a partial update. Only non-nil fields overwrite; everything
// else keeps its stored value.
func (s *Service) Merge(ctx context.Context, id string, req MergeRequest) (Contact, error) {
	uid, err := db.ParseUUID(id)
	if err != nil {
		return Contact{}, ErrContactNotFound
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE contacts SET
			name        = COALESCE($2, name),
			email       = COALESCE($3, email),
			phone       = COALESCE($4, phone),
			bot_paused  = COALESCE($5, bot_paused),
			pain_point  = COALESCE($6, pain_point),
			maturity    = COALESCE($7, maturity),
			commitment  = COALESCE($8, commitment),
			lead_tier   = COALESCE($9, lead_tier),
			updated_at  = now()
		WHERE id = $1
		RETURNING `+contactColumns,
		uid, req.Name, req.Email, req.Phone, req.BotPaused,
		req.PainPoint, req.Maturity, req.Commitment, req.LeadTier)

	c, err := scanContact(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, ErrContactNotFound
	}
	if err != nil {
		return Contact{}, fmt.Errorf("merge contact: %w", err)
	}
	return c, nil
}

// TouchInbound stamps last_contact_at and resets the follow-up counter.
// Every inbound message makes the contact "fresh" again.
func (s *Service) TouchInbound(ctx context.Context, id string) error {
	uid, err := db.ParseUUID(id)
	if err != nil {
		return ErrContactNotFound
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE contacts
		SET last_contact_at = now(), follow_up_count = 0, updated_at = now()
		WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("touch contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrContactNotFound
	}
	return nil
}

// BumpFollowUp increments the follow-up counter after a nudge is sent.
func (s *Service) BumpFollowUp(ctx context.Context, id string) error {
	uid, err := db.ParseUUID(id)
	if err != nil {
		return ErrContactNotFound
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE contacts
		SET follow_up_count = follow_up_count + 1, updated_at = now()
		WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("bump follow up: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrContactNotFound
	}
	return nil
}

// MarkStudent upgrades a contact after a completed payment. Idempotent; the
// paid_at stamp keeps the first payment time on replays.
func (s *Service) MarkStudent(ctx context.Context, id string) error {
	uid, err := db.ParseUUID(id)
	if err != nil {
		return ErrContactNotFound
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE contacts
		SET is_student = TRUE, paid_at = COALESCE(paid_at, now()), updated_at = now()
		WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("mark student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrContactNotFound
	}
	return nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Contact, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+contactColumns+` FROM contacts
		WHERE ($1 = '' OR lead_tier = $1)
		  AND ($2::boolean IS NULL OR bot_paused = $2)
		ORDER BY updated_at DESC
		LIMIT $3 OFFSET $4`,
		filter.Tier, filter.Paused, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	contacts := make([]Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func scanContact(row pgx.Row) (Contact, error) {
	var (
		c             Contact
		id            pgtype.UUID
		name          pgtype.Text
		email         pgtype.Text
		phone         pgtype.Text
		paidAt        pgtype.Timestamptz
		lastContactAt pgtype.Timestamptz
		painPoint     pgtype.Text
		maturity      pgtype.Text
		commitment    pgtype.Text
		leadTier      pgtype.Text
	)
	err := row.Scan(&id, &c.Channel, &c.ExternalID, &name, &email, &phone,
		&c.BotPaused, &c.IsStudent, &paidAt, &c.FollowUpCount, &lastContactAt,
		&painPoint, &maturity, &commitment, &leadTier, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Contact{}, err
	}
	c.ID = db.UUIDToString(id)
	c.Name = db.TextToString(name)
	c.Email = db.TextToString(email)
	c.Phone = db.TextToString(phone)
	c.PainPoint = db.TextToString(painPoint)
	c.Maturity = db.TextToString(maturity)
	c.Commitment = db.TextToString(commitment)
	c.LeadTier = db.TextToString(leadTier)
	if paidAt.Valid {
		t := paidAt.Time
		c.PaidAt = &t
	}
	if lastContactAt.Valid {
		t := lastContactAt.Time
		c.LastContactAt = &t
	}
	return c, nil
}
