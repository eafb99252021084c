// Package interaction stores the append-only conversation log and shapes it
// into the strictly alternating history the engine expects.
package interaction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadlinehq/leadline/internal/db"
)

type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewService(logger *slog.Logger, pool *pgxpool.Pool) *Service {
	return &Service{
		pool:   pool,
		logger: logger.With(slog.String("service", "interaction")),
	}
}

// Append records one message. Content is stored verbatim.
func (s *Service) Append(ctx context.Context, contactID, role, content string, needsHuman bool) (Interaction, error) {
	if role != RoleUser && role != RoleAgent {
		return Interaction{}, fmt.Errorf("invalid role %q", role)
	}
	if strings.TrimSpace(content) == "" {
		return Interaction{}, fmt.Errorf("content is required")
	}
	cid, err := db.ParseUUID(contactID)
	if err != nil {
		return Interaction{}, fmt.Errorf("append interaction: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO interactions (contact_id, role, content, needs_human)
		VALUES ($1, $2, $3, $4)
		RETURNING id, contact_id, role, content, needs_human, created_at`,
		cid, role, content, needsHuman)

	var (
		rec Interaction
		id  pgtype.UUID
		cID pgtype.UUID
	)
	if err := row.Scan(&id, &cID, &rec.Role, &rec.Content, &rec.NeedsHuman, &rec.CreatedAt); err != nil {
		return Interaction{}, fmt.Errorf("append interaction: %w", err)
	}
	rec.ID = db.UUIDToString(id)
	rec.ContactID = db.UUIDToString(cID)
	return rec, nil
}

// ListRecent returns up to limit interactions for a contact, newest first.
func (s *Service) ListRecent(ctx context.Context, contactID string, limit int) ([]Interaction, error) {
	cid, err := db.ParseUUID(contactID)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, contact_id, role, content, needs_human, created_at
		FROM interactions
		WHERE contact_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, cid, limit)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	items := make([]Interaction, 0, limit)
	for rows.Next() {
		var (
			rec Interaction
			id  pgtype.UUID
			cID pgtype.UUID
		)
		if err := rows.Scan(&id, &cID, &rec.Role, &rec.Content, &rec.NeedsHuman, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		rec.ID = db.UUIDToString(id)
		rec.ContactID = db.UUIDToString(cID)
		items = append(items, rec)
	}
	return items, rows.Err()
}
