package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadlinehq/leadline/internal/db"
)

var ErrUserNotFound = errors.New("admin user not found")

// AdminUser is one operator account for the admin surface.
type AdminUser struct {
	ID           string
	Username     string
	PasswordHash string
	Email        string
}

// Store persists admin users.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) GetByUsername(ctx context.Context, username string) (AdminUser, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, email FROM admin_users WHERE username = $1`, username)

	var (
		user  AdminUser
		id    pgtype.UUID
		email pgtype.Text
	)
	err := row.Scan(&id, &user.Username, &user.PasswordHash, &email)
	if errors.Is(err, pgx.ErrNoRows) {
		return AdminUser{}, ErrUserNotFound
	}
	if err != nil {
		return AdminUser{}, fmt.Errorf("get admin user: %w", err)
	}
	user.ID = db.UUIDToString(id)
	user.Email = db.TextToString(email)
	return user, nil
}

// Create inserts an admin user. An already existing username is treated as
// success so seeding on startup stays idempotent.
func (s *Store) Create(ctx context.Context, username, passwordHash, email string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO admin_users (username, password_hash, email)
		VALUES ($1, $2, $3)`,
		username, passwordHash, db.ToText(email))
	if db.IsUniqueViolation(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	return nil
}
