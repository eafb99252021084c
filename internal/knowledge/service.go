// Package knowledge manages the persona and knowledge artifacts the prompt
// assembler folds into the system prompt.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadlinehq/leadline/internal/db"
)

var (
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrUnsupportedType  = errors.New("unsupported artifact type")
)

type Service struct {
	pool     *pgxpool.Pool
	logger   *slog.Logger
	validate *validator.Validate
	dataDir  string
}

func NewService(logger *slog.Logger, pool *pgxpool.Pool, dataDir string) *Service {
	if dataDir == "" {
		dataDir = "data/knowledge"
	}
	return &Service{
		pool:     pool,
		logger:   logger.With(slog.String("service", "knowledge")),
		validate: validator.New(),
		dataDir:  dataDir,
	}
}

// Upload ingests one artifact. Text-bearing uploads are extracted inline and
// become active immediately; media uploads are written to the data dir and
// referenced for native engine delivery; anything else is recorded as error.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (Artifact, error) {
	if err := s.validate.Struct(req); err != nil {
		return Artifact{}, fmt.Errorf("validate upload: %w", err)
	}
	if len(req.Content) == 0 {
		return Artifact{}, fmt.Errorf("upload content is empty")
	}

	status := StatusActive
	extracted := ""
	storageRef := ""

	switch classifyMime(req.MimeType) {
	case routeText:
		text, ok := extractArtifactText(req.MimeType, req.Content)
		if !ok {
			status = StatusError
			s.logger.Warn("text extraction failed",
				slog.String("filename", req.Filename),
				slog.String("mime_type", req.MimeType))
		} else {
			extracted = text
		}
	case routeMedia:
		ref, err := s.storeMedia(req.Filename, req.Content)
		if err != nil {
			return Artifact{}, fmt.Errorf("store media artifact: %w", err)
		}
		storageRef = ref
	default:
		status = StatusError
		s.logger.Warn("unsupported artifact mime type",
			slog.String("filename", req.Filename),
			slog.String("mime_type", req.MimeType))
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO knowledge_artifacts (kind, filename, mime_type, status, extracted_text, storage_ref)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, kind, filename, mime_type, status, extracted_text, storage_ref, created_at, updated_at`,
		req.Kind, req.Filename, req.MimeType, status,
		db.ToText(extracted), db.ToText(storageRef))

	artifact, err := scanArtifact(row)
	if err != nil {
		return Artifact{}, fmt.Errorf("insert artifact: %w", err)
	}

	s.logger.Info("artifact uploaded",
		slog.String("id", artifact.ID),
		slog.String("kind", artifact.Kind),
		slog.String("status", artifact.Status))
	return artifact, nil
}

func (s *Service) List(ctx context.Context) ([]Artifact, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, kind, filename, mime_type, status, extracted_text, storage_ref, created_at, updated_at
		FROM knowledge_artifacts
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := make([]Artifact, 0)
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

// ListActive returns the artifacts eligible for prompt assembly.
func (s *Service) ListActive(ctx context.Context) ([]Artifact, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, kind, filename, mime_type, status, extracted_text, storage_ref, created_at, updated_at
		FROM knowledge_artifacts
		WHERE status = $1
		ORDER BY created_at ASC`, StatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := make([]Artifact, 0)
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

func (s *Service) Delete(ctx context.Context, id string) error {
	uid, err := db.ParseUUID(id)
	if err != nil {
		return ErrArtifactNotFound
	}

	var storageRef pgtype.Text
	err = s.pool.QueryRow(ctx, `
		DELETE FROM knowledge_artifacts WHERE id = $1 RETURNING storage_ref`, uid).Scan(&storageRef)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrArtifactNotFound
	}
	if err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}

	if storageRef.Valid && storageRef.String != "" {
		if err := os.Remove(storageRef.String); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("remove artifact file failed",
				slog.String("path", storageRef.String),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

func (s *Service) storeMedia(filename string, content []byte) (string, error) {
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.dataDir, uuid.NewString()+"_"+filepath.Base(filename))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func scanArtifact(row pgx.Row) (Artifact, error) {
	var (
		a          Artifact
		id         pgtype.UUID
		extracted  pgtype.Text
		storageRef pgtype.Text
	)
	err := row.Scan(&id, &a.Kind, &a.Filename, &a.MimeType, &a.Status,
		&extracted, &storageRef, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Artifact{}, err
	}
	a.ID = db.UUIDToString(id)
	a.ExtractedText = db.TextToString(extracted)
	a.StorageRef = db.TextToString(storageRef)
	return a, nil
}
