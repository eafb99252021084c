// Package prompt holds the layered persona configuration and assembles the
// system prompt handed to the response engine.
package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewService(logger *slog.Logger, pool *pgxpool.Pool) *Service {
	return &Service{
		pool:   pool,
		logger: logger.With(slog.String("service", "prompt")),
	}
}

// Get returns the stored config, or the compiled-in default when the
// operator has never saved one.
func (s *Service) Get(ctx context.Context) (CoreConfig, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT identity, mission, tone, anchor_phrases, hard_limits, situational, final_directive, updated_at
		FROM prompt_config WHERE id = 1`)

	var (
		cfg         CoreConfig
		anchorsJSON []byte
		limitsJSON  []byte
		sitJSON     []byte
	)
	err := row.Scan(&cfg.Identity, &cfg.Mission, &cfg.Tone,
		&anchorsJSON, &limitsJSON, &sitJSON, &cfg.FinalDirective, &cfg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return CoreConfig{}, fmt.Errorf("get prompt config: %w", err)
	}

	if err := json.Unmarshal(anchorsJSON, &cfg.AnchorPhrases); err != nil {
		return CoreConfig{}, fmt.Errorf("decode anchor phrases: %w", err)
	}
	if err := json.Unmarshal(limitsJSON, &cfg.HardLimits); err != nil {
		return CoreConfig{}, fmt.Errorf("decode hard limits: %w", err)
	}
	if err := json.Unmarshal(sitJSON, &cfg.Situational); err != nil {
		return CoreConfig{}, fmt.Errorf("decode situational behaviors: %w", err)
	}
	return cfg, nil
}

// Update applies a partial config change and persists the merged result.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (CoreConfig, error) {
	cfg, err := s.Get(ctx)
	if err != nil {
		return CoreConfig{}, err
	}

	if req.Identity != nil {
		cfg.Identity = *req.Identity
	}
	if req.Mission != nil {
		cfg.Mission = *req.Mission
	}
	if req.Tone != nil {
		cfg.Tone = *req.Tone
	}
	if req.AnchorPhrases != nil {
		cfg.AnchorPhrases = *req.AnchorPhrases
	}
	if req.HardLimits != nil {
		cfg.HardLimits = *req.HardLimits
	}
	if req.Situational != nil {
		cfg.Situational = *req.Situational
	}
	if req.FinalDirective != nil {
		cfg.FinalDirective = *req.FinalDirective
	}

	if err := s.save(ctx, cfg); err != nil {
		return CoreConfig{}, err
	}
	return s.Get(ctx)
}

// Reset restores the compiled-in default persona.
func (s *Service) Reset(ctx context.Context) (CoreConfig, error) {
	if err := s.save(ctx, DefaultConfig()); err != nil {
		return CoreConfig{}, err
	}
	return s.Get(ctx)
}

func (s *Service) save(ctx context.Context, cfg CoreConfig) error {
	anchorsJSON, err := json.Marshal(nonNilStrings(cfg.AnchorPhrases))
	if err != nil {
		return fmt.Errorf("encode anchor phrases: %w", err)
	}
	limitsJSON, err := json.Marshal(nonNilStrings(cfg.HardLimits))
	if err != nil {
		return fmt.Errorf("encode hard limits: %w", err)
	}
	sitJSON, err := json.Marshal(nonNilMap(cfg.Situational))
	if err != nil {
		return fmt.Errorf("encode situational behaviors: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO prompt_config (id, identity, mission, tone, anchor_phrases, hard_limits, situational, final_directive, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (id) DO UPDATE SET
			identity = EXCLUDED.identity,
			mission = EXCLUDED.mission,
			tone = EXCLUDED.tone,
			anchor_phrases = EXCLUDED.anchor_phrases,
			hard_limits = EXCLUDED.hard_limits,
			situational = EXCLUDED.situational,
			final_directive = EXCLUDED.final_directive,
			updated_at = now()`,
		cfg.Identity, cfg.Mission, cfg.Tone, anchorsJSON, limitsJSON, sitJSON, cfg.FinalDirective)
	if err != nil {
		return fmt.Errorf("save prompt config: %w", err)
	}
	return nil
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func nonNilMap(values map[string]string) map[string]string {
	if values == nil {
		return map[string]string{}
	}
	return values
}
