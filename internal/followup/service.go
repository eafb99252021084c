// Package followup schedules and dispatches inactivity nudges. The write
// side debounces to one pending task per contact; the read side claims a
// task before dispatching so concurrent passes never double-send.
package followup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadlinehq/leadline/internal/config"
	"github.com/leadlinehq/leadline/internal/contact"
	"github.com/leadlinehq/leadline/internal/db"
)

// Nudger composes and delivers one follow-up message.
type Nudger interface {
	SendFollowUp(ctx context.Context, c contact.Contact, attempt int) error
}

type Service struct {
	pool         *pgxpool.Pool
	contacts     *contact.Service
	nudger       Nudger
	logger       *slog.Logger
	window       time.Duration
	maxFollowups int
}

func NewService(logger *slog.Logger, pool *pgxpool.Pool, contacts *contact.Service, cfg config.FollowupConfig) *Service {
	window := time.Duration(cfg.WindowMinutes) * time.Minute
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Service{
		pool:         pool,
		contacts:     contacts,
		logger:       logger.With(slog.String("service", "followup")),
		window:       window,
		maxFollowups: cfg.MaxFollowups,
	}
}

// SetNudger wires the dispatcher after construction. The dispatcher itself
// schedules tasks through this service, so the two cannot reference each
// other at construction time.
func (s *Service) SetNudger(n Nudger) {
	s.nudger = n
}

// Reschedule pushes the contact's pending inactivity task to now+window,
// creating it when absent. Repeated inbound messages collapse into a single
// task at the latest deadline.
func (s *Service) Reschedule(ctx context.Context, contactID string) error {
	cid, err := db.ParseUUID(contactID)
	if err != nil {
		return fmt.Errorf("reschedule follow-up: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO followup_tasks (contact_id, trigger_type, trigger_at)
		VALUES ($1, $2, now() + make_interval(mins => $3))
		ON CONFLICT (contact_id, trigger_type) WHERE status = 'pending'
		DO UPDATE SET trigger_at = EXCLUDED.trigger_at, updated_at = now()`,
		cid, TriggerInactivity, int(s.window.Minutes()))
	if err != nil {
		return fmt.Errorf("reschedule follow-up: %w", err)
	}
	return nil
}

// Cancel drops any pending task for the contact.
func (s *Service) Cancel(ctx context.Context, contactID string) error {
	cid, err := db.ParseUUID(contactID)
	if err != nil {
		return fmt.Errorf("cancel follow-up: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE followup_tasks SET status = $2, updated_at = now()
		WHERE contact_id = $1 AND status = $3`,
		cid, StatusCancelled, StatusPending)
	if err != nil {
		return fmt.Errorf("cancel follow-up: %w", err)
	}
	return nil
}

// ProcessDue runs one dispatch pass. Contacts that are paused, converted or
// already at the follow-up cap have their tasks cancelled instead of sent.
func (s *Service) ProcessDue(ctx context.Context) error {
	if s.nudger == nil {
		return fmt.Errorf("process follow-ups: nudger not configured")
	}
	due, err := s.listDue(ctx)
	if err != nil {
		return err
	}

	for _, task := range due {
		c, err := s.contacts.Get(ctx, task.ContactID)
		if err != nil {
			s.logger.Error("load contact for follow-up failed",
				slog.String("task_id", task.ID),
				slog.Any("error", err))
			continue
		}

		if c.BotPaused || c.IsStudent || c.FollowUpCount >= s.maxFollowups {
			if err := s.finishTask(ctx, task.ID, StatusCancelled); err != nil {
				s.logger.Error("cancel follow-up task failed", slog.String("task_id", task.ID), slog.Any("error", err))
			}
			continue
		}

		claimed, err := s.claimTask(ctx, task.ID)
		if err != nil {
			s.logger.Error("claim follow-up task failed", slog.String("task_id", task.ID), slog.Any("error", err))
			continue
		}
		if !claimed {
			// Another pass took it.
			continue
		}

		if err := s.nudger.SendFollowUp(ctx, c, c.FollowUpCount+1); err != nil {
			s.logger.Error("follow-up dispatch failed",
				slog.String("task_id", task.ID),
				slog.String("contact_id", c.ID),
				slog.Any("error", err))
			if err := s.retryLater(ctx, task.ID); err != nil {
				s.logger.Error("requeue follow-up task failed", slog.String("task_id", task.ID), slog.Any("error", err))
			}
			continue
		}

		if err := s.contacts.BumpFollowUp(ctx, c.ID); err != nil {
			s.logger.Error("bump follow-up count failed", slog.String("contact_id", c.ID), slog.Any("error", err))
		}
		if err := s.finishTask(ctx, task.ID, StatusDone); err != nil {
			s.logger.Error("finish follow-up task failed", slog.String("task_id", task.ID), slog.Any("error", err))
		}
		s.logger.Info("follow-up sent",
			slog.String("contact_id", c.ID),
			slog.Int("attempt", c.FollowUpCount+1))
	}
	return nil
}

func (s *Service) listDue(ctx context.Context) ([]Task, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, contact_id, trigger_type, trigger_at, status, attempts
		FROM followup_tasks
		WHERE status = $1 AND trigger_at <= now()
		ORDER BY trigger_at ASC
		LIMIT 100`, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list due follow-ups: %w", err)
	}
	defer rows.Close()

	tasks := make([]Task, 0)
	for rows.Next() {
		var (
			task Task
			id   pgtype.UUID
			cid  pgtype.UUID
		)
		if err := rows.Scan(&id, &cid, &task.TriggerType, &task.TriggerAt, &task.Status, &task.Attempts); err != nil {
			return nil, fmt.Errorf("scan follow-up task: %w", err)
		}
		task.ID = db.UUIDToString(id)
		task.ContactID = db.UUIDToString(cid)
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// claimTask flips pending to processing. The conditional update is the
// concurrency guard: only one pass can win.
func (s *Service) claimTask(ctx context.Context, taskID string) (bool, error) {
	tid, err := db.ParseUUID(taskID)
	if err != nil {
		return false, err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE followup_tasks
		SET status = $2, attempts = attempts + 1, updated_at = now()
		WHERE id = $1 AND status = $3`,
		tid, StatusProcessing, StatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Service) finishTask(ctx context.Context, taskID, status string) error {
	tid, err := db.ParseUUID(taskID)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE followup_tasks SET status = $2, updated_at = now() WHERE id = $1`,
		tid, status)
	return err
}

func (s *Service) retryLater(ctx context.Context, taskID string) error {
	tid, err := db.ParseUUID(taskID)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE followup_tasks
		SET status = $2, trigger_at = now() + interval '30 minutes', updated_at = now()
		WHERE id = $1`,
		tid, StatusPending)
	return err
}
