package followup

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Runner drives ProcessDue on a fixed cadence.
type Runner struct {
	service *Service
	logger  *slog.Logger
	cron    *cron.Cron
}

func NewRunner(logger *slog.Logger, service *Service) *Runner {
	return &Runner{
		service: service,
		logger:  logger.With(slog.String("service", "followup_runner")),
		cron:    cron.New(),
	}
}

// Bootstrap registers the minutely pass and starts the scheduler.
func (r *Runner) Bootstrap() error {
	_, err := r.cron.AddFunc("* * * * *", func() {
		if err := r.service.ProcessDue(context.Background()); err != nil {
			r.logger.Error("follow-up pass failed", slog.Any("error", err))
		}
	})
	if err != nil {
		return err
	}
	r.cron.Start()
	r.logger.Info("follow-up scheduler started")
	return nil
}

// Stop halts the scheduler and waits for a running pass to finish.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("follow-up scheduler stopped")
}
