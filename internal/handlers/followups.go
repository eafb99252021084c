package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/leadlinehq/leadline/internal/followup"
)

type FollowupHandler struct {
	followups *followup.Service
	logger    *slog.Logger
}

func NewFollowupHandler(log *slog.Logger, followups *followup.Service) *FollowupHandler {
	return &FollowupHandler{
		followups: followups,
		logger:    log.With(slog.String("handler", "followups")),
	}
}

func (h *FollowupHandler) Register(e *echo.Echo) {
	e.POST("/admin/followups/run", h.Run)
}

// Run triggers one dispatch pass outside the cron cadence.
func (h *FollowupHandler) Run(c echo.Context) error {
	if err := h.followups.ProcessDue(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
