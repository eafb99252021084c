package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/leadlinehq/leadline/internal/prompt"
)

type PromptHandler struct {
	prompts   *prompt.Service
	assembler *prompt.Assembler
	logger    *slog.Logger
}

func NewPromptHandler(log *slog.Logger, prompts *prompt.Service, assembler *prompt.Assembler) *PromptHandler {
	return &PromptHandler{
		prompts:   prompts,
		assembler: assembler,
		logger:    log.With(slog.String("handler", "prompt")),
	}
}

func (h *PromptHandler) Register(e *echo.Echo) {
	group := e.Group("/admin/prompt")
	group.GET("", h.Get)
	group.PUT("", h.Update)
	group.POST("/reset", h.Reset)
}

func (h *PromptHandler) Get(c echo.Context) error {
	cfg, err := h.prompts.Get(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, cfg)
}

func (h *PromptHandler) Update(c echo.Context) error {
	var req prompt.UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	cfg, err := h.prompts.Update(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.refresh(c)
	return c.JSON(http.StatusOK, cfg)
}

func (h *PromptHandler) Reset(c echo.Context) error {
	cfg, err := h.prompts.Reset(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.refresh(c)
	return c.JSON(http.StatusOK, cfg)
}

func (h *PromptHandler) refresh(c echo.Context) {
	if err := h.assembler.Refresh(c.Request().Context()); err != nil {
		h.logger.Error("prompt refresh failed", slog.Any("error", err))
	}
}
