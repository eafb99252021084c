package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/leadlinehq/leadline/internal/knowledge"
	"github.com/leadlinehq/leadline/internal/prompt"
)

type KnowledgeHandler struct {
	knowledge *knowledge.Service
	assembler *prompt.Assembler
	logger    *slog.Logger
}

func NewKnowledgeHandler(log *slog.Logger, knowledgeService *knowledge.Service, assembler *prompt.Assembler) *KnowledgeHandler {
	return &KnowledgeHandler{
		knowledge: knowledgeService,
		assembler: assembler,
		logger:    log.With(slog.String("handler", "knowledge")),
	}
}

func (h *KnowledgeHandler) Register(e *echo.Echo) {
	group := e.Group("/admin/knowledge")
	group.POST("", h.Upload)
	group.GET("", h.List)
	group.DELETE("/:id", h.Delete)
}

// Upload godoc
// @Summary Upload a persona or knowledge artifact
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Param kind formData string true "persona or knowledge"
// @Param file formData file true "Artifact file"
// @Success 201 {object} knowledge.Artifact
// @Router /admin/knowledge [post]
func (h *KnowledgeHandler) Upload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot open upload")
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read upload")
	}

	artifact, err := h.knowledge.Upload(c.Request().Context(), knowledge.UploadRequest{
		Kind:     c.FormValue("kind"),
		Filename: fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Content:  content,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	h.refreshPrompt(c)
	return c.JSON(http.StatusCreated, artifact)
}

func (h *KnowledgeHandler) List(c echo.Context) error {
	artifacts, err := h.knowledge.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, artifacts)
}

func (h *KnowledgeHandler) Delete(c echo.Context) error {
	err := h.knowledge.Delete(c.Request().Context(), c.Param("id"))
	if errors.Is(err, knowledge.ErrArtifactNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "artifact not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.refreshPrompt(c)
	return c.NoContent(http.StatusNoContent)
}

// refreshPrompt swaps in a fresh snapshot. In-flight requests keep the
// snapshot they already hold.
func (h *KnowledgeHandler) refreshPrompt(c echo.Context) {
	if err := h.assembler.Refresh(c.Request().Context()); err != nil {
		h.logger.Error("prompt refresh failed", slog.Any("error", err))
	}
}
