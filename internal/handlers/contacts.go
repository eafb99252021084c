package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/leadlinehq/leadline/internal/auth"
	"github.com/leadlinehq/leadline/internal/contact"
	"github.com/leadlinehq/leadline/internal/interaction"
)

type ContactsHandler struct {
	contacts     *contact.Service
	interactions *interaction.Service
	logger       *slog.Logger
}

func NewContactsHandler(log *slog.Logger, contacts *contact.Service, interactions *interaction.Service) *ContactsHandler {
	return &ContactsHandler{
		contacts:     contacts,
		interactions: interactions,
		logger:       log.With(slog.String("handler", "contacts")),
	}
}

func (h *ContactsHandler) Register(e *echo.Echo) {
	group := e.Group("/admin/contacts")
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.PATCH("/:id", h.Update)
	group.GET("/:id/history", h.History)
}

// List godoc
// @Summary List contacts
// @Tags admin
// @Produce json
// @Param tier query string false "Filter by lead tier (A, B or C)"
// @Param paused query bool false "Filter by paused state"
// @Success 200 {array} contact.Contact
// @Router /admin/contacts [get]
func (h *ContactsHandler) List(c echo.Context) error {
	filter := contact.ListFilter{Tier: c.QueryParam("tier")}
	if raw := c.QueryParam("paused"); raw != "" {
		paused, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid paused filter")
		}
		filter.Paused = &paused
	}
	if raw := c.QueryParam("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			filter.Limit = limit
		}
	}
	if raw := c.QueryParam("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil {
			filter.Offset = offset
		}
	}

	contacts, err := h.contacts.List(c.Request().Context(), filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, contacts)
}

func (h *ContactsHandler) Get(c echo.Context) error {
	found, err := h.contacts.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, contact.ErrContactNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "contact not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, found)
}

// Update godoc
// @Summary Update contact fields
// @Description Partial update. Use bot_paused to hand the conversation to a human or back to the agent.
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Contact ID"
// @Param request body contact.MergeRequest true "Fields to update"
// @Success 200 {object} contact.Contact
// @Router /admin/contacts/{id} [patch]
func (h *ContactsHandler) Update(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}

	var req contact.MergeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	updated, err := h.contacts.Merge(c.Request().Context(), c.Param("id"), req)
	if errors.Is(err, contact.ErrContactNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "contact not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.logger.Info("contact updated by admin",
		slog.String("contact_id", updated.ID),
		slog.String("admin_user_id", userID))
	return c.JSON(http.StatusOK, updated)
}

func (h *ContactsHandler) History(c echo.Context) error {
	if _, err := h.contacts.Get(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, contact.ErrContactNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "contact not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	history, err := h.interactions.ListRecent(c.Request().Context(), c.Param("id"), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, history)
}
