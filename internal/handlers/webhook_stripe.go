package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/leadlinehq/leadline/internal/config"
	"github.com/leadlinehq/leadline/internal/payments"
	"github.com/leadlinehq/leadline/internal/webhook"
)

type StripeWebhookHandler struct {
	payments *payments.Service
	cfg      config.StripeConfig
	logger   *slog.Logger
}

func NewStripeWebhookHandler(log *slog.Logger, paymentsService *payments.Service, cfg config.StripeConfig) *StripeWebhookHandler {
	return &StripeWebhookHandler{
		payments: paymentsService,
		cfg:      cfg,
		logger:   log.With(slog.String("handler", "stripe_webhook")),
	}
}

func (h *StripeWebhookHandler) Register(e *echo.Echo) {
	e.POST("/webhook/stripe", h.Receive)
}

func (h *StripeWebhookHandler) Receive(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	tolerance := time.Duration(h.cfg.ToleranceSeconds) * time.Second
	header := c.Request().Header.Get("Stripe-Signature")
	if err := webhook.VerifyStripe(h.cfg.WebhookSecret, body, header, tolerance, time.Now()); err != nil {
		h.logger.Warn("payment webhook signature rejected", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
	}

	if err := h.payments.HandleEvent(c.Request().Context(), body); err != nil {
		h.logger.Error("payment event failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "event processing failed")
	}
	return c.JSON(http.StatusOK, map[string]string{"received": "true"})
}
