package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/leadlinehq/leadline/internal/channel"
	"github.com/leadlinehq/leadline/internal/channel/adapters/meta"
	"github.com/leadlinehq/leadline/internal/config"
	"github.com/leadlinehq/leadline/internal/orchestrator"
	"github.com/leadlinehq/leadline/internal/webhook"
)

// InboundProcessor runs the conversation flow for one inbound message.
type InboundProcessor interface {
	HandleInbound(ctx context.Context, in channel.Inbound) (orchestrator.Reply, error)
}

type MetaWebhookHandler struct {
	orchestrator InboundProcessor
	cfg          config.MetaConfig
	logger       *slog.Logger
}

func NewMetaWebhookHandler(log *slog.Logger, orch InboundProcessor, cfg config.MetaConfig) *MetaWebhookHandler {
	return &MetaWebhookHandler{
		orchestrator: orch,
		cfg:          cfg,
		logger:       log.With(slog.String("handler", "meta_webhook")),
	}
}

func (h *MetaWebhookHandler) Register(e *echo.Echo) {
	e.GET("/webhook/meta", h.Verify)
	e.POST("/webhook/meta", h.Receive)
}

// Verify answers the subscription handshake: the challenge echoes back
// verbatim when the verify token matches.
func (h *MetaWebhookHandler) Verify(c echo.Context) error {
	mode := c.QueryParam("hub.mode")
	token := c.QueryParam("hub.verify_token")
	challenge := c.QueryParam("hub.challenge")

	if mode == "subscribe" && token != "" && token == h.cfg.VerifyToken {
		return c.String(http.StatusOK, challenge)
	}
	h.logger.Warn("webhook verification rejected", slog.String("mode", mode))
	return echo.NewHTTPError(http.StatusForbidden, "verification failed")
}

// Receive verifies the payload signature, acknowledges immediately and
// processes each inbound message in the background.
func (h *MetaWebhookHandler) Receive(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	if err := h.verifySignature(body, c.Request().Header.Get("X-Hub-Signature-256")); err != nil {
		h.logger.Warn("webhook signature rejected", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusForbidden, "invalid signature")
	}

	inbounds, err := meta.ParsePayload(body)
	if err != nil {
		h.logger.Warn("webhook payload ignored", slog.Any("error", err))
		// Meta retries on non-2xx; a payload shape this service does not
		// consume is acknowledged, not bounced.
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}

	ctx := context.WithoutCancel(c.Request().Context())
	for _, inbound := range inbounds {
		go h.process(ctx, inbound)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *MetaWebhookHandler) verifySignature(body []byte, header string) error {
	if h.cfg.AppSecret == "" {
		if h.cfg.AllowUnsigned {
			h.logger.Warn("app secret not configured, accepting unsigned webhook")
			return nil
		}
		return webhook.ErrMissingSignature
	}
	return webhook.VerifyMeta(h.cfg.AppSecret, body, header)
}

func (h *MetaWebhookHandler) process(ctx context.Context, inbound channel.Inbound) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("webhook processing panicked",
				slog.String("channel", inbound.Channel.String()),
				slog.Any("panic", r))
		}
	}()

	if _, err := h.orchestrator.HandleInbound(ctx, inbound); err != nil {
		h.logger.Error("webhook processing failed",
			slog.String("channel", inbound.Channel.String()),
			slog.String("external_id", inbound.ExternalID),
			slog.Any("error", err))
	}
}
