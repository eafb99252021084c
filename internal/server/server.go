package server

import (
	"context"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/leadlinehq/leadline/internal/auth"
	"github.com/leadlinehq/leadline/internal/handlers"
)

type Server struct {
	echo *echo.Echo
	addr string
}

func NewServer(log *slog.Logger, addr string, jwtSecret string, pingHandler *handlers.PingHandler, authHandler *handlers.AuthHandler, chatHandler *handlers.ChatHandler, metaHandler *handlers.MetaWebhookHandler, stripeHandler *handlers.StripeWebhookHandler, contactsHandler *handlers.ContactsHandler, knowledgeHandler *handlers.KnowledgeHandler, promptHandler *handlers.PromptHandler, followupHandler *handlers.FollowupHandler) *Server {
	if addr == "" {
		addr = ":8080"
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", c.RealIP()),
			)
			return nil
		},
	}))
	e.Use(auth.JWTMiddleware(jwtSecret, func(c echo.Context) bool {
		return shouldSkipJWT(c.Request().URL.Path)
	}))

	if pingHandler != nil {
		pingHandler.Register(e)
	}
	if authHandler != nil {
		authHandler.Register(e)
	}
	if chatHandler != nil {
		chatHandler.Register(e)
	}
	if metaHandler != nil {
		metaHandler.Register(e)
	}
	if stripeHandler != nil {
		stripeHandler.Register(e)
	}
	if contactsHandler != nil {
		contactsHandler.Register(e)
	}
	if knowledgeHandler != nil {
		knowledgeHandler.Register(e)
	}
	if promptHandler != nil {
		promptHandler.Register(e)
	}
	if followupHandler != nil {
		followupHandler.Register(e)
	}

	return &Server{
		echo: e,
		addr: addr,
	}
}

// shouldSkipJWT marks the public surface: the health probe, the web chat
// endpoint, the login endpoint and the signed provider webhooks. Webhook
// requests authenticate with HMAC signatures instead of bearer tokens.
func shouldSkipJWT(path string) bool {
	switch path {
	case "/ping", "/health", "/chat", "/auth/login":
		return true
	}
	return strings.HasPrefix(path, "/webhook/")
}

func (s *Server) Start() error {
	return s.echo.Start(s.addr)
}

func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
