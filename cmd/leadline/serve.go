package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"golang.org/x/crypto/bcrypt"

	"github.com/leadlinehq/leadline/internal/auth"
	"github.com/leadlinehq/leadline/internal/channel"
	"github.com/leadlinehq/leadline/internal/channel/adapters/meta"
	"github.com/leadlinehq/leadline/internal/channel/adapters/web"
	"github.com/leadlinehq/leadline/internal/config"
	"github.com/leadlinehq/leadline/internal/contact"
	"github.com/leadlinehq/leadline/internal/db"
	"github.com/leadlinehq/leadline/internal/engine"
	"github.com/leadlinehq/leadline/internal/followup"
	"github.com/leadlinehq/leadline/internal/handlers"
	"github.com/leadlinehq/leadline/internal/interaction"
	"github.com/leadlinehq/leadline/internal/knowledge"
	"github.com/leadlinehq/leadline/internal/lead"
	"github.com/leadlinehq/leadline/internal/logger"
	"github.com/leadlinehq/leadline/internal/orchestrator"
	"github.com/leadlinehq/leadline/internal/payments"
	"github.com/leadlinehq/leadline/internal/prompt"
	"github.com/leadlinehq/leadline/internal/server"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			contact.NewService,
			interaction.NewService,
			provideKnowledgeService,
			prompt.NewService,
			provideAssembler,
			provideEngineClient,
			provideClassifier,
			provideFollowupService,
			followup.NewRunner,
			providePaymentsService,
			provideChannelRegistry,
			provideOrchestrator,
			auth.NewStore,
			handlers.NewPingHandler,
			provideAuthHandler,
			provideChatHandler,
			provideMetaWebhookHandler,
			provideStripeWebhookHandler,
			handlers.NewContactsHandler,
			handlers.NewKnowledgeHandler,
			handlers.NewPromptHandler,
			handlers.NewFollowupHandler,
			provideServer,
		),
		fx.Invoke(
			wireNudger,
			startPromptAssembler,
			startFollowupRunner,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func runMigrate() error {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.Init(cfg.Log.Level, cfg.Log.Format)
	if err := db.Migrate(cfg.Postgres); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("migrations applied")
	return nil
}

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	return logger.Init(cfg.Log.Level, cfg.Log.Format)
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.Postgres); err != nil {
		return nil, fmt.Errorf("db migrate: %w", err)
	}
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { conn.Close(); return nil }})
	return conn, nil
}

func provideKnowledgeService(log *slog.Logger, pool *pgxpool.Pool) *knowledge.Service {
	return knowledge.NewService(log, pool, "")
}

func provideAssembler(log *slog.Logger, prompts *prompt.Service, artifacts *knowledge.Service) *prompt.Assembler {
	return prompt.NewAssembler(log, prompts, artifacts)
}

func provideEngineClient(log *slog.Logger, cfg config.Config) *engine.Client {
	return engine.NewClient(log, cfg.Engine)
}

func provideClassifier(log *slog.Logger, eng *engine.Client, contacts *contact.Service) *lead.Classifier {
	return lead.NewClassifier(log, eng, contacts)
}

func provideFollowupService(log *slog.Logger, pool *pgxpool.Pool, contacts *contact.Service, cfg config.Config) *followup.Service {
	return followup.NewService(log, pool, contacts, cfg.Followup)
}

func providePaymentsService(log *slog.Logger, contacts *contact.Service) *payments.Service {
	return payments.NewService(log, contacts)
}

func provideChannelRegistry(log *slog.Logger, cfg config.Config) *channel.Registry {
	registry := channel.NewRegistry()
	metaClient := meta.NewClient(log, cfg.Meta)
	registry.MustRegister(meta.NewWhatsAppAdapter(metaClient))
	registry.MustRegister(meta.NewInstagramAdapter(metaClient))
	registry.MustRegister(meta.NewMessengerAdapter(metaClient))
	registry.MustRegister(web.NewAdapter())
	return registry
}

func provideOrchestrator(log *slog.Logger, contacts *contact.Service, interactions *interaction.Service, assembler *prompt.Assembler, eng *engine.Client, cls *lead.Classifier, followups *followup.Service, registry *channel.Registry, cfg config.Config) *orchestrator.Service {
	return orchestrator.NewService(log, contacts, interactions, assembler, eng, cls, followups, registry, cfg.Agent)
}

func provideAuthHandler(log *slog.Logger, store *auth.Store, cfg config.Config) *handlers.AuthHandler {
	return handlers.NewAuthHandler(log, store, cfg.Auth)
}

func provideChatHandler(orch *orchestrator.Service) *handlers.ChatHandler {
	return handlers.NewChatHandler(orch)
}

func provideMetaWebhookHandler(log *slog.Logger, orch *orchestrator.Service, cfg config.Config) *handlers.MetaWebhookHandler {
	return handlers.NewMetaWebhookHandler(log, orch, cfg.Meta)
}

func provideStripeWebhookHandler(log *slog.Logger, paymentsService *payments.Service, cfg config.Config) *handlers.StripeWebhookHandler {
	return handlers.NewStripeWebhookHandler(log, paymentsService, cfg.Stripe)
}

func provideServer(log *slog.Logger, cfg config.Config, pingHandler *handlers.PingHandler, authHandler *handlers.AuthHandler, chatHandler *handlers.ChatHandler, metaHandler *handlers.MetaWebhookHandler, stripeHandler *handlers.StripeWebhookHandler, contactsHandler *handlers.ContactsHandler, knowledgeHandler *handlers.KnowledgeHandler, promptHandler *handlers.PromptHandler, followupHandler *handlers.FollowupHandler) *server.Server {
	return server.NewServer(log, cfg.Server.Addr, cfg.Auth.JWTSecret, pingHandler, authHandler, chatHandler, metaHandler, stripeHandler, contactsHandler, knowledgeHandler, promptHandler, followupHandler)
}

// wireNudger closes the loop between the scheduler and the orchestrator. The
// orchestrator reschedules tasks; the scheduler dispatches through the
// orchestrator.
func wireNudger(followups *followup.Service, orch *orchestrator.Service) {
	followups.SetNudger(orch)
}

func startPromptAssembler(lc fx.Lifecycle, assembler *prompt.Assembler, log *slog.Logger) {
	lc.Append(fx.Hook{OnStart: func(ctx context.Context) error {
		if err := assembler.Refresh(ctx); err != nil {
			// The compiled-in persona still serves requests.
			log.Warn("initial prompt refresh failed", slog.Any("error", err))
		}
		return nil
	}})
}

func startFollowupRunner(lc fx.Lifecycle, runner *followup.Runner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error { return runner.Bootstrap() },
		OnStop:  func(ctx context.Context) error { runner.Stop(); return nil },
	})
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner, cfg config.Config, store *auth.Store) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := ensureAdminUser(ctx, log, store, cfg); err != nil {
				return err
			}
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}

func ensureAdminUser(ctx context.Context, log *slog.Logger, store *auth.Store, cfg config.Config) error {
	username := strings.TrimSpace(cfg.Admin.Username)
	password := strings.TrimSpace(cfg.Admin.Password)
	email := strings.TrimSpace(cfg.Admin.Email)
	if username == "" || password == "" {
		return fmt.Errorf("admin username/password required in config.toml")
	}
	if password == "change-your-password-here" {
		log.Warn("admin password uses default placeholder; please update config.toml")
	}

	if _, err := store.GetByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, auth.ErrUserNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := store.Create(ctx, username, string(hashed), email); err != nil {
		return err
	}
	log.Info("Admin user created", slog.String("username", username))
	return nil
}
