package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath      = "config.toml"
	DefaultHTTPAddr        = ":8080"
	DefaultJWTExpiresIn    = "24h"
	DefaultPGHost          = "127.0.0.1"
	DefaultPGPort          = 5432
	DefaultPGUser          = "postgres"
	DefaultPGDatabase      = "leadline"
	DefaultPGSSLMode       = "disable"
	DefaultGraphBaseURL    = "https://graph.facebook.com/v18.0"
	DefaultEngineBaseURL   = "https://generativelanguage.googleapis.com/v1beta"
	DefaultEngineModel     = "gemini-1.5-flash"
	DefaultEngineTimeout   = 30
	DefaultFollowupWindow  = 1440
	DefaultMaxFollowups    = 3
	DefaultHistoryWindow   = 20
	DefaultStripeTolerance = 300
)

type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Admin    AdminConfig    `toml:"admin"`
	Auth     AuthConfig     `toml:"auth"`
	Postgres PostgresConfig `toml:"postgres"`
	Meta     MetaConfig     `toml:"meta"`
	Stripe   StripeConfig   `toml:"stripe"`
	Engine   EngineConfig   `toml:"engine"`
	Followup FollowupConfig `toml:"followup"`
	Agent    AgentConfig    `toml:"agent"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type AdminConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
	Email    string `toml:"email"`
}

type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret" validate:"required"`
	JWTExpiresIn string `toml:"jwt_expires_in"`
}

type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// MetaConfig carries the Meta platform webhook and Graph API credentials.
// VerifyToken answers the subscription handshake; AppSecret signs inbound
// payloads; AccessToken authorizes outbound Graph API sends.
type MetaConfig struct {
	VerifyToken   string `toml:"verify_token"`
	AppSecret     string `toml:"app_secret"`
	AccessToken   string `toml:"access_token"`
	PhoneNumberID string `toml:"phone_number_id"`
	GraphBaseURL  string `toml:"graph_base_url"`
	AllowUnsigned bool   `toml:"allow_unsigned"`
}

type StripeConfig struct {
	WebhookSecret    string `toml:"webhook_secret"`
	ToleranceSeconds int    `toml:"tolerance_seconds"`
}

type EngineConfig struct {
	APIKey         string  `toml:"api_key" validate:"required"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	TimeoutSeconds int     `toml:"timeout_seconds" validate:"gte=1"`
	Temperature    float64 `toml:"temperature"`
}

type FollowupConfig struct {
	WindowMinutes int `toml:"window_minutes" validate:"gte=1"`
	MaxFollowups  int `toml:"max_followups" validate:"gte=0"`
}

// AgentConfig holds brand-level knobs referenced by the prompt layers and
// the tier-gated link sections.
type AgentConfig struct {
	BrandName     string `toml:"brand_name"`
	ProductName   string `toml:"product_name"`
	PaymentLink   string `toml:"payment_link"`
	BookingLink   string `toml:"booking_link"`
	HistoryWindow int    `toml:"history_window" validate:"gte=1"`
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Admin: AdminConfig{
			Username: "admin",
			Password: "change-your-password-here",
			Email:    "you@example.com",
		},
		Auth: AuthConfig{
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Meta: MetaConfig{
			GraphBaseURL: DefaultGraphBaseURL,
		},
		Stripe: StripeConfig{
			ToleranceSeconds: DefaultStripeTolerance,
		},
		Engine: EngineConfig{
			BaseURL:        DefaultEngineBaseURL,
			Model:          DefaultEngineModel,
			TimeoutSeconds: DefaultEngineTimeout,
			Temperature:    0.7,
		},
		Followup: FollowupConfig{
			WindowMinutes: DefaultFollowupWindow,
			MaxFollowups:  DefaultMaxFollowups,
		},
		Agent: AgentConfig{
			BrandName:     "Leadline",
			ProductName:   "consultoria",
			HistoryWindow: DefaultHistoryWindow,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	// Validation runs even without a config file so a server never starts
	// with an empty JWT secret or engine key.
	if _, err := os.Stat(path); err != nil && !os.IsNotExist(err) {
		return cfg, err
	} else if err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}
