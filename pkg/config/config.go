package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Proton-105/himera-demo-bot/pkg/redis"
)

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"

	ScopeConversation = "conversation"
	ScopeGlobal       = "global"

	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds runtime configuration for the demo trading bot.
type Config struct {
	AppEnv  string        `mapstructure:"app_env"`
	Bot     BotConfig     `mapstructure:"bot"`
	Server  ServerConfig  `mapstructure:"server"`
	Trading TradingConfig `mapstructure:"trading"`
	State   StateConfig   `mapstructure:"state"`
	Redis   redis.Config  `mapstructure:"redis"`
	Log     LogConfig     `mapstructure:"log"`
	Sentry  SentryConfig  `mapstructure:"sentry"`
	Render  RenderConfig  `mapstructure:"hosting"`
}

// BotConfig configures the Telegram transport.
type BotConfig struct {
	Token         string        `mapstructure:"token" validate:"required"`
	Mode          string        `mapstructure:"mode" validate:"oneof=polling webhook"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gte=0"`
	WebhookListen string        `mapstructure:"webhook_listen"`
	WebhookURL    string        `mapstructure:"webhook_url" validate:"required_if=Mode webhook"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
}

// ServerConfig configures the ops HTTP server exposing metrics and probes.
type ServerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Port            string        `mapstructure:"port" validate:"required_if=Enabled true"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
}

// TradingConfig controls the demo trading flag.
type TradingConfig struct {
	Scope string `mapstructure:"scope" validate:"oneof=conversation global"`
}

// StateConfig selects the conversation storage backend.
type StateConfig struct {
	Backend         string        `mapstructure:"backend" validate:"oneof=memory redis"`
	TTL             time.Duration `mapstructure:"ttl" validate:"gte=0"`
	FlowTimeout     time.Duration `mapstructure:"flow_timeout" validate:"gte=0"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" validate:"gte=0"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}

// SentryConfig configures error reporting.
type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// RenderConfig mirrors the variables injected by the Render hosting platform.
type RenderConfig struct {
	Enabled     string `mapstructure:"render"`
	ServiceName string `mapstructure:"service_name"`
	Port        string `mapstructure:"port"`
}

// applyRender switches to webhook mode when running on Render.
func (c *Config) applyRender() {
	if strings.TrimSpace(c.Render.Enabled) == "" {
		return
	}

	c.Bot.Mode = ModeWebhook
	if c.Render.Port != "" {
		c.Bot.WebhookListen = ":" + strings.TrimPrefix(c.Render.Port, ":")
	}
	if c.Bot.WebhookURL == "" && c.Render.ServiceName != "" {
		c.Bot.WebhookURL = fmt.Sprintf("https://%s.onrender.com/%s", c.Render.ServiceName, c.Bot.Token)
	}
}

// Secrets returns the values that must never appear in logs.
func (c *Config) Secrets() []string {
	secrets := make([]string, 0, 4)
	for _, s := range []string{c.Bot.Token, c.Bot.WebhookSecret, c.Redis.Password, c.Sentry.DSN} {
		if s != "" {
			secrets = append(secrets, s)
		}
	}
	return secrets
}
