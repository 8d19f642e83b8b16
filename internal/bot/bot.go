// Package bot wires the Telegram transport to the conversation controller.
package bot

import (
	"fmt"
	"log/slog"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/himera-demo-bot/internal/bot/handlers"
	errors "github.com/Proton-105/himera-demo-bot/internal/errors"
	"github.com/Proton-105/himera-demo-bot/internal/middleware"
	"github.com/Proton-105/himera-demo-bot/pkg/config"
)

// Option customizes bot construction.
type Option func(*options)

type options struct {
	offline bool
}

// WithOffline builds the bot without contacting Telegram. Used in tests.
func WithOffline() Option {
	return func(o *options) { o.offline = true }
}

// Bot wraps telebot.Bot with the router and middleware chain.
type Bot struct {
	telebot    *telebot.Bot
	log        *slog.Logger
	cfg        config.BotConfig
	router     *Router
	errHandler *errors.Handler

	mu      sync.Mutex
	started bool
}

// New builds a telegram bot instance configured according to the application settings.
func New(cfg config.BotConfig, log *slog.Logger, conv handlers.Conversation, errHandler *errors.Handler, opts ...Option) (*Bot, error) {
	if log == nil {
		log = slog.Default()
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation controller is required")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	settings := telebot.Settings{
		Token:   cfg.Token,
		Poller:  newPoller(cfg),
		Offline: o.offline,
		OnError: func(err error, c telebot.Context) {
			log.Error("telebot error", slog.Any("error", err))
		},
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, errors.NewTransportError("initialize telebot", err)
	}

	b := &Bot{
		telebot:    tb,
		log:        log,
		cfg:        cfg,
		router:     NewRouter(log),
		errHandler: errHandler,
	}

	b.setupRouter(conv)
	b.telebot.Handle(telebot.OnText, b.router.Route)

	return b, nil
}

func newPoller(cfg config.BotConfig) telebot.Poller {
	if cfg.Mode == config.ModeWebhook {
		return &telebot.Webhook{
			Listen:         cfg.WebhookListen,
			SecretToken:    cfg.WebhookSecret,
			AllowedUpdates: []string{"message"},
			Endpoint:       &telebot.WebhookEndpoint{PublicURL: cfg.WebhookURL},
		}
	}

	return &telebot.LongPoller{
		Timeout:        cfg.Timeout,
		AllowedUpdates: []string{"message"},
	}
}

func (b *Bot) setupRouter(conv handlers.Conversation) {
	b.router.Use(RecoveryMiddleware(b.log, b.errHandler))
	b.router.Use(ErrorHandlingMiddleware(b.errHandler))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(middleware.Metrics)

	conversation := handlers.NewConversationHandler(conv, b.log)
	b.router.RegisterCommand(CommandStart, conversation)
	b.router.RegisterCommand(CommandHelp, conversation)
	b.router.RegisterCommand(CommandCancel, conversation)
	b.router.SetDefault(conversation)
}

// Start publishes the command menu and runs the telegram event loop. It blocks until Stop.
func (b *Bot) Start() {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	if err := b.telebot.SetCommands(commandMenu); err != nil {
		b.log.Warn("failed to publish command menu", slog.Any("error", err))
	}

	b.log.Info("telegram bot started", slog.String("mode", b.cfg.Mode))
	b.telebot.Start()
}

// Stop gracefully stops the telegram bot. It is a no-op when Start was never called.
func (b *Bot) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return
	}
	b.started = false

	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Router exposes the update router.
func (b *Bot) Router() *Router {
	return b.router
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}
