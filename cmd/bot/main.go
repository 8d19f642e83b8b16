package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Proton-105/himera-demo-bot/internal/bot"
	apperrors "github.com/Proton-105/himera-demo-bot/internal/errors"
	"github.com/Proton-105/himera-demo-bot/internal/health"
	"github.com/Proton-105/himera-demo-bot/internal/i18n"
	"github.com/Proton-105/himera-demo-bot/internal/lifecycle"
	"github.com/Proton-105/himera-demo-bot/internal/middleware"
	"github.com/Proton-105/himera-demo-bot/internal/state"
	"github.com/Proton-105/himera-demo-bot/internal/trading"
	"github.com/Proton-105/himera-demo-bot/pkg/config"
	"github.com/Proton-105/himera-demo-bot/pkg/graceful"
	"github.com/Proton-105/himera-demo-bot/pkg/logger"
	"github.com/Proton-105/himera-demo-bot/pkg/metrics"
	"github.com/Proton-105/himera-demo-bot/pkg/redis"
)

const (
	healthCheckTimeout = 3 * time.Second
	sentryFlushTimeout = 2 * time.Second
	collectInterval    = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "himera-demo-bot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return loadError(err)
	}

	appLog, err := logger.New(cfg.Log, cfg.Sentry.Enabled, cfg.Secrets()...)
	if err != nil {
		return apperrors.NewConfigError("build logger", err)
	}
	log := appLog.Logger
	slog.SetDefault(log)

	log.Info("starting himera demo bot",
		slog.String("env", cfg.AppEnv),
		slog.String("mode", cfg.Bot.Mode),
		slog.String("state_backend", cfg.State.Backend),
		slog.String("trading_scope", cfg.Trading.Scope),
	)

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			SampleRate:  cfg.Sentry.SampleRate,
		}); err != nil {
			log.Error("sentry init failed, continuing without it", slog.Any("error", err))
			cfg.Sentry.Enabled = false
		}
	}

	shutdown := lifecycle.NewShutdown(log)
	checker := health.NewChecker(log, healthCheckTimeout)

	var redisClient *redis.Client
	if cfg.Redis.Enabled || cfg.State.Backend == config.BackendRedis {
		redisClient, err = redis.New(ctx, cfg.Redis)
		if err != nil {
			return apperrors.NewStorageError(err)
		}
		checker.AddCheck("redis", redisClient)
	}

	storage, err := newStorage(cfg, log, redisClient)
	if err != nil {
		return err
	}
	checker.AddCheck("state_storage", storage)

	var fsm state.StateMachine
	if redisClient != nil {
		fsm = state.NewStateMachine(storage, log, redisClient.Client)
	} else {
		fsm = state.NewStateMachine(storage, log, nil)
	}

	controller, err := newController(cfg, fsm, log)
	if err != nil {
		return err
	}
	errHandler := apperrors.NewHandler(log, cfg.Sentry.Enabled)

	tgBot, err := bot.New(cfg.Bot, log, controller, errHandler)
	if err != nil {
		return err
	}
	checker.AddCheck("telegram", health.NewTelegramChecker(tgBot.Telebot()))

	probes := lifecycle.NewProbes(log, checker)

	config.Watch(v, func(next *config.Config) {
		if err := appLog.SetLevel(next.Log.Level); err != nil {
			log.Warn("ignoring log level change", slog.Any("error", err))
			return
		}
		log.Info("log level updated", slog.String("level", appLog.Level().String()))
	}, func(err error) {
		log.Warn("ignoring invalid config change", slog.Any("error", err))
	})

	go state.NewCleaner(fsm, log, cfg.State.FlowTimeout, cfg.State.CleanupInterval).WithLocker(controller.Locker()).Run(ctx)
	go metrics.NewStateCollector(fsm, collectInterval).Run(ctx)

	serverDone := make(chan error, 1)
	if cfg.Server.Enabled {
		srv := graceful.NewServer(log, ":"+cfg.Server.Port, opsMux(log, probes), cfg.Server.ShutdownTimeout)
		go func() { serverDone <- srv.ListenAndServe(ctx) }()
	} else {
		close(serverDone)
	}

	go tgBot.Start()

	<-ctx.Done()
	log.Info("shutdown signal received")
	probes.MarkDraining()

	shutdown.Register("telegram", func(context.Context) error {
		tgBot.Stop()
		return nil
	})
	shutdown.Register("ops_server", func(ctx context.Context) error {
		select {
		case err := <-serverDone:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if cfg.Sentry.Enabled {
		shutdown.Register("sentry", func(context.Context) error {
			if !sentry.Flush(sentryFlushTimeout) {
				return fmt.Errorf("sentry flush timed out")
			}
			return nil
		})
	}
	if redisClient != nil {
		shutdown.Register("redis", func(context.Context) error {
			return redisClient.Close()
		})
	}
	shutdown.Register("logger", func(context.Context) error {
		return appLog.Close()
	})

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return shutdown.Execute(shutdownCtx)
}

// loadError separates bad values in an otherwise readable configuration from missing or unreadable config.
func loadError(err error) error {
	var invalid validator.ValidationErrors
	if errors.As(err, &invalid) {
		return apperrors.NewValidationError(err.Error())
	}
	return apperrors.NewConfigError("load configuration", err)
}

func newController(cfg *config.Config, fsm state.StateMachine, log *slog.Logger) (*trading.Controller, error) {
	messages, err := i18n.Load(i18n.DefaultLang)
	if err != nil {
		return nil, apperrors.NewConfigError("load messages", err)
	}

	return trading.NewController(fsm, messages.Translator(i18n.DefaultLang), log, trading.WithScope(trading.Scope(cfg.Trading.Scope))), nil
}

// healthStorage is a state.Storage that can report its own health.
type healthStorage interface {
	state.Storage
	health.Checkable
}

func newStorage(cfg *config.Config, log *slog.Logger, client *redis.Client) (healthStorage, error) {
	switch cfg.State.Backend {
	case config.BackendRedis:
		if client == nil {
			return nil, apperrors.NewConfigError("redis backend selected without a redis client", nil)
		}
		return state.NewRedisStorage(client.Client, log, cfg.State.TTL), nil
	default:
		return state.NewMemoryStorage(), nil
	}
}

func opsMux(log *slog.Logger, probes *lifecycle.Probes) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", probes.LivenessHandler())
	mux.Handle("/readyz", probes.ReadinessHandler())

	return middleware.Logging(log)(mux)
}
