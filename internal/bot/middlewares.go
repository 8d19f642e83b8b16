package bot

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/himera-demo-bot/internal/bot/handlers"
	"github.com/Proton-105/himera-demo-bot/internal/bot/keyboard"
	errors "github.com/Proton-105/himera-demo-bot/internal/errors"
	"github.com/Proton-105/himera-demo-bot/internal/trading"
	"github.com/Proton-105/himera-demo-bot/pkg/logger"
)

const fallbackErrorMessage = "⚠️ Something went wrong. Please try again later."

// RecoveryMiddleware catches panics, reports them via the centralized handler, and notifies the user.
func RecoveryMiddleware(log *slog.Logger, errHandler *errors.Handler) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered in handler", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))

					userMsg := fallbackErrorMessage
					if errHandler != nil {
						appErr := errors.NewStateError("panic recovered", fmt.Errorf("%v", r))
						appErr.Severity = errors.SeverityCritical
						if msg, _ := errHandler.Handle(handlers.ContextFrom(c), appErr); msg != "" {
							userMsg = msg
						}
					}

					if c != nil {
						if sendErr := c.Send(userMsg, keyboard.MainMenu()); sendErr != nil {
							log.Error("failed to notify user about panic", slog.Any("error", sendErr))
						}
					}

					err = nil
				}
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware centralizes error reporting and user messaging for handler failures.
// Errors never propagate to the transport.
func ErrorHandlingMiddleware(errHandler *errors.Handler) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			userMsg := fallbackErrorMessage
			if errHandler != nil {
				if msg, _ := errHandler.Handle(handlers.ContextFrom(c), err); msg != "" {
					userMsg = msg
				}
			}

			if c != nil {
				_ = c.Send(userMsg, keyboard.MainMenu())
			}

			return nil
		}
	}
}

// LoggingMiddleware attaches a correlation id to the update and logs basic telemetry.
// Message text is not logged since it may be a wallet address; the classified input kind is.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			start := time.Now()
			ctx := logger.WithCorrelationID(handlers.ContextFrom(c))
			handlers.WithContext(c, ctx)

			conversationID, _ := handlers.ConversationID(c)
			action := ""
			if c != nil {
				action = string(trading.Classify(c.Text()).Kind)
			}

			log.InfoContext(ctx, "handling update", slog.Int64("conversation_id", conversationID), slog.String("action", action))
			err := next(c)
			log.InfoContext(ctx, "handled update",
				slog.Int64("conversation_id", conversationID),
				slog.String("action", action),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)

			return err
		}
	}
}
