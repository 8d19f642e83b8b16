// Package middleware holds cross-cutting wrappers for bot handlers and the ops HTTP server.
package middleware

import (
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/himera-demo-bot/internal/bot/handlers"
	"github.com/Proton-105/himera-demo-bot/internal/trading"
	"github.com/Proton-105/himera-demo-bot/pkg/metrics"
)

// Metrics measures execution time and status for bot handlers, reporting them to Prometheus.
func Metrics(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(c telebot.Context) error {
		start := time.Now()
		err := next(c)

		status := "ok"
		if err != nil {
			status = "error"
		}

		metrics.RecordCommand(actionLabel(c), status, time.Since(start))

		return err
	}
}

// actionLabel keeps metric cardinality bounded: free text collapses to its input kind.
func actionLabel(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}

	return string(trading.Classify(c.Text()).Kind)
}
