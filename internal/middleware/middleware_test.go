package middleware

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/himera-demo-bot/pkg/logger"
)

type textContext struct {
	telebot.Context
	text string
}

func (c textContext) Text() string { return c.text }

func TestMetrics_PassesThroughResult(t *testing.T) {
	want := errors.New("send failed")
	wrapped := Metrics(func(telebot.Context) error { return want })

	assert.ErrorIs(t, wrapped(textContext{text: "Deposit"}), want)
	assert.Nil(t, Metrics(nil))
}

func TestActionLabel_UsesInputKind(t *testing.T) {
	assert.Equal(t, "deposit", actionLabel(textContext{text: "Deposit"}))
	assert.Equal(t, "text", actionLabel(textContext{text: "0xdeadbeef"}))
	assert.Equal(t, "unknown", actionLabel(nil))
}

func TestLogging_RecordsStatusAndCorrelationID(t *testing.T) {
	var correlationID string
	handler := Logging(slog.New(slog.NewTextHandler(io.Discard, nil)))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID = logger.CorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusTeapot, rec.Code)
	assert.NotEmpty(t, correlationID)
}
