package logger

import (
	"context"
	"log/slog"
	"strings"
)

var sensitiveKeys = []string{
	"password",
	"token",
	"secret",
	"api_key",
	"authorization",
	"dsn",
	"webhook_secret",
}

// MaskingHandler wraps a slog.Handler and masks sensitive attributes before delegating.
// Known secret values are also redacted from messages and string attributes, since
// transport errors embed the bot token in request URLs.
type MaskingHandler struct {
	next     slog.Handler
	redactor *strings.Replacer
}

// NewMaskingHandler creates a handler that masks sensitive fields before passing records downstream.
func NewMaskingHandler(next slog.Handler, secrets ...string) *MaskingHandler {
	pairs := make([]string, 0, len(secrets)*2)
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		pairs = append(pairs, secret, "***")
	}

	var redactor *strings.Replacer
	if len(pairs) > 0 {
		redactor = strings.NewReplacer(pairs...)
	}

	return &MaskingHandler{next: next, redactor: redactor}
}

// Enabled reports whether the handler handles records at the given level.
func (h *MaskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// WithAttrs returns a new handler with additional attributes.
func (h *MaskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		masked = append(masked, h.mask(attr))
	}
	return &MaskingHandler{next: h.next.WithAttrs(masked), redactor: h.redactor}
}

// WithGroup returns a new handler with an appended group name.
func (h *MaskingHandler) WithGroup(name string) slog.Handler {
	return &MaskingHandler{next: h.next.WithGroup(name), redactor: h.redactor}
}

// Handle applies masking to sensitive attributes and delegates to the wrapped handler.
func (h *MaskingHandler) Handle(ctx context.Context, record slog.Record) error {
	masked := slog.NewRecord(record.Time, record.Level, h.redact(record.Message), record.PC)

	record.Attrs(func(attr slog.Attr) bool {
		masked.AddAttrs(h.mask(attr))
		return true
	})

	if correlationID := CorrelationIDFromContext(ctx); correlationID != "" {
		masked.AddAttrs(slog.String("correlation_id", correlationID))
	}

	return h.next.Handle(ctx, masked)
}

func (h *MaskingHandler) mask(attr slog.Attr) slog.Attr {
	if isSensitiveKey(attr.Key) {
		attr.Value = slog.StringValue("***")
		return attr
	}

	switch attr.Value.Kind() {
	case slog.KindString:
		attr.Value = slog.StringValue(h.redact(attr.Value.String()))
	case slog.KindAny:
		if err, ok := attr.Value.Any().(error); ok && err != nil {
			attr.Value = slog.StringValue(h.redact(err.Error()))
		}
	}

	return attr
}

func (h *MaskingHandler) redact(s string) string {
	if h.redactor == nil {
		return s
	}
	return h.redactor.Replace(s)
}

func isSensitiveKey(key string) bool {
	for _, sensitive := range sensitiveKeys {
		if strings.EqualFold(key, sensitive) {
			return true
		}
	}
	return false
}
