// Package handlers contains telebot handlers for the demo trading bot.
package handlers

import (
	"context"

	telebot "gopkg.in/telebot.v3"
)

// Handler processes bot updates.
type Handler func(c telebot.Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// contextKey is the telebot.Context storage slot for the request context.
const contextKey = "request_context"

// WithContext stores ctx on the update so downstream handlers share its values.
func WithContext(c telebot.Context, ctx context.Context) {
	if c != nil {
		c.Set(contextKey, ctx)
	}
}

// ContextFrom returns the request context stored on the update, or context.Background.
func ContextFrom(c telebot.Context) context.Context {
	if c != nil {
		if ctx, ok := c.Get(contextKey).(context.Context); ok && ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

// ConversationID identifies whose session an update belongs to: the sender, else the chat.
func ConversationID(c telebot.Context) (int64, bool) {
	if c == nil {
		return 0, false
	}
	if sender := c.Sender(); sender != nil {
		return sender.ID, true
	}
	if chat := c.Chat(); chat != nil {
		return chat.ID, true
	}
	return 0, false
}
