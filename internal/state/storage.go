// Package state manages per-conversation state for the bot.
package state

import (
	"context"
	"errors"
)

// ErrStateNotFound indicates that a conversation has no stored state.
var ErrStateNotFound = errors.New("conversation state not found")

// Storage defines the persistence contract for conversation sessions.
type Storage interface {
	// Get returns the session for the conversation or ErrStateNotFound.
	Get(ctx context.Context, conversationID int64) (*Session, error)
	// Set saves the session under its conversation id.
	Set(ctx context.Context, session *Session) error
	// Clear removes the session for the conversation.
	Clear(ctx context.Context, conversationID int64) error
	// List returns every stored session.
	List(ctx context.Context) ([]*Session, error)
}
