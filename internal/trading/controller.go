// Package trading implements the demo trading assistant conversation.
package trading

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	apperrors "github.com/Proton-105/himera-demo-bot/internal/errors"
	"github.com/Proton-105/himera-demo-bot/internal/i18n"
	"github.com/Proton-105/himera-demo-bot/internal/state"
	"github.com/Proton-105/himera-demo-bot/pkg/metrics"
)

// Scope decides where the trading flag lives.
type Scope string

const (
	// ScopeConversation keeps an independent trading flag per conversation.
	ScopeConversation Scope = "conversation"
	// ScopeGlobal shares one trading flag across all conversations.
	ScopeGlobal Scope = "global"
)

// Option customizes a Controller.
type Option func(*Controller)

// WithScope sets where the trading flag is stored.
func WithScope(scope Scope) Option {
	return func(c *Controller) {
		if scope == ScopeGlobal || scope == ScopeConversation {
			c.scope = scope
		}
	}
}

// WithTokenSource replaces the random token generator.
func WithTokenSource(tokens TokenSource) Option {
	return func(c *Controller) {
		if tokens != nil {
			c.tokens = tokens
		}
	}
}

// Controller applies Transition to sessions loaded from the state machine.
type Controller struct {
	fsm      state.StateMachine
	messages i18n.Translator
	tokens   TokenSource
	scope    Scope
	log      *slog.Logger

	// mu serializes read-modify-write of sessions; telebot runs handlers concurrently.
	mu sync.Mutex
}

// NewController builds a Controller.
func NewController(fsm state.StateMachine, messages i18n.Translator, log *slog.Logger, opts ...Option) *Controller {
	if log == nil {
		log = slog.Default()
	}

	c := &Controller{
		fsm:      fsm,
		messages: messages,
		tokens:   RandomTokens,
		scope:    ScopeConversation,
		log:      log,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Scope reports the configured trading flag scope.
func (c *Controller) Scope() Scope {
	return c.scope
}

// Handle processes one inbound message for a conversation.
func (c *Controller) Handle(ctx context.Context, conversationID int64, text string) (Reply, error) {
	in := Classify(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	session, err := c.fsm.Load(ctx, conversationID)
	if err != nil {
		return Reply{}, apperrors.NewStorageError(err)
	}

	var shared *state.Session
	if c.scope == ScopeGlobal {
		shared, err = c.fsm.Load(ctx, state.GlobalConversationID)
		if err != nil {
			return Reply{}, apperrors.NewStorageError(err)
		}
		session.TradingActive = shared.TradingActive
	}

	next, reply := Transition(*session, in, Deps{Tokens: c.tokens, Messages: c.messages})

	// The conversation is saved first so a rejected save never leaves the shared flag flipped.
	if err := c.fsm.Save(ctx, &next); err != nil {
		return Reply{}, saveError(err)
	}

	if shared != nil && shared.TradingActive != next.TradingActive {
		flipped := shared.Clone()
		flipped.TradingActive = next.TradingActive
		if err := c.fsm.Save(ctx, flipped); err != nil {
			return Reply{}, saveError(err)
		}
	}

	c.record(reply.Event, next.TradingActive)

	c.log.DebugContext(ctx, "conversation step",
		slog.Int64("conversation_id", conversationID),
		slog.String("input", string(in.Kind)),
		slog.String("event", string(reply.Event)),
		slog.String("from", string(session.State)),
		slog.String("to", string(next.State)),
	)

	return reply, nil
}

// Locker exposes the lock Handle holds while it reads and writes sessions.
func (c *Controller) Locker() sync.Locker {
	return &c.mu
}

// Session returns the current state of a conversation as the controller sees it.
func (c *Controller) Session(ctx context.Context, conversationID int64) (*state.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, err := c.fsm.Load(ctx, conversationID)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}

	if c.scope == ScopeGlobal {
		shared, err := c.fsm.Load(ctx, state.GlobalConversationID)
		if err != nil {
			return nil, apperrors.NewStorageError(err)
		}
		session.TradingActive = shared.TradingActive
	}

	return session, nil
}

func saveError(err error) error {
	if errors.Is(err, state.ErrInvalidTransition) || errors.Is(err, state.ErrStateLocked) {
		return apperrors.NewStateError("conversation state rejected", err)
	}
	return apperrors.NewStorageError(err)
}

func (c *Controller) record(event Event, active bool) {
	switch event {
	case EventTradingStarted, EventTradingStopped:
		metrics.RecordTradingToggle(active)
	case EventWithdrawPrompt:
		metrics.RecordWithdrawal("requested")
	case EventWithdrawCompleted:
		metrics.RecordWithdrawal("completed")
	case EventWithdrawCancelled:
		metrics.RecordWithdrawal("cancelled")
	}
}
