package state

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Cleaner returns conversations stuck in the withdrawal sub-flow back to idle.
type Cleaner struct {
	fsm      StateMachine
	log      *slog.Logger
	timeout  time.Duration
	interval time.Duration
	now      func() time.Time
	locker   sync.Locker
}

// NewCleaner constructs a Cleaner. Sessions awaiting an address for longer than timeout are reset.
func NewCleaner(fsm StateMachine, log *slog.Logger, timeout, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		fsm:      fsm,
		log:      log,
		timeout:  timeout,
		interval: interval,
		now:      time.Now,
	}
}

// Run starts the cleanup loop until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.fsm == nil || c.timeout <= 0 || c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("state cleaner stopped", slog.Any("reason", ctx.Err()))
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// WithLocker makes each reset hold l, the lock writers of conversation state take.
func (c *Cleaner) WithLocker(l sync.Locker) *Cleaner {
	c.locker = l
	return c
}

// Sweep performs a single cleanup pass and returns how many conversations were reset.
func (c *Cleaner) Sweep(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}

	sessions, err := c.fsm.List(ctx)
	if err != nil {
		c.log.Error("state cleaner list failed", slog.Any("error", err))
		return 0
	}

	reset := 0
	for _, listed := range sessions {
		if !c.expired(listed) {
			continue
		}
		if c.resetExpired(ctx, listed.ConversationID) {
			reset++
		}
	}

	return reset
}

// resetExpired reloads the session so only State changes and only if it is still stale.
func (c *Cleaner) resetExpired(ctx context.Context, conversationID int64) bool {
	if c.locker != nil {
		c.locker.Lock()
		defer c.locker.Unlock()
	}

	current, err := c.fsm.Load(ctx, conversationID)
	if err != nil {
		c.log.Error("state cleaner failed to reload session", slog.Int64("conversation_id", conversationID), slog.Any("error", err))
		return false
	}
	if !c.expired(current) {
		return false
	}

	current.State = StateIdle
	if err := c.fsm.Save(ctx, current); err != nil {
		c.log.Error("state cleaner failed to reset session", slog.Int64("conversation_id", conversationID), slog.Any("error", err))
		return false
	}

	c.log.Info("withdrawal flow expired", slog.Int64("conversation_id", conversationID))
	return true
}

func (c *Cleaner) expired(session *Session) bool {
	return session.AwaitingAddress() && c.now().Sub(session.UpdatedAt) > c.timeout
}
