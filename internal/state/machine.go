package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	conversationLockKeyPattern = "conversation:lock:%d"
	lockTTL                    = 5 * time.Second
)

var (
	// ErrInvalidTransition indicates that a requested transition is not allowed.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrStateLocked indicates that a concurrent operation already holds the lock.
	ErrStateLocked = errors.New("state is locked, try again later")
)

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe state transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// StateMachine describes the operations the conversation controller needs.
type StateMachine interface {
	// Load returns the conversation session, or a fresh idle session when none is stored.
	Load(ctx context.Context, conversationID int64) (*Session, error)
	// Save validates the transition from the stored state and persists the session.
	Save(ctx context.Context, session *Session) error
	// Reset drops the stored session entirely.
	Reset(ctx context.Context, conversationID int64) error
	// List returns every stored session.
	List(ctx context.Context) ([]*Session, error)
}

// machine is a StateMachine backed by Storage with optional Redis locking.
type machine struct {
	storage     Storage
	log         *slog.Logger
	redisClient *redis.Client
}

// NewStateMachine creates a state machine over storage. A nil redisClient disables cross-process locks.
func NewStateMachine(storage Storage, log *slog.Logger, redisClient *redis.Client) StateMachine {
	if log == nil {
		log = slog.Default()
	}

	return &machine{
		storage:     storage,
		log:         log,
		redisClient: redisClient,
	}
}

func (m *machine) Load(ctx context.Context, conversationID int64) (*Session, error) {
	session, err := m.storage.Get(ctx, conversationID)
	if err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return NewSession(conversationID), nil
		}
		return nil, err
	}

	if session.State == "" {
		session.State = StateIdle
	}

	return session, nil
}

func (m *machine) Save(ctx context.Context, session *Session) error {
	if session == nil {
		return nil
	}

	if err := m.lock(ctx, session.ConversationID); err != nil {
		return err
	}
	defer m.unlock(ctx, session.ConversationID)

	current := StateIdle
	stored, err := m.storage.Get(ctx, session.ConversationID)
	if err != nil {
		if !errors.Is(err, ErrStateNotFound) {
			return err
		}
	} else if stored != nil && stored.State != "" {
		current = stored.State
	}

	if !IsTransitionAllowed(current, session.State) {
		m.log.Warn("invalid state transition", "conversation_id", session.ConversationID, "from", current, "to", session.State)
		return ErrInvalidTransition
	}

	if current != session.State {
		transitionRecorder(string(current), string(session.State))
	}

	return m.storage.Set(ctx, session)
}

func (m *machine) Reset(ctx context.Context, conversationID int64) error {
	if err := m.lock(ctx, conversationID); err != nil {
		return err
	}
	defer m.unlock(ctx, conversationID)

	return m.storage.Clear(ctx, conversationID)
}

func (m *machine) List(ctx context.Context) ([]*Session, error) {
	return m.storage.List(ctx)
}

func (m *machine) lock(ctx context.Context, conversationID int64) error {
	if m.redisClient == nil {
		return nil
	}

	key := fmt.Sprintf(conversationLockKeyPattern, conversationID)
	acquired, err := m.redisClient.SetNX(ctx, key, 1, lockTTL).Result()
	if err != nil {
		m.log.Error("failed to acquire conversation lock", "conversation_id", conversationID, "error", err)
		return err
	}

	if !acquired {
		m.log.Warn("conversation lock already held", "conversation_id", conversationID)
		return ErrStateLocked
	}

	return nil
}

func (m *machine) unlock(ctx context.Context, conversationID int64) {
	if m.redisClient == nil {
		return
	}

	key := fmt.Sprintf(conversationLockKeyPattern, conversationID)
	if err := m.redisClient.Del(ctx, key).Err(); err != nil {
		m.log.Error("failed to release conversation lock", "conversation_id", conversationID, "error", err)
	}
}
