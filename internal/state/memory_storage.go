package state

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStorage keeps sessions in process memory. State is lost on restart.
type MemoryStorage struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	now      func() time.Time
}

var _ Storage = (*MemoryStorage)(nil)

// NewMemoryStorage constructs an empty in-memory Storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		sessions: make(map[int64]*Session),
		now:      time.Now,
	}
}

// Get returns a copy of the stored session.
func (m *MemoryStorage) Get(_ context.Context, conversationID int64) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[conversationID]
	if !ok {
		return nil, ErrStateNotFound
	}

	return session.Clone(), nil
}

// Set stores a copy of the session and stamps UpdatedAt.
func (m *MemoryStorage) Set(_ context.Context, session *Session) error {
	if session == nil {
		return nil
	}

	stored := session.Clone()
	stored.UpdatedAt = m.now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[stored.ConversationID] = stored

	return nil
}

// Clear removes the session.
func (m *MemoryStorage) Clear(_ context.Context, conversationID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, conversationID)
	return nil
}

// List returns copies of all sessions ordered by conversation id.
func (m *MemoryStorage) List(_ context.Context) ([]*Session, error) {
	m.mu.RLock()
	result := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session.Clone())
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].ConversationID < result[j].ConversationID
	})

	return result, nil
}

// HealthCheck always succeeds for in-memory storage.
func (m *MemoryStorage) HealthCheck(context.Context) error {
	return nil
}
