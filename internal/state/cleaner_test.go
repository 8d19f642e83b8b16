package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleaner_SweepResetsStaleWithdrawals(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	fsm := NewStateMachine(storage, testLogger(), nil)

	past := time.Now().Add(-time.Hour)
	storage.now = func() time.Time { return past }
	require.NoError(t, storage.Set(ctx, &Session{ConversationID: 1, State: StateAwaitingWalletAddress, TradingActive: true}))
	require.NoError(t, storage.Set(ctx, &Session{ConversationID: 2, State: StateIdle}))
	storage.now = time.Now
	require.NoError(t, storage.Set(ctx, &Session{ConversationID: 3, State: StateAwaitingWalletAddress}))

	cleaner := NewCleaner(fsm, testLogger(), 10*time.Minute, time.Minute)
	assert.Equal(t, 1, cleaner.Sweep(ctx))

	stale, err := storage.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, stale.State)
	assert.True(t, stale.TradingActive, "trading flag survives the reset")

	fresh, err := storage.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingWalletAddress, fresh.State)
}

// listHookMachine runs afterList between the sweep's listing and its writes.
type listHookMachine struct {
	StateMachine
	afterList func()
}

func (m *listHookMachine) List(ctx context.Context) ([]*Session, error) {
	sessions, err := m.StateMachine.List(ctx)
	m.afterList()
	return sessions, err
}

func TestCleaner_SweepKeepsWritesMadeAfterListing(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	fsm := NewStateMachine(storage, testLogger(), nil)

	past := time.Now().Add(-time.Hour)
	storage.now = func() time.Time { return past }
	require.NoError(t, storage.Set(ctx, &Session{ConversationID: 1, State: StateAwaitingWalletAddress}))
	require.NoError(t, storage.Set(ctx, &Session{ConversationID: 2, State: StateAwaitingWalletAddress}))

	racing := &listHookMachine{StateMachine: fsm, afterList: func() {
		// conversation 1 flips its flag while still stale; conversation 2 finishes its withdrawal.
		require.NoError(t, storage.Set(ctx, &Session{ConversationID: 1, State: StateAwaitingWalletAddress, TradingActive: true}))
		require.NoError(t, storage.Set(ctx, &Session{ConversationID: 2, State: StateIdle, TradingActive: true}))
	}}

	var locker countingLocker
	cleaner := NewCleaner(racing, testLogger(), 10*time.Minute, time.Minute).WithLocker(&locker)
	assert.Equal(t, 1, cleaner.Sweep(ctx))
	assert.Equal(t, 2, locker.locks)

	first, err := storage.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, first.State)
	assert.True(t, first.TradingActive)

	second, err := storage.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, second.State)
	assert.True(t, second.TradingActive)
}

type countingLocker struct {
	locks int
}

func (l *countingLocker) Lock()   { l.locks++ }
func (l *countingLocker) Unlock() {}

func TestCleaner_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cleaner := NewCleaner(NewStateMachine(NewMemoryStorage(), testLogger(), nil), testLogger(), time.Minute, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		cleaner.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleaner did not stop")
	}
}
