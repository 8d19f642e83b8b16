package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/himera-demo-bot/internal/state"
)

func TestStateCollector_Collect(t *testing.T) {
	ctx := context.Background()
	storage := state.NewMemoryStorage()
	fsm := state.NewStateMachine(storage, nil, nil)

	require.NoError(t, storage.Set(ctx, &state.Session{ConversationID: state.GlobalConversationID, State: state.StateIdle, TradingActive: true}))
	require.NoError(t, storage.Set(ctx, &state.Session{ConversationID: 1, State: state.StateIdle, TradingActive: true}))
	require.NoError(t, storage.Set(ctx, &state.Session{ConversationID: 2, State: state.StateAwaitingWalletAddress}))
	require.NoError(t, storage.Set(ctx, &state.Session{ConversationID: 3, State: state.StateAwaitingWalletAddress}))

	require.NoError(t, NewStateCollector(fsm, 0).Collect(ctx))

	assert.Equal(t, 3.0, testutil.ToFloat64(activeConversations))
	assert.Equal(t, 1.0, testutil.ToFloat64(tradingActiveConversations))
	assert.Equal(t, 1.0, testutil.ToFloat64(conversationsByState.WithLabelValues("idle")))
	assert.Equal(t, 2.0, testutil.ToFloat64(conversationsByState.WithLabelValues("awaiting_wallet_address")))
}

func TestRecordTradingToggle(t *testing.T) {
	before := testutil.ToFloat64(tradingTogglesTotal.WithLabelValues("started"))
	RecordTradingToggle(true)
	assert.Equal(t, before+1, testutil.ToFloat64(tradingTogglesTotal.WithLabelValues("started")))
}

func TestTransitionsAreRecorded(t *testing.T) {
	ctx := context.Background()
	fsm := state.NewStateMachine(state.NewMemoryStorage(), nil, nil)

	before := testutil.ToFloat64(stateTransitionsTotal.WithLabelValues("idle", "awaiting_wallet_address"))
	require.NoError(t, fsm.Save(ctx, &state.Session{ConversationID: 9, State: state.StateAwaitingWalletAddress}))
	assert.Equal(t, before+1, testutil.ToFloat64(stateTransitionsTotal.WithLabelValues("idle", "awaiting_wallet_address")))
}
