package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Proton-105/himera-demo-bot/internal/state"
)

var (
	botCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of bot inputs received labeled by input kind and status",
		},
		[]string{"command", "status"},
	)
	commandDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "command_duration_seconds",
			Help:    "Duration of bot input handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_transitions_total",
			Help: "Total number of conversation state transitions",
		},
		[]string{"from", "to"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by type and severity",
		},
		[]string{"type", "severity"},
	)
	tradingTogglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_toggles_total",
			Help: "Total number of trading flag toggles labeled by the resulting status",
		},
		[]string{"status"},
	)
	withdrawalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demo_withdrawals_total",
			Help: "Total number of demo withdrawal flows labeled by outcome",
		},
		[]string{"outcome"},
	)
	activeConversations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_conversations",
			Help: "Current number of conversations with stored state",
		},
	)
	conversationsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "conversations_by_state",
			Help: "Number of conversations per state",
		},
		[]string{"state"},
	)
	tradingActiveConversations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trading_active_conversations",
			Help: "Number of stored sessions whose trading flag is on",
		},
	)
)

var trackedStates = []state.State{
	state.StateIdle,
	state.StateAwaitingWalletAddress,
}

func init() {
	state.RegisterTransitionRecorder(RecordStateTransition)
}

// RecordCommand increments command counters and records duration.
func RecordCommand(command, status string, duration time.Duration) {
	if command == "" {
		command = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	botCommandsTotal.WithLabelValues(command, status).Inc()
	commandDurationSeconds.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordStateTransition tracks conversation transitions.
func RecordStateTransition(from, to string) {
	if from == "" {
		from = "unknown"
	}
	if to == "" {
		to = "unknown"
	}

	stateTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(errType, severity string) {
	if errType == "" {
		errType = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(errType, severity).Inc()
}

// RecordTradingToggle counts a flip of the trading flag.
func RecordTradingToggle(active bool) {
	status := "stopped"
	if active {
		status = "started"
	}
	tradingTogglesTotal.WithLabelValues(status).Inc()
}

// RecordWithdrawal counts a withdrawal flow step such as "requested", "completed" or "cancelled".
func RecordWithdrawal(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	withdrawalsTotal.WithLabelValues(outcome).Inc()
}

// SetActiveConversations updates the gauge for conversations with stored state.
func SetActiveConversations(count int) {
	activeConversations.Set(float64(count))
}

// SetConversationsByState updates the gauge for the given state.
func SetConversationsByState(state string, count int) {
	if state == "" {
		state = "unknown"
	}

	conversationsByState.WithLabelValues(state).Set(float64(count))
}

// StateCollector periodically gathers conversation state counts and emits gauge metrics.
type StateCollector struct {
	fsm      state.StateMachine
	interval time.Duration
}

// NewStateCollector builds a metrics collector bound to the provided state machine.
func NewStateCollector(fsm state.StateMachine, interval time.Duration) *StateCollector {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &StateCollector{fsm: fsm, interval: interval}
}

// Run polls the state machine every interval, updating gauges until ctx is cancelled.
func (c *StateCollector) Run(ctx context.Context) {
	if c == nil || c.fsm == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		_ = c.Collect(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.interval):
		}
	}
}

// Collect performs a single gauge refresh.
func (c *StateCollector) Collect(ctx context.Context) error {
	sessions, err := c.fsm.List(ctx)
	if err != nil {
		return err
	}

	stateCounts := make(map[string]int, len(trackedStates))
	conversations, trading := 0, 0
	for _, session := range sessions {
		if session == nil || session.ConversationID == state.GlobalConversationID {
			continue
		}

		conversations++
		if session.TradingActive {
			trading++
		}

		label := "unknown"
		if session.State != "" {
			label = string(session.State)
		}
		stateCounts[label]++
	}

	SetActiveConversations(conversations)
	tradingActiveConversations.Set(float64(trading))

	conversationsByState.Reset()

	for _, tracked := range trackedStates {
		label := string(tracked)
		SetConversationsByState(label, stateCounts[label])
		delete(stateCounts, label)
	}

	for label, count := range stateCounts {
		SetConversationsByState(label, count)
	}

	return nil
}
