package trading

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/himera-demo-bot/internal/i18n"
	"github.com/Proton-105/himera-demo-bot/internal/state"
)

var (
	depositTokenRe = regexp.MustCompile("`([A-Z]+)`")
	txIDRe         = regexp.MustCompile(`Transaction ID:\* ([A-Z]+)\n`)
)

func testDeps() Deps {
	return Deps{Tokens: RandomTokens, Messages: i18n.MustLoad(i18n.DefaultLang).Translator("en")}
}

func fixedDeps(letter string) Deps {
	deps := testDeps()
	deps.Tokens = TokenFunc(func(n int) string { return strings.Repeat(letter, n) })
	return deps
}

func idle() state.Session {
	return *state.NewSession(1)
}

func awaiting() state.Session {
	s := idle()
	s.State = state.StateAwaitingWalletAddress
	return s
}

func TestTransition_Table(t *testing.T) {
	deps := fixedDeps("Q")
	msg := deps.Messages

	testCases := []struct {
		name      string
		from      state.Session
		text      string
		wantState state.State
		wantEvent Event
		contains  string
		markdown  bool
	}{
		{name: "deposit", from: idle(), text: "Deposit", wantState: state.StateIdle, wantEvent: EventDeposit, contains: strings.Repeat("Q", 15), markdown: true},
		{name: "trade", from: idle(), text: "Trade", wantState: state.StateIdle, wantEvent: EventTrade, contains: "Trade Executed", markdown: true},
		{name: "toggle", from: idle(), text: "Start/Stop Trading", wantState: state.StateIdle, wantEvent: EventTradingStarted, contains: "STARTED", markdown: true},
		{name: "status", from: idle(), text: "Check Status", wantState: state.StateIdle, wantEvent: EventStatus, contains: "INACTIVE", markdown: true},
		{name: "withdraw", from: idle(), text: "Withdraw", wantState: state.StateAwaitingWalletAddress, wantEvent: EventWithdrawPrompt, contains: "wallet address", markdown: true},
		{name: "fallback", from: idle(), text: "hello", wantState: state.StateIdle, wantEvent: EventFallback, contains: msg.T("fallback.text")},
		{name: "unknown command idle", from: idle(), text: "/balance", wantState: state.StateIdle, wantEvent: EventFallback, contains: msg.T("fallback.text")},
		{name: "cancel idle", from: idle(), text: "/cancel", wantState: state.StateIdle, wantEvent: EventNothingToCancel, contains: "Nothing to cancel"},
		{name: "start idle", from: idle(), text: "/start", wantState: state.StateIdle, wantEvent: EventWelcome, contains: "Demo Trading Bot", markdown: true},
		{name: "help idle", from: idle(), text: "/help", wantState: state.StateIdle, wantEvent: EventHelp, contains: "Help", markdown: true},
		{name: "address", from: awaiting(), text: "0xABC123", wantState: state.StateIdle, wantEvent: EventWithdrawCompleted, contains: "0xABC123...", markdown: true},
		{name: "button as address", from: awaiting(), text: "Deposit", wantState: state.StateIdle, wantEvent: EventWithdrawCompleted, contains: "Deposit...", markdown: true},
		{name: "empty address", from: awaiting(), text: "", wantState: state.StateAwaitingWalletAddress, wantEvent: EventWithdrawReprompt, contains: msg.T("withdraw.reprompt")},
		{name: "whitespace address", from: awaiting(), text: " \t\n", wantState: state.StateAwaitingWalletAddress, wantEvent: EventWithdrawReprompt, contains: msg.T("withdraw.reprompt")},
		{name: "unknown command awaiting", from: awaiting(), text: "/balance", wantState: state.StateAwaitingWalletAddress, wantEvent: EventWithdrawReprompt},
		{name: "cancel command awaiting", from: awaiting(), text: "/cancel", wantState: state.StateIdle, wantEvent: EventWithdrawCancelled, contains: "Withdrawal cancelled."},
		{name: "cancel button awaiting", from: awaiting(), text: "Cancel", wantState: state.StateIdle, wantEvent: EventWithdrawCancelled, contains: "Withdrawal cancelled."},
		{name: "help awaiting keeps flow", from: awaiting(), text: "/help", wantState: state.StateAwaitingWalletAddress, wantEvent: EventHelp, markdown: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			next, reply := Transition(tc.from, Classify(tc.text), deps)

			assert.Equal(t, tc.wantState, next.State)
			assert.Equal(t, tc.wantEvent, reply.Event)
			assert.Equal(t, tc.markdown, reply.Markdown)
			assert.NotEmpty(t, reply.Text)
			if tc.contains != "" {
				assert.Contains(t, reply.Text, tc.contains)
			}
		})
	}
}

func TestTransition_UnrecognizedIdleInputFallsBack(t *testing.T) {
	deps := testDeps()
	for _, text := range []string{"buy", "deposit", "DEPOSIT", "Start", "👍", "Withdraw please", "Cancel me"} {
		next, reply := Transition(idle(), Classify(text), deps)
		assert.Equal(t, state.StateIdle, next.State, text)
		assert.Equal(t, EventFallback, reply.Event, text)
		assert.Equal(t, deps.Messages.T("fallback.text"), reply.Text, text)
	}
}

func TestTransition_ToggleTwiceRestoresFlag(t *testing.T) {
	deps := testDeps()
	toggle := Classify(LabelToggleTrading)
	status := Classify(LabelCheckStatus)

	start := idle()
	_, before := Transition(start, status, deps)

	once, first := Transition(start, toggle, deps)
	require.True(t, once.TradingActive)
	assert.Contains(t, first.Text, "STARTED")

	twice, second := Transition(once, toggle, deps)
	assert.False(t, twice.TradingActive)
	assert.Contains(t, second.Text, "STOPPED")

	_, after := Transition(twice, status, deps)
	assert.Equal(t, before.Text, after.Text)

	_, active := Transition(once, status, deps)
	assert.Contains(t, active.Text, "ACTIVE")
	assert.NotContains(t, active.Text, "INACTIVE")
}

func TestTransition_DepositToken(t *testing.T) {
	deps := testDeps()
	for i := 0; i < 50; i++ {
		_, reply := Transition(idle(), Classify(LabelDeposit), deps)

		matches := depositTokenRe.FindAllStringSubmatch(reply.Text, -1)
		require.Len(t, matches, 1)
		assert.Len(t, matches[0][1], DepositAddressLength)
	}
}

func TestTransition_WithdrawFlow(t *testing.T) {
	deps := testDeps()

	s, prompt := Transition(idle(), Classify(LabelWithdraw), deps)
	require.Equal(t, state.StateAwaitingWalletAddress, s.State)
	assert.Equal(t, deps.Messages.T("withdraw.prompt"), prompt.Text)

	s, reprompt := Transition(s, Classify("   "), deps)
	require.Equal(t, state.StateAwaitingWalletAddress, s.State)
	assert.Equal(t, EventWithdrawReprompt, reprompt.Event)

	done, success := Transition(s, Classify("0xABC123"), deps)
	assert.Equal(t, state.StateIdle, done.State)
	assert.Contains(t, success.Text, "0xABC123")

	match := txIDRe.FindStringSubmatch(success.Text)
	require.Len(t, match, 2)
	assert.Len(t, match[1], TransactionIDLength)

	_, again := Transition(s, Classify("0xABC123"), deps)
	other := txIDRe.FindStringSubmatch(again.Text)
	require.Len(t, other, 2)
	assert.NotEqual(t, match[1], other[1])
}

func TestTransition_AddressEchoIsTruncatedAndEscaped(t *testing.T) {
	deps := fixedDeps("Z")

	_, reply := Transition(awaiting(), Classify("0x1234567890abcdefXYZ"), deps)
	assert.Contains(t, reply.Text, "0x1234567890abc...")
	assert.NotContains(t, reply.Text, "0x1234567890abcd")

	_, reply = Transition(awaiting(), Classify("my_wallet*"), deps)
	assert.Contains(t, reply.Text, `my\_wallet\*...`)

	_, reply = Transition(awaiting(), Classify("кошелёккошелёккошелёк"), deps)
	assert.Contains(t, reply.Text, "кошелёккошелёкк...")
}

func TestTransition_PreservesTradingFlagAcrossWithdrawal(t *testing.T) {
	deps := testDeps()

	s := idle()
	s.TradingActive = true

	s, _ = Transition(s, Classify(LabelWithdraw), deps)
	s, _ = Transition(s, Classify("/cancel"), deps)

	assert.True(t, s.TradingActive)
	assert.Equal(t, state.StateIdle, s.State)
}
