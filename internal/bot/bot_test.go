package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/himera-demo-bot/internal/bot/handlers"
	apperrors "github.com/Proton-105/himera-demo-bot/internal/errors"
	"github.com/Proton-105/himera-demo-bot/internal/i18n"
	"github.com/Proton-105/himera-demo-bot/internal/state"
	"github.com/Proton-105/himera-demo-bot/internal/trading"
	"github.com/Proton-105/himera-demo-bot/pkg/config"
)

type sentMessage struct {
	text string
	opts []interface{}
}

// fakeContext implements the parts of telebot.Context the router touches.
type fakeContext struct {
	telebot.Context
	sender  *telebot.User
	chat    *telebot.Chat
	text    string
	store   map[string]interface{}
	sent    []sentMessage
	sendErr error
}

func newFakeContext(userID int64, text string) *fakeContext {
	return &fakeContext{
		sender: &telebot.User{ID: userID},
		chat:   &telebot.Chat{ID: userID},
		text:   text,
		store:  make(map[string]interface{}),
	}
}

func (f *fakeContext) Sender() *telebot.User { return f.sender }
func (f *fakeContext) Chat() *telebot.Chat   { return f.chat }
func (f *fakeContext) Text() string          { return f.text }

func (f *fakeContext) Send(what interface{}, opts ...interface{}) error {
	text, _ := what.(string)
	f.sent = append(f.sent, sentMessage{text: text, opts: opts})
	return f.sendErr
}

func (f *fakeContext) Set(key string, val interface{}) { f.store[key] = val }
func (f *fakeContext) Get(key string) interface{}      { return f.store[key] }

func (f *fakeContext) lastText() string {
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].text
}

type conversationFunc func(ctx context.Context, conversationID int64, text string) (trading.Reply, error)

func (f conversationFunc) Handle(ctx context.Context, conversationID int64, text string) (trading.Reply, error) {
	return f(ctx, conversationID, text)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedTokens() trading.TokenSource {
	return trading.TokenFunc(func(n int) string { return strings.Repeat("Q", n) })
}

func newTestBot(t *testing.T, conv handlers.Conversation) *Bot {
	t.Helper()

	log := testLogger()
	b, err := New(config.BotConfig{Token: "123:test", Mode: config.ModePolling}, log, conv, apperrors.NewHandler(log, false), WithOffline())
	require.NoError(t, err)
	return b
}

func newTestController(t *testing.T) (*trading.Controller, state.StateMachine) {
	t.Helper()

	log := testLogger()
	fsm := state.NewStateMachine(state.NewMemoryStorage(), log, nil)
	messages, err := i18n.Load(i18n.DefaultLang)
	require.NoError(t, err)

	return trading.NewController(fsm, messages.Translator(i18n.DefaultLang), log, trading.WithTokenSource(fixedTokens())), fsm
}

func hasMenu(opts []interface{}) bool {
	for _, opt := range opts {
		if markup, ok := opt.(*telebot.ReplyMarkup); ok && len(markup.ReplyKeyboard) == len(trading.MenuLabels) {
			return true
		}
	}
	return false
}

func TestNew_RequiresConversation(t *testing.T) {
	_, err := New(config.BotConfig{Token: "123:test"}, testLogger(), nil, nil, WithOffline())
	assert.Error(t, err)
}

func TestBot_DepositReplyCarriesMenu(t *testing.T) {
	controller, _ := newTestController(t)
	b := newTestBot(t, controller)

	c := newFakeContext(42, trading.LabelDeposit)
	require.NoError(t, b.Router().Route(c))

	require.Len(t, c.sent, 1)
	assert.Contains(t, c.sent[0].text, strings.Repeat("Q", trading.DepositAddressLength))
	assert.True(t, hasMenu(c.sent[0].opts))
	assert.Contains(t, c.sent[0].opts, telebot.ModeMarkdown)
}

func TestBot_WithdrawalFlow(t *testing.T) {
	controller, fsm := newTestController(t)
	b := newTestBot(t, controller)
	ctx := context.Background()

	prompt := newFakeContext(7, trading.LabelWithdraw)
	require.NoError(t, b.Router().Route(prompt))
	assert.Contains(t, prompt.lastText(), "wallet address")

	session, err := fsm.Load(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, state.StateAwaitingWalletAddress, session.State)

	address := newFakeContext(7, "0x1234567890abcdef1234567890abcdef12345678")
	require.NoError(t, b.Router().Route(address))
	assert.Contains(t, address.lastText(), "0x1234567890abc...")
	assert.Contains(t, address.lastText(), strings.Repeat("Q", trading.TransactionIDLength))

	session, err = fsm.Load(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, state.StateIdle, session.State)
}

func TestBot_CancelCommandWithBotSuffix(t *testing.T) {
	controller, fsm := newTestController(t)
	b := newTestBot(t, controller)

	require.NoError(t, b.Router().Route(newFakeContext(9, trading.LabelWithdraw)))

	cancel := newFakeContext(9, "/cancel@himera_demo_bot")
	require.NoError(t, b.Router().Route(cancel))
	assert.Equal(t, "Withdrawal cancelled.", cancel.lastText())

	session, err := fsm.Load(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, state.StateIdle, session.State)
}

func TestBot_ConversationsAreIndependent(t *testing.T) {
	controller, _ := newTestController(t)
	b := newTestBot(t, controller)

	require.NoError(t, b.Router().Route(newFakeContext(1, trading.LabelWithdraw)))

	other := newFakeContext(2, "hello")
	require.NoError(t, b.Router().Route(other))
	assert.Equal(t, "Please use one of the buttons below 👇", other.lastText())
}

func TestBot_ErrorsBecomeUserMessages(t *testing.T) {
	b := newTestBot(t, conversationFunc(func(context.Context, int64, string) (trading.Reply, error) {
		return trading.Reply{}, apperrors.NewStorageError(errors.New("redis down"))
	}))

	c := newFakeContext(3, trading.LabelTrade)
	require.NoError(t, b.Router().Route(c))

	require.Len(t, c.sent, 1)
	assert.Equal(t, apperrors.NewStorageError(nil).UserMessage, c.sent[0].text)
	assert.True(t, hasMenu(c.sent[0].opts))
}

func TestBot_RecoversFromPanics(t *testing.T) {
	b := newTestBot(t, conversationFunc(func(context.Context, int64, string) (trading.Reply, error) {
		panic("boom")
	}))

	c := newFakeContext(4, trading.LabelCheckStatus)
	assert.NotPanics(t, func() {
		assert.NoError(t, b.Router().Route(c))
	})
	require.NotEmpty(t, c.sent)
}

func TestBot_SendFailureIsSwallowed(t *testing.T) {
	controller, _ := newTestController(t)
	b := newTestBot(t, controller)

	c := newFakeContext(5, trading.LabelTrade)
	c.sendErr = errors.New("network unreachable")

	assert.NoError(t, b.Router().Route(c))
	assert.Len(t, c.sent, 2)
}

func TestBot_LoggingMiddlewareSetsCorrelationID(t *testing.T) {
	var seen context.Context
	b := newTestBot(t, conversationFunc(func(ctx context.Context, _ int64, _ string) (trading.Reply, error) {
		seen = ctx
		return trading.Reply{Text: "ok"}, nil
	}))

	require.NoError(t, b.Router().Route(newFakeContext(6, "/help")))
	require.NotNil(t, seen)
	assert.NotEqual(t, context.Background(), seen)
}

func TestBot_StopWithoutStartReturns(t *testing.T) {
	controller, _ := newTestController(t)
	b := newTestBot(t, controller)

	done := make(chan struct{})
	go func() {
		b.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a bot that never started")
	}
}
