package trading

import (
	"strings"

	"github.com/Proton-105/himera-demo-bot/internal/i18n"
	"github.com/Proton-105/himera-demo-bot/internal/state"
)

// Event names the outcome of a transition for logging and metrics.
type Event string

const (
	EventWelcome           Event = "welcome"
	EventHelp              Event = "help"
	EventDeposit           Event = "deposit"
	EventTrade             Event = "trade"
	EventTradingStarted    Event = "trading_started"
	EventTradingStopped    Event = "trading_stopped"
	EventStatus            Event = "status"
	EventWithdrawPrompt    Event = "withdraw_prompt"
	EventWithdrawReprompt  Event = "withdraw_reprompt"
	EventWithdrawCompleted Event = "withdraw_completed"
	EventWithdrawCancelled Event = "withdraw_cancelled"
	EventNothingToCancel   Event = "nothing_to_cancel"
	EventFallback          Event = "fallback"
)

// Reply is what the bot sends back. Every reply is shown with the main menu.
type Reply struct {
	Text     string
	Markdown bool
	Event    Event
}

// Deps carries the collaborators Transition needs to render replies.
type Deps struct {
	Tokens   TokenSource
	Messages i18n.Translator
}

// Transition computes the next session and the reply for one input. It has no side effects.
func Transition(session state.Session, in Input, deps Deps) (state.Session, Reply) {
	if deps.Tokens == nil {
		deps.Tokens = RandomTokens
	}
	msg := deps.Messages

	switch in.Kind {
	case InputStart:
		return session, markdown(msg.T("start.welcome"), EventWelcome)
	case InputHelp:
		return session, markdown(msg.T("help.text"), EventHelp)
	}

	if session.State == state.StateAwaitingWalletAddress {
		return awaitingAddress(session, in, deps)
	}

	session.State = state.StateIdle

	switch in.Kind {
	case InputDeposit:
		address := deps.Tokens.Token(DepositAddressLength)
		return session, markdown(msg.Tf("deposit.text", address), EventDeposit)

	case InputTrade:
		return session, markdown(msg.T("trade.text"), EventTrade)

	case InputToggleTrading:
		session.TradingActive = !session.TradingActive
		if session.TradingActive {
			text := msg.Tf("toggle.text", msg.T("toggle.started"), msg.T("toggle.started_detail"))
			return session, markdown(text, EventTradingStarted)
		}
		text := msg.Tf("toggle.text", msg.T("toggle.stopped"), msg.T("toggle.stopped_detail"))
		return session, markdown(text, EventTradingStopped)

	case InputCheckStatus:
		status := msg.T("status.inactive")
		if session.TradingActive {
			status = msg.T("status.active")
		}
		return session, markdown(msg.Tf("status.text", status), EventStatus)

	case InputWithdraw:
		session.State = state.StateAwaitingWalletAddress
		return session, markdown(msg.T("withdraw.prompt"), EventWithdrawPrompt)

	case InputCancel:
		return session, plain(msg.T("withdraw.nothing_to_cancel"), EventNothingToCancel)

	default:
		return session, plain(msg.T("fallback.text"), EventFallback)
	}
}

func awaitingAddress(session state.Session, in Input, deps Deps) (state.Session, Reply) {
	msg := deps.Messages

	switch in.Kind {
	case InputCancel:
		session.State = state.StateIdle
		return session, plain(msg.T("withdraw.cancelled"), EventWithdrawCancelled)
	case InputUnknownCommand:
		return session, plain(msg.T("withdraw.reprompt"), EventWithdrawReprompt)
	}

	address := strings.TrimSpace(in.Text)
	if address == "" {
		return session, plain(msg.T("withdraw.reprompt"), EventWithdrawReprompt)
	}

	txID := deps.Tokens.Token(TransactionIDLength)
	echo := escapeMarkdown(truncateRunes(in.Text, AddressEchoLength))

	session.State = state.StateIdle
	return session, markdown(msg.Tf("withdraw.success", echo, txID), EventWithdrawCompleted)
}

func markdown(text string, event Event) Reply {
	return Reply{Text: text, Markdown: true, Event: event}
}

func plain(text string, event Event) Reply {
	return Reply{Text: text, Event: event}
}
