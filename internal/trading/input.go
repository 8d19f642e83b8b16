package trading

import "strings"

// Menu button labels. Matching is exact and case-sensitive.
const (
	LabelDeposit       = "Deposit"
	LabelTrade         = "Trade"
	LabelToggleTrading = "Start/Stop Trading"
	LabelWithdraw      = "Withdraw"
	LabelCheckStatus   = "Check Status"
	LabelCancel        = "Cancel"
)

// Bot commands.
const (
	CommandStart  = "/start"
	CommandHelp   = "/help"
	CommandCancel = "/cancel"
)

// MenuLabels lists the persistent reply menu, in display order.
var MenuLabels = []string{
	LabelDeposit,
	LabelTrade,
	LabelToggleTrading,
	LabelWithdraw,
	LabelCheckStatus,
}

// InputKind classifies an inbound message.
type InputKind string

const (
	InputStart          InputKind = "start"
	InputHelp           InputKind = "help"
	InputCancel         InputKind = "cancel"
	InputDeposit        InputKind = "deposit"
	InputTrade          InputKind = "trade"
	InputToggleTrading  InputKind = "toggle_trading"
	InputWithdraw       InputKind = "withdraw"
	InputCheckStatus    InputKind = "check_status"
	InputUnknownCommand InputKind = "unknown_command"
	InputText           InputKind = "text"
)

// Input is a classified inbound message. Text keeps the raw message.
type Input struct {
	Kind InputKind
	Text string
}

var labelKinds = map[string]InputKind{
	LabelDeposit:       InputDeposit,
	LabelTrade:         InputTrade,
	LabelToggleTrading: InputToggleTrading,
	LabelWithdraw:      InputWithdraw,
	LabelCheckStatus:   InputCheckStatus,
	LabelCancel:        InputCancel,
}

var commandKinds = map[string]InputKind{
	CommandStart:  InputStart,
	CommandHelp:   InputHelp,
	CommandCancel: InputCancel,
}

// Classify maps raw message text onto the closed set of recognized inputs.
func Classify(text string) Input {
	trimmed := strings.TrimSpace(text)

	if strings.HasPrefix(trimmed, "/") {
		if kind, ok := commandKinds[CommandName(trimmed)]; ok {
			return Input{Kind: kind, Text: text}
		}
		return Input{Kind: InputUnknownCommand, Text: text}
	}

	if kind, ok := labelKinds[trimmed]; ok {
		return Input{Kind: kind, Text: text}
	}

	return Input{Kind: InputText, Text: text}
}

// CommandName returns the command word without arguments or @botname suffix.
func CommandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}

	name := fields[0]
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}

	return name
}

// IsButton reports whether the input came from one of the menu buttons.
func (in Input) IsButton() bool {
	switch in.Kind {
	case InputDeposit, InputTrade, InputToggleTrading, InputWithdraw, InputCheckStatus:
		return true
	default:
		return false
	}
}
