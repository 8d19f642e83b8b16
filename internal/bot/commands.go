package bot

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/himera-demo-bot/internal/trading"
)

// Command constants for Telegram bot commands.
const (
	CommandStart  = trading.CommandStart
	CommandHelp   = trading.CommandHelp
	CommandCancel = trading.CommandCancel
)

// commandMenu is published to Telegram so clients can suggest the commands.
var commandMenu = []telebot.Command{
	{Text: "start", Description: "Show the welcome message and menu"},
	{Text: "help", Description: "Explain what the buttons do"},
	{Text: "cancel", Description: "Abort a withdrawal in progress"},
}
