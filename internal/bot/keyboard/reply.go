// Package keyboard renders the bot's reply keyboards.
package keyboard

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/himera-demo-bot/internal/trading"
)

// MainMenu builds the persistent five-button reply keyboard, one button per row.
func MainMenu() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard:  true,
		OneTimeKeyboard: false,
	}

	rows := make([]telebot.Row, 0, len(trading.MenuLabels))
	for _, label := range trading.MenuLabels {
		rows = append(rows, markup.Row(markup.Text(label)))
	}
	markup.Reply(rows...)

	return markup
}
