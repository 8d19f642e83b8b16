package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/himera-demo-bot/internal/bot/keyboard"
	apperrors "github.com/Proton-105/himera-demo-bot/internal/errors"
	"github.com/Proton-105/himera-demo-bot/internal/trading"
)

// Conversation is the subset of trading.Controller the handler depends on.
type Conversation interface {
	Handle(ctx context.Context, conversationID int64, text string) (trading.Reply, error)
}

// NewConversationHandler feeds message text to the controller and sends the reply with the main menu.
func NewConversationHandler(conv Conversation, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil {
			return nil
		}

		conversationID, ok := ConversationID(c)
		if !ok {
			log.Warn("conversation handler invoked without sender or chat")
			return nil
		}

		ctx := ContextFrom(c)
		reply, err := conv.Handle(ctx, conversationID, c.Text())
		if err != nil {
			return err
		}

		if err := SendReply(c, reply); err != nil {
			return apperrors.NewTransportError("send reply", err)
		}

		return nil
	}
}

// SendReply delivers reply text together with the main menu.
func SendReply(c telebot.Context, reply trading.Reply) error {
	opts := []interface{}{keyboard.MainMenu()}
	if reply.Markdown {
		opts = append(opts, telebot.ModeMarkdown)
	}

	return c.Send(reply.Text, opts...)
}
