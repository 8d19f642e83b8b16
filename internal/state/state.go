package state

import "time"

// State represents a conversation state.
type State string

const (
	// StateIdle indicates that the bot is waiting for the next menu button.
	StateIdle State = "idle"
	// StateAwaitingWalletAddress indicates that the user selected Withdraw and the next message is the wallet address.
	StateAwaitingWalletAddress State = "awaiting_wallet_address"
)

// GlobalConversationID keys the shared record used when the trading flag is process-wide.
const GlobalConversationID int64 = 0

// Session captures the ephemeral state of a single conversation.
type Session struct {
	ConversationID int64     `json:"conversation_id"`
	State          State     `json:"state"`
	TradingActive  bool      `json:"trading_active"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewSession returns an idle session for the conversation.
func NewSession(conversationID int64) *Session {
	return &Session{
		ConversationID: conversationID,
		State:          StateIdle,
	}
}

// AwaitingAddress reports whether the conversation is inside the withdrawal sub-flow.
func (s *Session) AwaitingAddress() bool {
	return s != nil && s.State == StateAwaitingWalletAddress
}

// Clone returns a copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
