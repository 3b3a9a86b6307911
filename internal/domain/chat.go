package domain

import "time"

// ChatMessage is the provider-agnostic chat message shape used by the router
// and LLM integrations.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn is a single persisted message of a conversation.
type ChatTurn struct {
	ConversationID string
	Role           Role
	Text           string
	CreatedAt      time.Time
}

// ConversationContext is the small per-conversation record kept next to the
// chat log. It is a hint: every field may be absent and callers fall back to
// scanning recent turns.
type ConversationContext struct {
	ConversationID string
	LastQuoteID    *uint
	LastCustomerID *uint
	Pending        *PendingClarification
	UpdatedAt      time.Time
}

// PendingClarification is an open clarification menu.
type PendingClarification struct {
	OriginalText string   `json:"originalText"`
	Options      []string `json:"options"`
}
