package conversations

import "time"

// Conversation is the message history for one call.
//
// Invariants:
// - One conversation per call (call_id is unique); deleted with its call.
// - Messages are an ordered, append-only sequence.
// - Summary is set once, at call completion.

type Conversation struct {
	ID     string `json:"id" db:"id"`
	CallID string `json:"call_id" db:"call_id"`

	Messages []Message `json:"messages" db:"messages"`

	// Derived fields, refreshed as the call progresses.
	Summary   string `json:"summary,omitempty" db:"summary"`
	Intent    string `json:"intent,omitempty" db:"intent"`
	Sentiment string `json:"sentiment,omitempty" db:"sentiment"`

	// Metadata is optional JSON.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// CompletionMessage is the role/content pair handed to the completion
// provider; timestamps are stripped.
type CompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Append returns the conversation with a message added, stamped at now.
func (c Conversation) Append(role Role, content string, now time.Time) Conversation {
	c.Messages = append(c.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: now.UTC(),
	})
	return c
}

// MessagesForCompletion returns the stored messages verbatim as completion
// input. There is no windowing: long calls feed the full history each turn.
func (c Conversation) MessagesForCompletion() []CompletionMessage {
	out := make([]CompletionMessage, 0, len(c.Messages))
	for _, m := range c.Messages {
		out = append(out, CompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}
