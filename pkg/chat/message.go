// Package chat holds the conversation transcript and the operations that
// mutate it: delete, regenerate, lock and edit.
package chat

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleError     Role = "error"
)

// Type is the optional tag carried by a message.
type Type string

const (
	// TypeNone is an ordinary settled message.
	TypeNone Type = ""

	// TypeTemporary marks a message whose content is still streaming in.
	TypeTemporary Type = "temporary"

	// TypeLocked marks a message that is part of a locked pair.
	TypeLocked Type = "locked"
)

// Message is a single turn in a conversation.
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Type    Type   `json:"type,omitempty"`

	// ReplyID is set on a user message and names the reply paired with it.
	ReplyID string `json:"reply_id,omitempty"`

	// QuestionID is set on a reply and names the user message it answers.
	QuestionID string `json:"question_id,omitempty"`
}

// IsTemporary reports whether the message is still being produced.
func (m Message) IsTemporary() bool {
	return m.Type == TypeTemporary
}

// IsLocked reports whether the message belongs to a locked pair.
func (m Message) IsLocked() bool {
	return m.Type == TypeLocked
}

func toggleLock(t Type) Type {
	if t == TypeLocked {
		return TypeNone
	}
	return TypeLocked
}
