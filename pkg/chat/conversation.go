package chat

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrIndexOutOfRange is returned when an operation names a position
	// outside the conversation.
	ErrIndexOutOfRange = errors.New("message index out of range")

	// ErrNoPrecedingTurn is returned when an operation on a non-user message
	// needs the turn before it and there is none.
	ErrNoPrecedingTurn = errors.New("message has no preceding turn")

	// ErrMessageNotFound is returned when no message carries the given ID.
	ErrMessageNotFound = errors.New("message not found")
)

// Conversation is the ordered transcript plus the draft input. It is the
// single source of truth for the view: every change goes through one of its
// methods and is announced to subscribers as an Event.
//
// Mutations are serialized. Listeners run after the mutation has been applied,
// in mutation order, and must neither mutate the conversation nor block on
// anything that might.
type Conversation struct {
	mu       sync.RWMutex
	messages []Message
	draft    string

	notifyMu  sync.Mutex
	listeners []func(Event)
}

// NewConversation creates a conversation seeded with the given messages, in
// order. Messages without an ID are assigned one.
func NewConversation(messages ...Message) *Conversation {
	c := &Conversation{}
	for _, m := range messages {
		c.appendLocked(m)
	}
	return c
}

// Subscribe registers fn to receive every subsequent Event.
func (c *Conversation) Subscribe(fn func(Event)) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Append adds a new message at the end of the conversation and returns it
// with its ID and pairing filled in.
func (c *Conversation) Append(role Role, content string, typ Type) Message {
	c.mu.Lock()
	m := c.appendLocked(Message{Role: role, Content: content, Type: typ})
	c.publish([]Event{{Kind: EventAppended, Message: m}})
	return m
}

// Update replaces the content of the message with the given ID.
func (c *Conversation) Update(id, content string) (Message, error) {
	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return Message{}, ErrMessageNotFound
	}
	c.messages[i].Content = content
	m := c.messages[i]
	c.publish([]Event{{Kind: EventUpdated, Message: m}})
	return m, nil
}

// SetType replaces the tag of the message with the given ID.
func (c *Conversation) SetType(id string, typ Type) (Message, error) {
	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return Message{}, ErrMessageNotFound
	}
	c.messages[i].Type = typ
	m := c.messages[i]
	c.publish([]Event{{Kind: EventRetagged, Message: m}})
	return m, nil
}

// Messages returns a copy of the transcript.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// At returns the message at index.
func (c *Conversation) At(index int) (Message, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if index < 0 || index >= len(c.messages) {
		return Message{}, ErrIndexOutOfRange
	}
	return c.messages[index], nil
}

// Get returns the message with the given ID.
func (c *Conversation) Get(id string) (Message, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.indexOf(id)
	if i < 0 {
		return Message{}, ErrMessageNotFound
	}
	return c.messages[i], nil
}

// History returns the settled turns suitable for sending upstream: error
// messages and messages still streaming are left out.
func (c *Conversation) History() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, 0, len(c.messages))
	for _, m := range c.messages {
		if m.Role == RoleError || m.IsTemporary() {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Draft returns the content of the input field.
func (c *Conversation) Draft() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.draft
}

// SetDraft replaces the content of the input field.
func (c *Conversation) SetDraft(s string) {
	c.mu.Lock()
	c.draft = s
	c.publish([]Event{{Kind: EventDraftChanged}})
}

// appendLocked appends m, assigning an ID and pairing it with the previous
// message when that one is a user turn still waiting for a reply.
func (c *Conversation) appendLocked(m Message) Message {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.ReplyID = ""
	m.QuestionID = ""
	c.messages = append(c.messages, m)
	c.pairSeam(len(c.messages) - 1)
	return c.messages[len(c.messages)-1]
}

// pairSeam links messages[i-1] and messages[i] when they form a pair that is
// not yet recorded.
func (c *Conversation) pairSeam(i int) {
	if i <= 0 || i >= len(c.messages) {
		return
	}
	q, r := &c.messages[i-1], &c.messages[i]
	if q.Role != RoleUser || r.Role == RoleUser {
		return
	}
	if q.ReplyID != "" || r.QuestionID != "" {
		return
	}
	q.ReplyID = r.ID
	r.QuestionID = q.ID
}

func (c *Conversation) indexOf(id string) int {
	for i := range c.messages {
		if c.messages[i].ID == id {
			return i
		}
	}
	return -1
}

// publish releases c.mu and delivers events to the listeners. The notify lock
// is taken before c.mu is released so deliveries keep mutation order.
func (c *Conversation) publish(events []Event) {
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()
	for _, e := range events {
		for _, fn := range c.listeners {
			fn(e)
		}
	}
}
