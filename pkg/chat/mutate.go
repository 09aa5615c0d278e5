package chat

// SendFunc asks for a fresh answer to question. ReAnswer does not wait for it.
type SendFunc func(question string)

// Delete removes the message at index. A user message takes its paired reply
// with it; a second consecutive user message is never part of a pair. Any
// other message is removed alone. The removed messages are returned in order.
func (c *Conversation) Delete(index int) ([]Message, error) {
	c.mu.Lock()
	if index < 0 || index >= len(c.messages) {
		c.mu.Unlock()
		return nil, ErrIndexOutOfRange
	}

	lo, hi := c.turnSpan(index)
	removed := c.removeLocked(lo, hi)
	c.publish(removedEvents(removed))
	return removed, nil
}

// ReAnswer removes a turn so that it can be asked again and returns the
// question to resend. For a user message the question is its own content and
// the removal matches Delete. For any other message the question is the
// content of the message before it and both are removed.
//
// send, when non-nil, is called with the question on its own goroutine.
func (c *Conversation) ReAnswer(index int, send SendFunc) (string, error) {
	c.mu.Lock()
	if index < 0 || index >= len(c.messages) {
		c.mu.Unlock()
		return "", ErrIndexOutOfRange
	}

	var question string
	lo, hi := index, index
	if c.messages[index].Role == RoleUser {
		question = c.messages[index].Content
		lo, hi = c.turnSpan(index)
	} else {
		if index == 0 {
			c.mu.Unlock()
			return "", ErrNoPrecedingTurn
		}
		question = c.messages[index-1].Content
		lo = index - 1
	}

	removed := c.removeLocked(lo, hi)
	c.publish(removedEvents(removed))

	if send != nil {
		go send(question)
	}
	return question, nil
}

// Lock toggles the locked tag over a pair. On a user message it flips the
// message and its reply, the latter only when the reply is an assistant
// message. On any other message it flips that message and the one before it.
func (c *Conversation) Lock(index int) error {
	c.mu.Lock()
	if index < 0 || index >= len(c.messages) {
		c.mu.Unlock()
		return ErrIndexOutOfRange
	}

	targets := []int{index}
	if c.messages[index].Role == RoleUser {
		if r := c.replyIndex(index); r >= 0 && c.messages[r].Role == RoleAssistant {
			targets = append(targets, r)
		}
	} else {
		if index == 0 {
			c.mu.Unlock()
			return ErrNoPrecedingTurn
		}
		targets = []int{index - 1, index}
	}

	events := make([]Event, 0, len(targets))
	for _, i := range targets {
		c.messages[i].Type = toggleLock(c.messages[i].Type)
		events = append(events, Event{Kind: EventRetagged, Message: c.messages[i]})
	}
	c.publish(events)
	return nil
}

// Edit copies the content of the message at index into the draft input and
// returns it. The message itself is left as it is.
func (c *Conversation) Edit(index int) (string, error) {
	c.mu.Lock()
	if index < 0 || index >= len(c.messages) {
		c.mu.Unlock()
		return "", ErrIndexOutOfRange
	}
	c.draft = c.messages[index].Content
	draft := c.draft
	c.publish([]Event{{Kind: EventDraftChanged}})
	return draft, nil
}

// Remove deletes the single message with the given ID, whatever its role.
// The send pipeline uses it to drop a reply that failed to stream.
func (c *Conversation) Remove(id string) (Message, error) {
	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return Message{}, ErrMessageNotFound
	}
	removed := c.removeLocked(i, i)
	c.publish(removedEvents(removed))
	return removed[0], nil
}

// Clear removes every message that is not part of a locked pair and returns
// the removed messages.
func (c *Conversation) Clear() []Message {
	c.mu.Lock()
	kept := make([]Message, 0, len(c.messages))
	var removed []Message
	for _, m := range c.messages {
		if m.IsLocked() {
			kept = append(kept, m)
			continue
		}
		removed = append(removed, m)
	}
	c.messages = kept
	c.unlink(removed)
	for i := 1; i < len(c.messages); i++ {
		c.pairSeam(i)
	}
	c.publish(removedEvents(removed))
	return removed
}

// turnSpan returns the inclusive bounds of the turn starting at index: the
// message and, for a user message, its recorded reply.
func (c *Conversation) turnSpan(index int) (int, int) {
	if c.messages[index].Role != RoleUser {
		return index, index
	}
	if r := c.replyIndex(index); r >= 0 {
		return index, r
	}
	return index, index
}

// replyIndex returns the position of the reply paired with the user message
// at index, or -1. Pairs are always adjacent.
func (c *Conversation) replyIndex(index int) int {
	id := c.messages[index].ReplyID
	if id == "" || index+1 >= len(c.messages) || c.messages[index+1].ID != id {
		return -1
	}
	return index + 1
}

// removeLocked cuts messages[lo..hi] out of the conversation, drops links to
// the removed messages and pairs the messages that became neighbours.
func (c *Conversation) removeLocked(lo, hi int) []Message {
	removed := make([]Message, hi-lo+1)
	copy(removed, c.messages[lo:hi+1])
	c.messages = append(c.messages[:lo], c.messages[hi+1:]...)
	c.unlink(removed)
	c.pairSeam(lo)
	return removed
}

func (c *Conversation) unlink(removed []Message) {
	if len(removed) == 0 {
		return
	}
	gone := make(map[string]struct{}, len(removed))
	for _, m := range removed {
		gone[m.ID] = struct{}{}
	}
	for i := range c.messages {
		m := &c.messages[i]
		if _, ok := gone[m.ReplyID]; ok {
			m.ReplyID = ""
		}
		if _, ok := gone[m.QuestionID]; ok {
			m.QuestionID = ""
		}
	}
}

func removedEvents(removed []Message) []Event {
	events := make([]Event, 0, len(removed))
	for _, m := range removed {
		events = append(events, Event{Kind: EventRemoved, Message: m})
	}
	return events
}
