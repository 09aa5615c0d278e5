package chat

// EventKind says what happened to the conversation.
type EventKind int

const (
	EventAppended EventKind = iota
	EventUpdated
	EventRetagged
	EventRemoved
	EventDraftChanged
)

func (k EventKind) String() string {
	switch k {
	case EventAppended:
		return "appended"
	case EventUpdated:
		return "updated"
	case EventRetagged:
		return "retagged"
	case EventRemoved:
		return "removed"
	case EventDraftChanged:
		return "draft_changed"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers after each change. Message is the state
// of the affected message after the change (before it, for EventRemoved) and
// is empty for EventDraftChanged.
type Event struct {
	Kind    EventKind
	Message Message
}
