package render

import "github.com/papercomputeco/chatline/pkg/chat"

// Bind keeps s in step with conv: appended and updated messages are scheduled
// (throttled while temporary), settled messages are rendered once more and
// removed messages are forgotten.
func Bind(conv *chat.Conversation, s *Scheduler) {
	conv.Subscribe(func(e chat.Event) {
		switch e.Kind {
		case chat.EventAppended, chat.EventUpdated:
			s.Schedule(e.Message.ID, e.Message.Content, e.Message.IsTemporary())
		case chat.EventRetagged:
			if !e.Message.IsTemporary() {
				s.Schedule(e.Message.ID, e.Message.Content, false)
			}
		case chat.EventRemoved:
			s.Forget(e.Message.ID)
		}
	})
}
