package chat_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatline/pkg/chat"
)

func user(content string) chat.Message {
	return chat.Message{Role: chat.RoleUser, Content: content}
}

func assistant(content string) chat.Message {
	return chat.Message{Role: chat.RoleAssistant, Content: content}
}

func contents(msgs []chat.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, string(m.Role)+":"+m.Content)
	}
	return out
}

var _ = Describe("Conversation", func() {
	Describe("Append", func() {
		It("assigns an ID to every message", func() {
			conv := chat.NewConversation()
			m := conv.Append(chat.RoleUser, "Hi", chat.TypeNone)

			Expect(m.ID).NotTo(BeEmpty())
			Expect(conv.Len()).To(Equal(1))
		})

		It("keeps IDs given up front", func() {
			conv := chat.NewConversation(chat.Message{ID: "fixed", Role: chat.RoleUser, Content: "Hi"})

			m, err := conv.Get("fixed")
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Content).To(Equal("Hi"))
		})

		It("pairs a reply with the user message before it", func() {
			conv := chat.NewConversation()
			q := conv.Append(chat.RoleUser, "Hi", chat.TypeNone)
			r := conv.Append(chat.RoleAssistant, "Hello", chat.TypeNone)

			Expect(r.QuestionID).To(Equal(q.ID))
			first, _ := conv.At(0)
			Expect(first.ReplyID).To(Equal(r.ID))
		})

		It("does not pair two consecutive user messages", func() {
			conv := chat.NewConversation(user("one"), user("two"))

			msgs := conv.Messages()
			Expect(msgs[0].ReplyID).To(BeEmpty())
			Expect(msgs[1].QuestionID).To(BeEmpty())
		})

		It("pairs an error reply", func() {
			conv := chat.NewConversation(user("Hi"), chat.Message{Role: chat.RoleError, Content: "boom"})

			msgs := conv.Messages()
			Expect(msgs[0].ReplyID).To(Equal(msgs[1].ID))
		})

		It("does not pair a second reply", func() {
			conv := chat.NewConversation(user("Hi"), assistant("A"), assistant("B"))

			msgs := conv.Messages()
			Expect(msgs[2].QuestionID).To(BeEmpty())
		})
	})

	Describe("Update and SetType", func() {
		It("replaces content by ID", func() {
			conv := chat.NewConversation()
			m := conv.Append(chat.RoleAssistant, "", chat.TypeTemporary)

			updated, err := conv.Update(m.ID, "partial")
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Content).To(Equal("partial"))
			Expect(updated.IsTemporary()).To(BeTrue())
		})

		It("settles a temporary message", func() {
			conv := chat.NewConversation()
			m := conv.Append(chat.RoleAssistant, "done", chat.TypeTemporary)

			settled, err := conv.SetType(m.ID, chat.TypeNone)
			Expect(err).NotTo(HaveOccurred())
			Expect(settled.IsTemporary()).To(BeFalse())
		})

		It("reports unknown IDs", func() {
			conv := chat.NewConversation()

			_, err := conv.Update("missing", "x")
			Expect(err).To(MatchError(chat.ErrMessageNotFound))
			_, err = conv.SetType("missing", chat.TypeLocked)
			Expect(err).To(MatchError(chat.ErrMessageNotFound))
		})
	})

	Describe("History", func() {
		It("leaves out errors and messages still streaming", func() {
			conv := chat.NewConversation(
				chat.Message{Role: chat.RoleSystem, Content: "be brief"},
				user("Q1"),
				chat.Message{Role: chat.RoleError, Content: "failed"},
				user("Q2"),
				chat.Message{Role: chat.RoleAssistant, Content: "par", Type: chat.TypeTemporary},
			)

			Expect(contents(conv.History())).To(Equal([]string{"system:be brief", "user:Q1", "user:Q2"}))
		})
	})

	Describe("Subscribe", func() {
		It("delivers events in mutation order", func() {
			conv := chat.NewConversation()
			var (
				mu    sync.Mutex
				kinds []chat.EventKind
			)
			conv.Subscribe(func(e chat.Event) {
				mu.Lock()
				defer mu.Unlock()
				kinds = append(kinds, e.Kind)
			})

			m := conv.Append(chat.RoleUser, "Hi", chat.TypeNone)
			conv.Update(m.ID, "Hi there")
			conv.Lock(0)
			conv.Delete(0)

			mu.Lock()
			defer mu.Unlock()
			Expect(kinds).To(Equal([]chat.EventKind{
				chat.EventAppended,
				chat.EventUpdated,
				chat.EventRetagged,
				chat.EventRemoved,
			}))
		})

		It("reports the removed messages", func() {
			conv := chat.NewConversation(user("Hi"), assistant("Hello"))
			var removed []string
			conv.Subscribe(func(e chat.Event) {
				if e.Kind == chat.EventRemoved {
					removed = append(removed, e.Message.Content)
				}
			})

			conv.Delete(0)

			Expect(removed).To(Equal([]string{"Hi", "Hello"}))
		})
	})

	Describe("Draft", func() {
		It("stores the input content", func() {
			conv := chat.NewConversation()
			conv.SetDraft("typing")

			Expect(conv.Draft()).To(Equal("typing"))
		})
	})
})
