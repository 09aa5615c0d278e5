package tui

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/chatline/pkg/audio"
	"github.com/papercomputeco/chatline/pkg/chat"
)

var _ = Describe("Session", func() {
	var (
		ctx     context.Context
		conv    *chat.Conversation
		chatter *fakeChatter
		speaker *fakeSpeaker
		session *Session
	)

	BeforeEach(func() {
		ctx = context.Background()
		conv = chat.NewConversation()
		chatter = &fakeChatter{chunks: []string{"Hel", "lo"}}
		speaker = &fakeSpeaker{result: audio.Started}
		session = NewSession(conv, chatter, speaker, SessionConfig{
			Model:        "test-model",
			SystemPrompt: "be brief",
			Temperature:  0.6,
		}, zap.NewNop())
	})

	Describe("Send", func() {
		It("streams the reply into a temporary message and settles it", func() {
			var seen []chat.Message
			conv.Subscribe(func(e chat.Event) {
				if e.Kind == chat.EventUpdated {
					seen = append(seen, e.Message)
				}
			})

			Expect(session.Send(ctx, "Hi")).To(Succeed())

			msgs := conv.Messages()
			Expect(roles(msgs)).To(Equal([]string{"user:Hi", "assistant:Hello"}))
			Expect(msgs[1].Type).To(Equal(chat.TypeNone))
			Expect(msgs[0].ReplyID).To(Equal(msgs[1].ID))

			Expect(seen).To(HaveLen(2))
			Expect(seen[0].Content).To(Equal("Hel"))
			Expect(seen[0].IsTemporary()).To(BeTrue())
		})

		It("sends the system prompt and the settled history", func() {
			Expect(session.Send(ctx, "Hi")).To(Succeed())

			req := chatter.lastRequest()
			Expect(req.Model).To(Equal("test-model"))
			Expect(*req.Options.Temperature).To(BeNumerically("~", 0.6))
			Expect(req.Messages).To(HaveLen(2))
			Expect(req.Messages[0].Role).To(Equal("system"))
			Expect(req.Messages[1].Content).To(Equal("Hi"))
		})

		It("replaces a failed reply with an error message", func() {
			chatter.err = errors.New("upstream returned 500")

			err := session.Send(ctx, "Hi")
			Expect(err).To(MatchError(ContainSubstring("upstream returned 500")))
			Expect(roles(conv.Messages())).To(Equal([]string{"user:Hi", "error:upstream returned 500"}))
		})

		It("leaves error messages out of later requests", func() {
			chatter.err = errors.New("boom")
			_ = session.Send(ctx, "first")

			chatter.err = nil
			Expect(session.Send(ctx, "second")).To(Succeed())

			var contents []string
			for _, m := range chatter.lastRequest().Messages {
				contents = append(contents, m.Role+":"+m.Content)
			}
			Expect(contents).To(Equal([]string{"system:be brief", "user:first", "user:second"}))
		})

		It("stops streaming when the reply is removed", func() {
			chatter.stream = func(ctx context.Context, onChunk func(string)) error {
				onChunk("partial")
				_, err := conv.Delete(1)
				Expect(err).NotTo(HaveOccurred())
				onChunk("partial and more")
				<-ctx.Done()
				return ctx.Err()
			}

			Expect(session.Send(ctx, "Hi")).To(Succeed())
			Expect(roles(conv.Messages())).To(Equal([]string{"user:Hi"}))
		})

		It("keeps a reply locked while it streamed", func() {
			chatter.stream = func(_ context.Context, onChunk func(string)) error {
				onChunk("partial")
				return conv.Lock(1)
			}

			Expect(session.Send(ctx, "Hi")).To(Succeed())
			msgs := conv.Messages()
			Expect(msgs[0].IsLocked()).To(BeTrue())
			Expect(msgs[1].IsLocked()).To(BeTrue())
		})
	})

	Describe("Play", func() {
		It("hands the message at index to the speaker", func() {
			Expect(session.Send(ctx, "Hi")).To(Succeed())

			result, err := session.Play(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(audio.Started))
			Expect(speaker.played).To(HaveLen(1))
			Expect(speaker.played[0].Content).To(Equal("Hello"))
		})

		It("rejects an index outside the conversation", func() {
			result, err := session.Play(ctx, 5)
			Expect(err).To(MatchError(chat.ErrIndexOutOfRange))
			Expect(result).To(Equal(audio.Failed))
			Expect(speaker.played).To(BeEmpty())
		})
	})
})
