package audio_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/chatline/pkg/audio"
	"github.com/papercomputeco/chatline/pkg/chat"
	"github.com/papercomputeco/chatline/pkg/tts"
)

type fakeSynth struct {
	mu       sync.Mutex
	requests []tts.Request
	err      error

	// When gate is set, Synthesize signals entered and waits for gate to close.
	gate    chan struct{}
	entered chan struct{}
}

func (s *fakeSynth) Synthesize(_ context.Context, message, voice string) ([]byte, error) {
	s.mu.Lock()
	s.requests = append(s.requests, tts.Request{Message: message, Voice: voice})
	gate, entered, err := s.gate, s.entered, s.err
	s.mu.Unlock()

	if gate != nil {
		entered <- struct{}{}
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return []byte("audio:" + message), nil
}

func (s *fakeSynth) Requests() []tts.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tts.Request(nil), s.requests...)
}

type fakeHandle struct {
	mu      sync.Mutex
	paused  bool
	onEnded func()
}

func (h *fakeHandle) Paused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.paused
}

func (h *fakeHandle) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paused = true
	return nil
}

// finish simulates playback running to its end.
func (h *fakeHandle) finish() {
	go h.onEnded()
}

type fakePlayer struct {
	mu      sync.Mutex
	handles []*fakeHandle
	played  [][]byte
	err     error
}

func (p *fakePlayer) Play(_ context.Context, data []byte, onEnded func()) (audio.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	h := &fakeHandle{onEnded: onEnded}
	p.handles = append(p.handles, h)
	p.played = append(p.played, data)
	return h, nil
}

func (p *fakePlayer) last() *fakeHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handles[len(p.handles)-1]
}

var _ = Describe("Controller", func() {
	var (
		synth  *fakeSynth
		player *fakePlayer
		ctrl   *audio.Controller
		ctx    context.Context
		answer chat.Message
	)

	BeforeEach(func() {
		synth = &fakeSynth{}
		player = &fakePlayer{}
		ctrl = audio.NewController(synth, player, "zh-CN-XiaoxiaoNeural", zap.NewNop())
		ctx = context.Background()
		answer = chat.Message{ID: "a1", Role: chat.RoleAssistant, Content: "Hello"}
	})

	It("starts playback when idle", func() {
		result, err := ctrl.PlayAnswer(ctx, answer)
		Expect(err).NotTo(HaveOccurred())
		Expect(result).To(Equal(audio.Started))

		id, active := ctrl.Active()
		Expect(active).To(BeTrue())
		Expect(id).To(Equal("a1"))
		Expect(synth.Requests()).To(Equal([]tts.Request{{Message: "Hello", Voice: "zh-CN-XiaoxiaoNeural"}}))
		Expect(player.played).To(Equal([][]byte{[]byte("audio:Hello")}))
	})

	It("stops active playback without a new request", func() {
		ctrl.PlayAnswer(ctx, answer)
		handle := player.last()

		result, err := ctrl.PlayAnswer(ctx, answer)
		Expect(err).NotTo(HaveOccurred())
		Expect(result).To(Equal(audio.Stopped))
		Expect(handle.Paused()).To(BeTrue())
		Expect(synth.Requests()).To(HaveLen(1))

		_, active := ctrl.Active()
		Expect(active).To(BeFalse())
	})

	It("acts as a single toggle across messages", func() {
		other := chat.Message{ID: "a2", Role: chat.RoleAssistant, Content: "Other"}
		ctrl.PlayAnswer(ctx, answer)

		result, _ := ctrl.PlayAnswer(ctx, other)
		Expect(result).To(Equal(audio.Stopped))

		result, _ = ctrl.PlayAnswer(ctx, other)
		Expect(result).To(Equal(audio.Started))
		id, _ := ctrl.Active()
		Expect(id).To(Equal("a2"))
	})

	It("starts again once playback ends on its own", func() {
		ctrl.PlayAnswer(ctx, answer)
		player.last().finish()

		Eventually(func() bool {
			_, active := ctrl.Active()
			return active
		}).Should(BeFalse())

		result, _ := ctrl.PlayAnswer(ctx, answer)
		Expect(result).To(Equal(audio.Started))
		Expect(synth.Requests()).To(HaveLen(2))
	})

	It("ignores the end of a playback that was replaced", func() {
		ctrl.PlayAnswer(ctx, answer)
		first := player.last()
		first.Pause()

		result, _ := ctrl.PlayAnswer(ctx, answer)
		Expect(result).To(Equal(audio.Started))
		second := player.last()
		Expect(second).NotTo(BeIdenticalTo(first))

		first.finish()
		Consistently(func() bool {
			_, active := ctrl.Active()
			return active
		}, "50ms").Should(BeTrue())
	})

	It("reports synthesis failures", func() {
		synth.err = fmt.Errorf("%w: proxy returned 500", tts.ErrSynthesis)

		result, err := ctrl.PlayAnswer(ctx, answer)
		Expect(result).To(Equal(audio.Failed))
		Expect(err).To(MatchError(tts.ErrSynthesis))
		Expect(player.handles).To(BeEmpty())

		_, active := ctrl.Active()
		Expect(active).To(BeFalse())
	})

	It("reports player failures", func() {
		player.err = errors.New("no audio device")

		result, err := ctrl.PlayAnswer(ctx, answer)
		Expect(result).To(Equal(audio.Failed))
		Expect(err).To(MatchError(ContainSubstring("no audio device")))
	})

	It("uses the voice set later", func() {
		ctrl.SetVoice("en-US-JennyNeural")
		ctrl.PlayAnswer(ctx, answer)

		Expect(synth.Requests()[0].Voice).To(Equal("en-US-JennyNeural"))
	})

	It("keeps independent controllers apart", func() {
		other := audio.NewController(synth, player, "v", zap.NewNop())
		ctrl.PlayAnswer(ctx, answer)

		result, _ := other.PlayAnswer(ctx, answer)
		Expect(result).To(Equal(audio.Started))
	})

	Context("while synthesis is in flight", func() {
		var results chan audio.Result

		BeforeEach(func() {
			synth.gate = make(chan struct{})
			synth.entered = make(chan struct{}, 1)
			results = make(chan audio.Result, 1)

			go func() {
				result, _ := ctrl.PlayAnswer(ctx, answer)
				results <- result
			}()
			Eventually(synth.entered).Should(Receive())
		})

		It("does not block state changes", func() {
			done := make(chan struct{})
			go func() {
				ctrl.SetVoice("en-US-JennyNeural")
				ctrl.Active()
				close(done)
			}()
			Eventually(done).Should(BeClosed())

			close(synth.gate)
			Eventually(results).Should(Receive(Equal(audio.Started)))
		})

		It("cancels the start when stopped", func() {
			ctrl.Stop()
			close(synth.gate)

			Eventually(results).Should(Receive(Equal(audio.Stopped)))
			Expect(player.handles).To(BeEmpty())
			_, active := ctrl.Active()
			Expect(active).To(BeFalse())
		})
	})

	It("stops on request", func() {
		ctrl.PlayAnswer(ctx, answer)
		handle := player.last()

		ctrl.Stop()
		Expect(handle.Paused()).To(BeTrue())
		_, active := ctrl.Active()
		Expect(active).To(BeFalse())
	})
})
