package chatcmder

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/chatline/pkg/chat"
)

var _ = Describe("Chat Command", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("starts empty without a transcript", func() {
		conv, err := (&chatCommander{}).loadConversation()
		Expect(err).NotTo(HaveOccurred())
		Expect(conv.Len()).To(BeZero())
	})

	It("loads and saves the transcript", func() {
		path := filepath.Join(tmpDir, "chat.json")
		cmder := &chatCommander{transcriptPath: path}

		conv, err := cmder.loadConversation()
		Expect(err).NotTo(HaveOccurred())
		conv.Append(chat.RoleUser, "Hi", chat.TypeNone)
		conv.Append(chat.RoleAssistant, "Hello", chat.TypeNone)
		Expect(cmder.saveConversation(conv, zap.NewNop())).To(Succeed())

		again, err := cmder.loadConversation()
		Expect(err).NotTo(HaveOccurred())
		Expect(again.Messages()).To(Equal(conv.Messages()))
	})

	It("reports a corrupt transcript", func() {
		path := filepath.Join(tmpDir, "chat.json")
		Expect(os.WriteFile(path, []byte("not json"), 0o600)).To(Succeed())

		_, err := (&chatCommander{transcriptPath: path}).loadConversation()
		Expect(err).To(MatchError(ContainSubstring("could not load transcript")))
	})

	It("rejects an invalid config before starting the UI", func() {
		path := filepath.Join(tmpDir, "chatline.toml")
		Expect(os.WriteFile(path, []byte("[chat]\nrender_workers = 0\n"), 0o600)).To(Succeed())

		cmd := NewChatCmd()
		cmd.SetArgs([]string{"--config", path})
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		Expect(cmd.Execute()).To(MatchError(ContainSubstring("render_workers")))
	})
})
