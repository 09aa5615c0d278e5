package prunecmder

import (
	"bytes"
	"context"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatline/pkg/audiocache"
)

var _ = Describe("Prune Command", func() {
	var (
		ctx    context.Context
		dbPath string
	)

	BeforeEach(func() {
		ctx = context.Background()
		dbPath = filepath.Join(GinkgoT().TempDir(), "audio.db")
	})

	seed := func(message string, age time.Duration) {
		store, err := audiocache.NewSQLiteStorer(dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer store.Close()
		entry := audiocache.NewEntry("zh-CN-XiaoxiaoNeural", message, []byte("mp3:"+message))
		entry.CreatedAt = time.Now().UTC().Add(-age)
		_, err = store.Put(ctx, entry)
		Expect(err).NotTo(HaveOccurred())
	}

	messages := func() []string {
		store, err := audiocache.NewSQLiteStorer(dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer store.Close()
		entries, err := store.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		var out []string
		for _, e := range entries {
			out = append(out, e.Message)
		}
		return out
	}

	runPrune := func(args ...string) (string, string, error) {
		var out, errOut bytes.Buffer
		cmd := NewPruneCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&errOut)
		cmd.SetArgs(append([]string{"--cache", dbPath}, args...))
		err := cmd.ExecuteContext(ctx)
		return out.String(), errOut.String(), err
	}

	It("removes clips older than the cutoff", func() {
		seed("stale", 72*time.Hour)
		seed("recent", time.Hour)

		out, _, err := runPrune("--older-than", "24h")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Removed 1 clips older than 24h0m0s"))
		Expect(messages()).To(ConsistOf("recent"))
	})

	It("keeps everything when nothing is old enough", func() {
		seed("recent", time.Hour)

		out, _, err := runPrune("--older-than", "24h")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Removed 0 clips"))
		Expect(messages()).To(ConsistOf("recent"))
	})

	It("logs the cutoff with --debug", func() {
		seed("recent", time.Hour)

		_, logs, err := runPrune("--older-than", "24h", "--debug")
		Expect(err).NotTo(HaveOccurred())
		Expect(logs).To(ContainSubstring("pruning audio cache"))
	})

	It("rejects a non-positive age", func() {
		_, _, err := runPrune("--older-than", "0s")
		Expect(err).To(MatchError(ContainSubstring("--older-than must be positive")))
	})
})
