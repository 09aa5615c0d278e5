package mergecmder

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatline/pkg/audiocache"
)

var _ = Describe("Merge Command", func() {
	var (
		ctx     context.Context
		tmpDir  string
		srcPath string
		dstPath string
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		tmpDir, err = os.MkdirTemp("", "chatline-merge-test-*")
		Expect(err).NotTo(HaveOccurred())
		srcPath = filepath.Join(tmpDir, "source.db")
		dstPath = filepath.Join(tmpDir, "target.db")
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	seed := func(path string, messages ...string) {
		store, err := audiocache.NewSQLiteStorer(path)
		Expect(err).NotTo(HaveOccurred())
		defer store.Close()
		for _, m := range messages {
			_, err := store.Put(ctx, audiocache.NewEntry("zh-CN-XiaoxiaoNeural", m, []byte("mp3:"+m)))
			Expect(err).NotTo(HaveOccurred())
		}
	}

	count := func(path string) int {
		store, err := audiocache.NewSQLiteStorer(path)
		Expect(err).NotTo(HaveOccurred())
		defer store.Close()
		entries, err := store.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		return len(entries)
	}

	runMerge := func(args ...string) string {
		var out bytes.Buffer
		cmd := NewMergeCmd()
		cmd.SetOut(&out)
		cmd.SetArgs(append([]string{"--cache", dstPath}, args...))
		Expect(cmd.ExecuteContext(ctx)).To(Succeed())
		return out.String()
	}

	It("merges clips from source into target", func() {
		seed(srcPath, "hello from source", "hi back")
		seed(dstPath, "hello from target")

		out := runMerge(srcPath)

		Expect(count(dstPath)).To(Equal(3))
		Expect(out).To(ContainSubstring("2 new, 0 already existed"))
	})

	It("deduplicates when merging the same source twice", func() {
		seed(srcPath, "dedup test")
		seed(dstPath)

		runMerge(srcPath)
		out := runMerge(srcPath)

		Expect(count(dstPath)).To(Equal(1))
		Expect(out).To(ContainSubstring("0 new, 1 already existed"))
	})

	It("merges multiple sources", func() {
		src2Path := filepath.Join(tmpDir, "source2.db")
		seed(srcPath, "from source 1")
		seed(src2Path, "from source 2")

		out := runMerge(srcPath, src2Path)

		Expect(count(dstPath)).To(Equal(2))
		Expect(out).To(ContainSubstring("Merged 2 new clips from 2 sources"))
	})

	It("keeps the audio bytes intact", func() {
		seed(srcPath, "payload")
		runMerge(srcPath)

		store, err := audiocache.NewSQLiteStorer(dstPath)
		Expect(err).NotTo(HaveOccurred())
		defer store.Close()
		entry, err := store.Get(ctx, audiocache.Key("zh-CN-XiaoxiaoNeural", "payload"))
		Expect(err).NotTo(HaveOccurred())
		Expect(entry.Audio).To(Equal([]byte("mp3:payload")))
	})

	It("requires at least one source", func() {
		cmd := NewMergeCmd()
		cmd.SetArgs([]string{"--cache", dstPath})
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		Expect(cmd.ExecuteContext(ctx)).NotTo(Succeed())
	})
})
