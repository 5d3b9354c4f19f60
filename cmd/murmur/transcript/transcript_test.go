package transcriptcmder

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/murmur/pkg/llm"
	"github.com/papercomputeco/murmur/pkg/transcript"
)

var _ = Describe("Transcript Command", func() {
	var (
		ctx     context.Context
		tmpDir  string
		srcPath string
		dstPath string
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		tmpDir, err = os.MkdirTemp("", "murmur-transcript-test-*")
		Expect(err).NotTo(HaveOccurred())
		srcPath = filepath.Join(tmpDir, "source.db")
		dstPath = filepath.Join(tmpDir, "target.db")
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	// record archives one exchange per question into path and returns the
	// final head hash.
	record := func(path, sessionID string, questions ...string) string {
		storer, err := transcript.NewSQLiteStorer(path)
		Expect(err).NotTo(HaveOccurred())
		recorder := transcript.NewRecorder(storer, zap.NewNop())
		defer recorder.Close()

		var head string
		for _, q := range questions {
			head, err = recorder.Record(ctx, llm.Turn{
				SessionID: sessionID,
				Model:     "llama3",
				User:      llm.Message{Role: llm.RoleUser, Content: q},
				Assistant: llm.Message{Role: llm.RoleAssistant, Content: "answer to " + q},
			})
			Expect(err).NotTo(HaveOccurred())
		}
		return head
	}

	execute := func(args ...string) (string, error) {
		var stdout bytes.Buffer
		cmd := NewTranscriptCmd()
		cmd.SetOut(&stdout)
		cmd.SetErr(&stdout)
		cmd.SetArgs(args)
		err := cmd.Execute()
		return stdout.String(), err
	}

	It("lists the head of every conversation", func() {
		record(srcPath, "s1", "what is go?")
		record(srcPath, "s2", "what is rust?")

		out, err := execute("ls", "--db", srcPath)
		Expect(err).NotTo(HaveOccurred())

		lines := strings.Split(strings.TrimSpace(out), "\n")
		Expect(lines).To(HaveLen(2))
		Expect(lines[0]).To(ContainSubstring("s1"))
		Expect(lines[0]).To(ContainSubstring("answer to what is go?"))
		Expect(lines[1]).To(ContainSubstring("s2"))
	})

	It("reports an empty archive", func() {
		out, err := execute("ls", "--db", srcPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Archive is empty."))
	})

	It("shows a conversation oldest first", func() {
		head := record(srcPath, "s1", "first", "second")

		out, err := execute("show", head, "--db", srcPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("session s1"))

		first := strings.Index(out, "answer to first")
		second := strings.Index(out, "answer to second")
		Expect(first).To(BeNumerically(">", 0))
		Expect(second).To(BeNumerically(">", first))
		Expect(out).NotTo(ContainSubstring("hash mismatch"))
	})

	It("fails for an unknown hash", func() {
		record(srcPath, "s1", "first")

		_, err := execute("show", "deadbeef", "--db", srcPath)
		Expect(err).To(MatchError(ContainSubstring("node not found")))
	})

	It("merges archives and skips known nodes", func() {
		record(srcPath, "s1", "shared question")
		record(dstPath, "s1", "shared question")
		record(srcPath, "s2", "only in source")

		out, err := execute("merge", "--db", dstPath, srcPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Merged 2 new nodes from 1 sources (2 already existed)"))

		target, err := transcript.NewSQLiteStorer(dstPath)
		Expect(err).NotTo(HaveOccurred())
		defer target.Close()
		nodes, err := target.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(nodes).To(HaveLen(4))
	})

	It("needs an archive path", func() {
		os.Unsetenv("MURMUR_TRANSCRIPT_DB")
		_, err := execute("ls")
		Expect(err).To(MatchError(ContainSubstring("no archive given")))
	})
})
