package transcript_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/murmur/pkg/llm"
	"github.com/papercomputeco/murmur/pkg/transcript"
)

var _ = Describe("Recorder", func() {
	var (
		ctx      context.Context
		storer   *transcript.MemoryStorer
		recorder *transcript.Recorder
	)

	turn := func(session, q, a string) llm.Turn {
		return llm.Turn{
			SessionID: session,
			Model:     "llama3",
			User:      llm.Message{Role: llm.RoleUser, Content: q},
			Assistant: llm.Message{Role: llm.RoleAssistant, Content: a},
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		storer = transcript.NewMemoryStorer()
		recorder = transcript.NewRecorder(storer, zap.NewNop())
	})

	It("chains consecutive turns of a session", func() {
		_, err := recorder.Record(ctx, turn("s1", "hello", "hi"))
		Expect(err).NotTo(HaveOccurred())
		head, err := recorder.Record(ctx, turn("s1", "how are you", "fine"))
		Expect(err).NotTo(HaveOccurred())

		chain, err := transcript.Ancestry(ctx, storer, head)
		Expect(err).NotTo(HaveOccurred())
		Expect(chain).To(HaveLen(4))
		Expect(chain[0].Entry.Content).To(Equal("hello"))
		Expect(chain[3].Entry.Role).To(Equal("assistant"))
		Expect(chain[3].Entry.Content).To(Equal("fine"))
	})

	It("keeps sessions on separate chains", func() {
		_, err := recorder.Record(ctx, turn("s1", "hello", "hi"))
		Expect(err).NotTo(HaveOccurred())
		_, err = recorder.Record(ctx, turn("s2", "bonjour", "salut"))
		Expect(err).NotTo(HaveOccurred())

		leaves, err := storer.Leaves(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(leaves).To(HaveLen(2))
	})

	It("never archives image bytes", func() {
		t := turn("s1", "Analyze the image. [Image]", "a cat")
		t.User.Image = []byte{1, 2, 3}

		head, err := recorder.Record(ctx, t)
		Expect(err).NotTo(HaveOccurred())

		chain, err := transcript.Ancestry(ctx, storer, head)
		Expect(err).NotTo(HaveOccurred())
		Expect(chain[0].Entry).To(Equal(transcript.Entry{
			SessionID: "s1",
			Role:      "user",
			Content:   "Analyze the image. [Image]",
			Model:     "llama3",
		}))
	})
})
