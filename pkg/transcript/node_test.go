package transcript_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/murmur/pkg/transcript"
)

func entry(role, content string) transcript.Entry {
	return transcript.Entry{SessionID: "s1", Role: role, Content: content, Model: "llama3"}
}

var _ = Describe("Node", func() {
	It("sets ParentHash to nil for the first message", func() {
		node := transcript.NewNode(entry("user", "hello"), nil)

		Expect(node.ParentHash).To(BeNil())
		Expect(node.Hash).To(MatchRegexp("^[a-f0-9]{64}$"))
	})

	It("produces consistent hashes for the same entry", func() {
		a := transcript.NewNode(entry("user", "hello"), nil)
		b := transcript.NewNode(entry("user", "hello"), nil)

		Expect(a.Hash).To(Equal(b.Hash))
	})

	It("produces different hashes for different entries", func() {
		a := transcript.NewNode(entry("user", "hello"), nil)
		b := transcript.NewNode(entry("user", "goodbye"), nil)

		Expect(a.Hash).NotTo(Equal(b.Hash))
	})

	It("links children to their parent", func() {
		parent := transcript.NewNode(entry("user", "hello"), nil)
		child := transcript.NewNode(entry("assistant", "hi"), parent)

		Expect(child.ParentHash).NotTo(BeNil())
		Expect(*child.ParentHash).To(Equal(parent.Hash))
	})

	It("hashes the same entry differently under different parents", func() {
		p1 := transcript.NewNode(entry("user", "a"), nil)
		p2 := transcript.NewNode(entry("user", "b"), nil)

		Expect(transcript.NewNode(entry("assistant", "x"), p1).Hash).
			NotTo(Equal(transcript.NewNode(entry("assistant", "x"), p2).Hash))
	})

	It("detects tampering", func() {
		node := transcript.NewNode(entry("user", "hello"), nil)
		Expect(node.Verify()).To(BeTrue())

		node.Entry.Content = "edited"
		Expect(node.Verify()).To(BeFalse())
	})
})
