package askcmder

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/murmur/gateway/gatewaytest"
	"github.com/papercomputeco/murmur/pkg/llm"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

var _ = Describe("Ask Command", func() {
	var (
		tmpDir string
		server *gatewaytest.Server
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "murmur-ask-test-*")
		Expect(err).NotTo(HaveOccurred())

		server, err = gatewaytest.Start()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
		os.RemoveAll(tmpDir)
	})

	execute := func(args ...string) (string, string, error) {
		var stdout, stderr bytes.Buffer
		cmd := NewAskCmd()
		cmd.SetOut(&stdout)
		cmd.SetErr(&stderr)
		cmd.SetArgs(append([]string{"--server", server.URL}, args...))
		err := cmd.Execute()
		return stdout.String(), stderr.String(), err
	}

	It("sends a text turn to a new session", func() {
		stdout, stderr, err := execute("hello there")
		Expect(err).NotTo(HaveOccurred())
		Expect(stdout).To(Equal("echo: hello there\n"))
		Expect(stderr).To(ContainSubstring("session: "))
		Expect(server.Backend.Models()).To(Equal([]string{"text-model"}))
		Expect(server.Store.Len()).To(Equal(1))
	})

	It("continues a named session", func() {
		_, _, err := execute("--session", "s1", "one")
		Expect(err).NotTo(HaveOccurred())
		_, stderr, err := execute("--session", "s1", "two")
		Expect(err).NotTo(HaveOccurred())
		Expect(stderr).To(BeEmpty())

		sess, ok := server.Store.Get("s1")
		Expect(ok).To(BeTrue())
		sess.Lock()
		defer sess.Unlock()
		Expect(sess.Len()).To(Equal(5))
	})

	It("attaches an image and uses the vision model", func() {
		path := filepath.Join(tmpDir, "pic.png")
		Expect(os.WriteFile(path, pngHeader, 0o600)).To(Succeed())

		stdout, _, err := execute("--session", "s1", "--image", path)
		Expect(err).NotTo(HaveOccurred())
		Expect(stdout).To(Equal("echo: " + llm.DefaultImagePrompt + "\n"))
		Expect(server.Backend.Models()).To(Equal([]string{"vision-model"}))
	})

	It("refuses files that are not images", func() {
		path := filepath.Join(tmpDir, "notes.txt")
		Expect(os.WriteFile(path, []byte("just text"), 0o600)).To(Succeed())

		_, _, err := execute("--image", path)
		Expect(err).To(MatchError(ContainSubstring("does not look like an image")))
		Expect(server.Backend.Models()).To(BeEmpty())
	})

	It("requires something to send", func() {
		_, _, err := execute()
		Expect(err).To(MatchError(ContainSubstring("nothing to send")))
	})

	It("reports backend failures", func() {
		server.Backend.Fail(os.ErrDeadlineExceeded)
		_, _, err := execute("hello")
		Expect(err).To(MatchError(ContainSubstring("Model failed")))
	})
})
