package servecmder

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/murmur/gateway/gatewaytest"
	"github.com/papercomputeco/murmur/pkg/client"
	"github.com/papercomputeco/murmur/pkg/config"
	"github.com/papercomputeco/murmur/pkg/telemetry"
)

var _ = Describe("Serve Command", func() {
	var (
		tmpDir string
		cmder  *serveCommander
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "murmur-serve-test-*")
		Expect(err).NotTo(HaveOccurred())
		cmder = &serveCommander{version: "test"}
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	writeConfig := func(body string) string {
		path := filepath.Join(tmpDir, "murmur.toml")
		Expect(os.WriteFile(path, []byte(body), 0o600)).To(Succeed())
		return path
	}

	load := func(args ...string) (config.Config, error) {
		cmd := newServeCmd(cmder)
		args = append([]string{"--env-file", filepath.Join(tmpDir, "missing.env")}, args...)
		Expect(cmd.Flags().Parse(args)).To(Succeed())
		return cmder.loadConfig(cmd)
	}

	Describe("loadConfig", func() {
		It("uses the defaults", func() {
			cfg, err := load()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.ListenAddr).To(Equal(config.DefaultListenAddr))
			Expect(cfg.TextModel).To(Equal("llama3"))
			Expect(cfg.VisionModel).To(Equal("llava"))
			Expect(cfg.MaxHistory).To(Equal(10))
		})

		It("keeps file values unless a flag is given", func() {
			path := writeConfig(`
listen = ":7000"
text_model = "mistral"
vision_model = "bakllava"
`)
			cfg, err := load("--config", path, "--vision-model", "llava:13b")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.ListenAddr).To(Equal(":7000"))
			Expect(cfg.TextModel).To(Equal("mistral"))
			Expect(cfg.VisionModel).To(Equal("llava:13b"))
		})

		It("reads the .env file", func() {
			envPath := filepath.Join(tmpDir, "test.env")
			Expect(os.WriteFile(envPath, []byte("MURMUR_TEXT_MODEL=phi3\n"), 0o600)).To(Succeed())
			DeferCleanup(os.Unsetenv, "MURMUR_TEXT_MODEL")

			cmd := newServeCmd(cmder)
			Expect(cmd.Flags().Parse([]string{"--env-file", envPath})).To(Succeed())
			cfg, err := cmder.loadConfig(cmd)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.TextModel).To(Equal("phi3"))
		})

		It("rejects invalid settings", func() {
			path := writeConfig(`trim_policy = "sideways"`)
			_, err := load("--config", path)
			Expect(err).To(MatchError(ContainSubstring("invalid configuration")))
		})
	})

	Describe("openRecorder", func() {
		It("is disabled by default", func() {
			r, err := openRecorder("", zap.NewNop())
			Expect(err).NotTo(HaveOccurred())
			Expect(r).To(BeNil())
		})

		It("archives in memory", func() {
			r, err := openRecorder(config.TranscriptMemory, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())
			Expect(r).NotTo(BeNil())
			Expect(r.Close()).To(Succeed())
		})

		It("archives to a SQLite file", func() {
			path := filepath.Join(tmpDir, "transcripts.db")
			r, err := openRecorder(path, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Close()).To(Succeed())
			Expect(path).To(BeAnExistingFile())
		})
	})

	Describe("buildGateway", func() {
		It("serves chat and history with the configured token", func() {
			cfg := config.Default()
			cfg.AuthToken = "s3cret"
			cfg.TranscriptDB = config.TranscriptMemory

			tracing, err := telemetry.Setup(context.Background(), telemetry.Config{ServiceName: "murmur-test"})
			Expect(err).NotTo(HaveOccurred())

			backend := &gatewaytest.EchoBackend{}
			gw, store, gate, err := cmder.buildGateway(cfg, backend, zap.NewNop(), tracing)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(gw.Close)

			ln, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).NotTo(HaveOccurred())
			go func() {
				_ = gw.RunWithListener(ln)
			}()
			DeferCleanup(func() { _ = gw.Shutdown(context.Background()) })

			c := client.New("http://"+ln.Addr().String(), "s3cret", 5*time.Second)
			reply, err := c.Chat(context.Background(), "s1", "hello", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(reply).To(Equal("echo: hello"))
			Expect(backend.Models()).To(Equal([]string{"llama3"}))
			Expect(store.Len()).To(Equal(1))

			history, err := c.History(context.Background(), "s1")
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(2))

			gate.SetSecret("rotated")
			_, err = c.History(context.Background(), "s1")
			Expect(client.IsUnauthorized(err)).To(BeTrue())
		})
	})
})
