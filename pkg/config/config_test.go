package config_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/murmur/pkg/config"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func writeFile(path, content string) {
	Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
}

var _ = Describe("Config", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	Describe("Default", func() {
		It("matches the gateway's built-in limits", func() {
			cfg := config.Default()

			Expect(cfg.MaxHistory).To(Equal(10))
			Expect(cfg.MaxImageBytes).To(Equal(5 * 1024 * 1024))
			Expect(cfg.TextModel).To(Equal("llama3"))
			Expect(cfg.VisionModel).To(Equal("llava"))
			Expect(cfg.TrimPolicy).To(Equal("naive"))
			Expect(cfg.MaxSessions).To(BeZero())
			Expect(cfg.Validate()).To(Succeed())
		})
	})

	Describe("Load", func() {
		It("reads values from a TOML file", func() {
			path := filepath.Join(dir, "murmur.toml")
			writeFile(path, `
listen = ":9000"
auth_token = "hunter2"
trim_policy = "pinned"
max_sessions = 100
backend_timeout = "30s"
`)

			cfg, err := config.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.ListenAddr).To(Equal(":9000"))
			Expect(cfg.AuthToken).To(Equal("hunter2"))
			Expect(cfg.TrimPolicy).To(Equal("pinned"))
			Expect(cfg.MaxSessions).To(Equal(100))
			Expect(cfg.BackendTimeout).To(Equal(30 * time.Second))
			Expect(cfg.TextModel).To(Equal("llama3"))
		})

		It("rejects unknown keys", func() {
			path := filepath.Join(dir, "murmur.toml")
			writeFile(path, `max_histroy = 4`)

			_, err := config.Load(path)
			Expect(err).To(MatchError(ContainSubstring("max_histroy")))
		})

		It("fails for a missing file", func() {
			_, err := config.Load(filepath.Join(dir, "nope.toml"))
			Expect(err).To(HaveOccurred())
		})

		It("uses defaults without a file", func() {
			cfg, err := config.Load("")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.ListenAddr).NotTo(BeEmpty())
		})
	})

	Describe("ApplyEnv", func() {
		It("overrides fields from MURMUR_ variables", func() {
			cfg := config.Default()
			err := cfg.ApplyEnv(lookupFrom(map[string]string{
				"MURMUR_AUTH_TOKEN":      "from-env",
				"MURMUR_MAX_HISTORY":     "20",
				"MURMUR_BACKEND_TIMEOUT": "1m",
				"MURMUR_DEBUG":           "true",
			}))

			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.AuthToken).To(Equal("from-env"))
			Expect(cfg.MaxHistory).To(Equal(20))
			Expect(cfg.BackendTimeout).To(Equal(time.Minute))
			Expect(cfg.Debug).To(BeTrue())
		})

		It("rejects malformed numbers", func() {
			cfg := config.Default()
			err := cfg.ApplyEnv(lookupFrom(map[string]string{"MURMUR_MAX_SESSIONS": "lots"}))

			Expect(err).To(MatchError(ContainSubstring("MURMUR_MAX_SESSIONS")))
		})
	})

	Describe("LoadDotEnv", func() {
		It("ignores a missing file", func() {
			Expect(config.LoadDotEnv(filepath.Join(dir, ".env"))).To(Succeed())
		})

		It("exports variables from the file", func() {
			path := filepath.Join(dir, ".env")
			writeFile(path, "MURMUR_TEST_DOTENV=loaded\n")
			DeferCleanup(os.Unsetenv, "MURMUR_TEST_DOTENV")

			Expect(config.LoadDotEnv(path)).To(Succeed())
			Expect(os.Getenv("MURMUR_TEST_DOTENV")).To(Equal("loaded"))
		})
	})

	Describe("Validate", func() {
		It("rejects an empty auth token", func() {
			cfg := config.Default()
			cfg.AuthToken = ""

			Expect(cfg.Validate()).To(MatchError(ContainSubstring("auth_token")))
		})

		It("reports every problem at once", func() {
			cfg := config.Default()
			cfg.MaxHistory = 0
			cfg.TrimPolicy = "sideways"
			cfg.LogFormat = "xml"

			err := cfg.Validate()
			Expect(err).To(MatchError(ContainSubstring("max_history")))
			Expect(err).To(MatchError(ContainSubstring("sideways")))
			Expect(err).To(MatchError(ContainSubstring("xml")))
		})
	})

	Describe("Watch", func() {
		It("delivers reloaded configs", func() {
			path := filepath.Join(dir, "murmur.toml")
			writeFile(path, `auth_token = "one"`)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			changes := make(chan config.Config, 4)
			done := make(chan error, 1)
			go func() {
				done <- config.Watch(ctx, path, zap.NewNop(), func(c config.Config) { changes <- c })
			}()

			// Give the watcher time to register before writing.
			time.Sleep(100 * time.Millisecond)
			writeFile(path, `auth_token = "two"`)

			var got config.Config
			Eventually(changes, 5*time.Second).Should(Receive(&got))
			Expect(got.AuthToken).To(Equal("two"))

			cancel()
			Eventually(done, 2*time.Second).Should(Receive(BeNil()))
		})

		It("skips invalid edits", func() {
			path := filepath.Join(dir, "murmur.toml")
			writeFile(path, `auth_token = "one"`)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			changes := make(chan config.Config, 4)
			go func() {
				_ = config.Watch(ctx, path, zap.NewNop(), func(c config.Config) { changes <- c })
			}()

			time.Sleep(100 * time.Millisecond)
			writeFile(path, `auth_token = ""`)

			Consistently(changes, 500*time.Millisecond).ShouldNot(Receive())
		})
	})
})
