package servecmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/murmur/gateway"
	"github.com/papercomputeco/murmur/pkg/auth"
	"github.com/papercomputeco/murmur/pkg/config"
	"github.com/papercomputeco/murmur/pkg/logger"
	"github.com/papercomputeco/murmur/pkg/ollama"
	"github.com/papercomputeco/murmur/pkg/session"
	"github.com/papercomputeco/murmur/pkg/telemetry"
	"github.com/papercomputeco/murmur/pkg/transcript"
)

const serveLongDesc string = `Run the murmur gateway.

Settings come from built-in defaults, then the TOML file given with
--config, then the .env file and MURMUR_* environment variables, then
flags. While running, edits to the config file update the auth token
and the system prompt used for new sessions.

Examples:
  murmur serve
  murmur serve --config murmur.toml --transcript-db ~/.murmur/transcripts.db
  MURMUR_AUTH_TOKEN=s3cret murmur serve --listen :9000`

const serveShortDesc string = "Run the chat gateway"

const shutdownTimeout = 10 * time.Second

type serveCommander struct {
	configPath string
	envFile    string
	version    string

	listen       string
	ollamaURL    string
	textModel    string
	visionModel  string
	staticDir    string
	transcriptDB string
	logFormat    string
	debug        bool
	ping         bool
}

// NewServeCmd returns the serve command. version is reported in telemetry
// and by the MCP endpoint.
func NewServeCmd(version string) *cobra.Command {
	return newServeCmd(&serveCommander{version: version})
}

func newServeCmd(cmder *serveCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to a TOML config file")
	cmd.Flags().StringVar(&cmder.envFile, "env-file", ".env", "Path to a .env file")
	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", config.DefaultListenAddr, "Address to listen on")
	cmd.Flags().StringVar(&cmder.ollamaURL, "ollama-url", config.DefaultOllamaURL, "Ollama server URL")
	cmd.Flags().StringVar(&cmder.textModel, "text-model", config.DefaultTextModel, "Model for turns without an image")
	cmd.Flags().StringVar(&cmder.visionModel, "vision-model", config.DefaultVisionModel, "Model for turns with an image")
	cmd.Flags().StringVar(&cmder.staticDir, "static-dir", "", "Directory served under /static")
	cmd.Flags().StringVar(&cmder.transcriptDB, "transcript-db", "", `Archive exchanges to a SQLite file, or "memory"`)
	cmd.Flags().StringVar(&cmder.logFormat, "log-format", logger.FormatConsole, "Log format: console or json")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")
	cmd.Flags().BoolVar(&cmder.ping, "ping", true, "Check Ollama and the configured models at startup")

	return cmd
}

// loadConfig resolves the effective configuration. Flags override the file
// and the environment only when given explicitly.
func (c *serveCommander) loadConfig(cmd *cobra.Command) (config.Config, error) {
	if err := config.LoadDotEnv(c.envFile); err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	strs := map[string]struct {
		dst *string
		val string
	}{
		"listen":        {&cfg.ListenAddr, c.listen},
		"ollama-url":    {&cfg.OllamaURL, c.ollamaURL},
		"text-model":    {&cfg.TextModel, c.textModel},
		"vision-model":  {&cfg.VisionModel, c.visionModel},
		"static-dir":    {&cfg.StaticDir, c.staticDir},
		"transcript-db": {&cfg.TranscriptDB, c.transcriptDB},
		"log-format":    {&cfg.LogFormat, c.logFormat},
	}
	for name, f := range strs {
		if flags.Changed(name) {
			*f.dst = f.val
		}
	}
	if flags.Changed("debug") {
		cfg.Debug = c.debug
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *serveCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := logger.NewLogger(cfg.Debug, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracing, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    "murmur",
		ServiceVersion: c.version,
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       true,
	})
	if err != nil {
		return fmt.Errorf("could not set up tracing: %w", err)
	}
	defer func() {
		if err := tracing.Shutdown(context.Background()); err != nil {
			log.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	backend := ollama.NewClient(cfg.OllamaURL, cfg.BackendTimeout, log)
	if c.ping {
		if err := backend.Ping(ctx, cfg.TextModel, cfg.VisionModel); err != nil {
			// Ollama may come up after the gateway; turns fail until it does.
			log.Warn("ollama check failed", zap.String("url", cfg.OllamaURL), zap.Error(err))
		}
	}

	gw, store, gate, err := c.buildGateway(cfg, backend, log, tracing)
	if err != nil {
		return err
	}
	defer func() {
		if err := gw.Close(); err != nil {
			log.Warn("failed to close transcript archive", zap.Error(err))
		}
	}()

	if cfg.AuthToken == config.DefaultAuthToken {
		log.Warn("using the default auth token, set auth_token or MURMUR_AUTH_TOKEN")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(gw.Run)

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down gateway")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return gw.Shutdown(shutdownCtx)
	})

	if c.configPath != "" {
		g.Go(func() error {
			return config.Watch(gctx, c.configPath, log, func(next config.Config) {
				gate.SetSecret(next.AuthToken)
				store.SetDirective(next.SystemPrompt)
			})
		})
	}

	return g.Wait()
}

// buildGateway wires the session store, auth gate, archive and tracer into
// a gateway for cfg.
func (c *serveCommander) buildGateway(cfg config.Config, backend gateway.Backend, log *zap.Logger, tracing *telemetry.Provider) (*gateway.Gateway, *session.Store, *auth.Gate, error) {
	policy, err := session.ParseTrimPolicy(cfg.TrimPolicy)
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := session.NewStore(session.Options{
		Directive:   cfg.SystemPrompt,
		MaxHistory:  cfg.MaxHistory,
		Policy:      policy,
		MaxSessions: cfg.MaxSessions,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("could not create session store: %w", err)
	}

	gate := auth.NewGate(cfg.AuthToken)

	opts := []gateway.Option{gateway.WithTracer(tracing.Tracer())}
	recorder, err := openRecorder(cfg.TranscriptDB, log)
	if err != nil {
		return nil, nil, nil, err
	}
	if recorder != nil {
		opts = append(opts, gateway.WithRecorder(recorder))
	}

	gw, err := gateway.New(gateway.Config{
		ListenAddr:    cfg.ListenAddr,
		TextModel:     cfg.TextModel,
		VisionModel:   cfg.VisionModel,
		MaxImageBytes: cfg.MaxImageBytes,
		StaticDir:     cfg.StaticDir,
		Version:       c.version,
	}, store, gate, backend, log, opts...)
	if err != nil {
		return nil, nil, nil, errors.Join(err, closeRecorder(recorder))
	}

	return gw, store, gate, nil
}

// openRecorder returns nil when the archive is disabled.
func openRecorder(db string, log *zap.Logger) (*transcript.Recorder, error) {
	switch db {
	case "":
		return nil, nil
	case config.TranscriptMemory:
		log.Info("archiving transcripts in memory")
		return transcript.NewRecorder(transcript.NewMemoryStorer(), log), nil
	default:
		storer, err := transcript.NewSQLiteStorer(db)
		if err != nil {
			return nil, fmt.Errorf("could not open transcript archive %s: %w", db, err)
		}
		log.Info("archiving transcripts", zap.String("path", db))
		return transcript.NewRecorder(storer, log), nil
	}
}

func closeRecorder(r *transcript.Recorder) error {
	if r == nil {
		return nil
	}
	return r.Close()
}
