// Package gateway serves the chat and history HTTP API in front of an
// inference backend, keeping a rolling per-session history in memory.
package gateway

import (
	"context"
	"errors"
	"net"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/papercomputeco/murmur/pkg/auth"
	"github.com/papercomputeco/murmur/pkg/llm"
	"github.com/papercomputeco/murmur/pkg/session"
	"github.com/papercomputeco/murmur/pkg/transcript"
)

// Backend generates an assistant reply for a message sequence.
type Backend interface {
	Chat(ctx context.Context, model string, messages []llm.Message) (string, error)
}

// Gateway is the HTTP front end. It owns no state of its own beyond wiring:
// histories live in the session.Store it is given.
type Gateway struct {
	config   Config
	store    *session.Store
	gate     *auth.Gate
	backend  Backend
	recorder *transcript.Recorder
	tracer   trace.Tracer
	logger   *zap.Logger
	server   *fiber.App
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithRecorder archives every completed exchange.
func WithRecorder(r *transcript.Recorder) Option {
	return func(g *Gateway) { g.recorder = r }
}

// WithTracer traces backend calls.
func WithTracer(t trace.Tracer) Option {
	return func(g *Gateway) { g.tracer = t }
}

// New creates a Gateway and registers its routes.
func New(config Config, store *session.Store, gate *auth.Gate, backend Backend, logger *zap.Logger, opts ...Option) (*Gateway, error) {
	if store == nil || gate == nil || backend == nil {
		return nil, errors.New("gateway requires a store, a gate and a backend")
	}

	g := &Gateway{
		config:  config,
		store:   store,
		gate:    gate,
		backend: backend,
		tracer:  noop.NewTracerProvider().Tracer(""),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(g)
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		BodyLimit:             config.bodyLimit(),
	})

	// Browser clients are served from other origins.
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
	}))

	app.Post("/chat", g.handleChat)
	app.Get("/history/:session_id", g.handleHistory)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]any{"status": "ok", "sessions": g.store.Len()})
	})

	if config.StaticDir != "" {
		app.Static("/static", config.StaticDir)
	}

	app.All("/mcp", g.requireAuth, adaptor.HTTPHandler(g.mcpHandler()))

	if g.recorder != nil {
		app.Get("/transcripts/:hash", g.requireAuth, g.handleTranscript)
	}

	g.server = app
	return g, nil
}

// Run starts the gateway on the configured listen address.
func (g *Gateway) Run() error {
	g.logger.Info("starting gateway",
		zap.String("listen", g.config.ListenAddr),
		zap.String("text_model", g.config.TextModel),
		zap.String("vision_model", g.config.VisionModel),
	)

	return g.server.Listen(g.config.ListenAddr)
}

// RunWithListener serves on an existing listener.
func (g *Gateway) RunWithListener(ln net.Listener) error {
	g.logger.Info("starting gateway", zap.String("listen", ln.Addr().String()))
	return g.server.Listener(ln)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (g *Gateway) Shutdown(ctx context.Context) error {
	return g.server.ShutdownWithContext(ctx)
}

// Close releases resources held by optional components.
func (g *Gateway) Close() error {
	if g.recorder != nil {
		return g.recorder.Close()
	}
	return nil
}

// requireAuth rejects requests without the shared secret.
func (g *Gateway) requireAuth(c *fiber.Ctx) error {
	if err := g.gate.Check(c.Get(auth.Header)); err != nil {
		return g.writeError(c, err)
	}
	return c.Next()
}
