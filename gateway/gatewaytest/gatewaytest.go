// Package gatewaytest runs a real gateway over a scripted backend for tests of
// the command line clients.
package gatewaytest

import (
	"context"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/papercomputeco/murmur/gateway"
	"github.com/papercomputeco/murmur/pkg/auth"
	"github.com/papercomputeco/murmur/pkg/llm"
	"github.com/papercomputeco/murmur/pkg/session"
)

// Token is the auth secret of every test server.
const Token = "test-token"

// EchoBackend replies with the last user message prefixed by "echo: ". It
// records the model of every call.
type EchoBackend struct {
	mu     sync.Mutex
	err    error
	models []string
}

// Fail makes every following call return err.
func (b *EchoBackend) Fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

// Chat implements gateway.Backend.
func (b *EchoBackend) Chat(_ context.Context, model string, messages []llm.Message) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.models = append(b.models, model)
	if b.err != nil {
		return "", b.err
	}
	last := messages[len(messages)-1]
	return fmt.Sprintf("echo: %s", last.Content), nil
}

// Models returns the model used for each call so far.
func (b *EchoBackend) Models() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.models...)
}

// Server is a running gateway.
type Server struct {
	URL     string
	Backend *EchoBackend
	Store   *session.Store

	gw *gateway.Gateway
}

// Start serves a gateway on a loopback port.
func Start() (*Server, error) {
	store, err := session.NewStore(session.Options{Directive: "You are a test assistant."})
	if err != nil {
		return nil, err
	}

	backend := &EchoBackend{}
	gw, err := gateway.New(gateway.Config{
		TextModel:     "text-model",
		VisionModel:   "vision-model",
		MaxImageBytes: 1 << 20,
	}, store, auth.NewGate(Token), backend, zap.NewNop())
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	go func() {
		_ = gw.RunWithListener(ln)
	}()

	return &Server{
		URL:     "http://" + ln.Addr().String(),
		Backend: backend,
		Store:   store,
		gw:      gw,
	}, nil
}

// Close stops the server.
func (s *Server) Close() {
	_ = s.gw.Shutdown(context.Background())
}
