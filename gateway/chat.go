package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/papercomputeco/murmur/pkg/dataurl"
	"github.com/papercomputeco/murmur/pkg/llm"
	"github.com/papercomputeco/murmur/pkg/telemetry"
)

// handleChat runs one chat turn for the session named in the body.
func (g *Gateway) handleChat(c *fiber.Ctx) error {
	var req llm.ChatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		g.logger.Debug("failed to parse request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	reply, err := g.Chat(c.UserContext(), req)
	if err != nil {
		return g.writeError(c, err)
	}

	return c.JSON(llm.ChatResponse{Response: reply})
}

// Chat appends a user turn to the session, asks the backend for a reply and
// stores it. The session is created on first use and stays locked for the
// whole turn, backend call included, so concurrent turns on one session are
// applied one after another.
//
// Image bytes never outlive the call: once the backend has answered (or
// failed) the stored user message drops them and gains an "[Image]" marker.
// A backend failure leaves the user turn in place without a reply.
func (g *Gateway) Chat(ctx context.Context, req llm.ChatRequest) (string, error) {
	if req.SessionID == "" {
		return "", fmt.Errorf("%w: session_id is required", ErrInvalidRequest)
	}

	user := llm.Message{Role: llm.RoleUser, Content: req.UserContent()}
	if req.HasImage() {
		img, err := dataurl.Decode(req.ImageBase64, g.config.MaxImageBytes)
		if err != nil {
			g.logger.Info("rejected image payload",
				zap.String("session_id", req.SessionID),
				zap.Error(err),
			)
			return "", err
		}
		user.Image = img
	}

	sess := g.store.GetOrCreate(req.SessionID)
	sess.Lock()
	defer sess.Unlock()

	sess.Append(user)

	model := g.config.modelFor(user.HasImage())
	messages := sess.Messages()

	g.logger.Debug("received chat turn",
		zap.String("session_id", req.SessionID),
		zap.String("model", model),
		zap.Int("message_count", len(messages)),
		zap.Int("image_bytes", len(user.Image)),
		zap.String("content_preview", truncate(user.Content, 50)),
	)

	startTime := time.Now()
	reply, err := g.callBackend(ctx, model, messages)
	sess.ReleaseImages()
	if err != nil {
		g.logger.Error("model call failed",
			zap.String("session_id", req.SessionID),
			zap.String("model", model),
			zap.Duration("duration", time.Since(startTime)),
			zap.Error(err),
		)
		return "", ErrBackendFailure
	}

	assistant := llm.Message{Role: llm.RoleAssistant, Content: reply}
	sess.Append(assistant)

	g.logger.Info("chat turn complete",
		zap.String("session_id", req.SessionID),
		zap.String("model", model),
		zap.Int("history_len", sess.Len()),
		zap.Duration("duration", time.Since(startTime)),
	)

	if g.recorder != nil {
		user.ReleaseImage()
		head, err := g.recorder.Record(ctx, llm.Turn{
			SessionID: req.SessionID,
			Model:     model,
			User:      user,
			Assistant: assistant,
			Duration:  time.Since(startTime),
		})
		if err != nil {
			// The reply is already stored; archiving is best effort.
			g.logger.Error("failed to archive turn", zap.Error(err))
		} else {
			g.logger.Debug("turn archived", zap.String("head_hash", truncate(head, 16)))
		}
	}

	return reply, nil
}

func (g *Gateway) callBackend(ctx context.Context, model string, messages []llm.Message) (string, error) {
	ctx, span := g.tracer.Start(ctx, "backend.chat", trace.WithAttributes(
		attribute.String("murmur.model", model),
		attribute.Int("murmur.message_count", len(messages)),
	))

	reply, err := g.backend.Chat(ctx, model, messages)
	telemetry.EndSpan(span, err)
	return reply, err
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
