package gateway

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/murmur/pkg/llm"
)

type chatToolInput struct {
	SessionID   string `json:"session_id" jsonschema:"identifier of the conversation to continue or start"`
	Message     string `json:"message,omitempty" jsonschema:"user text; defaults to asking for an image analysis"`
	ImageBase64 string `json:"image_base64,omitempty" jsonschema:"optional image as a data URL"`
}

type chatToolOutput struct {
	Response string `json:"response"`
}

type historyToolInput struct {
	SessionID string `json:"session_id" jsonschema:"identifier of the conversation"`
}

type historyEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type historyToolOutput struct {
	History []historyEntry `json:"history"`
}

// newMCPServer exposes the chat and history operations as MCP tools.
// Callers reach it through /mcp, which sits behind the auth gate.
func (g *Gateway) newMCPServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "murmur",
		Version: g.config.Version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "chat",
		Description: "Send a message, optionally with an image, to a conversation and return the model's reply.",
	}, g.chatTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "history",
		Description: "Return the user and assistant messages of a conversation, oldest first.",
	}, g.historyTool)

	return server
}

func (g *Gateway) mcpHandler() http.Handler {
	server := g.newMCPServer()
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{Stateless: true})
}

func (g *Gateway) chatTool(ctx context.Context, _ *mcp.CallToolRequest, in chatToolInput) (*mcp.CallToolResult, chatToolOutput, error) {
	reply, err := g.Chat(ctx, toChatRequest(in))
	if err != nil {
		return nil, chatToolOutput{}, err
	}
	return nil, chatToolOutput{Response: reply}, nil
}

func (g *Gateway) historyTool(_ context.Context, _ *mcp.CallToolRequest, in historyToolInput) (*mcp.CallToolResult, historyToolOutput, error) {
	messages := g.conversation(in.SessionID)

	out := historyToolOutput{History: make([]historyEntry, len(messages))}
	for i, m := range messages {
		out.History[i] = historyEntry{Role: m.Role.String(), Content: m.Content}
	}
	return nil, out, nil
}

func toChatRequest(in chatToolInput) llm.ChatRequest {
	return llm.ChatRequest{
		SessionID:   in.SessionID,
		Message:     in.Message,
		ImageBase64: in.ImageBase64,
	}
}
