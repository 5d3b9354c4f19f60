package gateway

import (
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/murmur/pkg/auth"
	"github.com/papercomputeco/murmur/pkg/llm"
)

// handleHistory returns the non-system messages of a session.
func (g *Gateway) handleHistory(c *fiber.Ctx) error {
	history, err := g.History(c.Params("session_id"), c.Get(auth.Header))
	if err != nil {
		return g.writeError(c, err)
	}

	return c.JSON(llm.HistoryResponse{History: history})
}

// History checks token, then returns the session's messages without the
// system directive. Unknown sessions yield an empty list and are not created.
func (g *Gateway) History(sessionID, token string) ([]llm.Message, error) {
	if err := g.gate.Check(token); err != nil {
		return nil, err
	}
	return g.conversation(sessionID), nil
}

func (g *Gateway) conversation(sessionID string) []llm.Message {
	sess, ok := g.store.Get(sessionID)
	if !ok {
		return []llm.Message{}
	}

	sess.Lock()
	defer sess.Unlock()
	return sess.Conversation()
}
