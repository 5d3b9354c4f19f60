package gateway

import (
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/murmur/pkg/transcript"
)

// TranscriptResponse is an archived chain, oldest message first.
type TranscriptResponse struct {
	HeadHash string             `json:"head_hash"`
	Depth    int                `json:"depth"`
	Nodes    []*transcript.Node `json:"nodes"`
}

// handleTranscript returns the archived chain ending at :hash.
func (g *Gateway) handleTranscript(c *fiber.Ctx) error {
	hash := c.Params("hash")

	chain, err := transcript.Ancestry(c.UserContext(), g.recorder.Storer(), hash)
	if err != nil {
		return g.writeError(c, err)
	}

	return c.JSON(TranscriptResponse{
		HeadHash: hash,
		Depth:    len(chain),
		Nodes:    chain,
	})
}
