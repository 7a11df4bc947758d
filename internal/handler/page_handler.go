package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/prompt-arena/internal/dto"
	"github.com/noah-isme/prompt-arena/internal/scoring"
	"github.com/noah-isme/prompt-arena/internal/utils"
)

const indexPage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Prompt Arena</title></head>
<body>
<h1>Prompt Arena</h1>
<p>POST your entry to <code>/submit</code> and check <code>/leaderboard</code>.
Live rankings are pushed on <code>/ws</code>.</p>
</body>
</html>`

// PageHandler serves the landing page and the public challenge description.
type PageHandler struct {
	mode      scoring.Mode
	challenge scoring.Challenge
}

// NewPageHandler builds a page handler.
func NewPageHandler(mode scoring.Mode, challenge scoring.Challenge) *PageHandler {
	return &PageHandler{mode: mode, challenge: challenge}
}

// Register attaches the routes to the provided router group.
func (h *PageHandler) Register(router fiber.Router) {
	router.Get("/", h.index)
	router.Get("/challenge", h.describe)
}

func (h *PageHandler) index(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(indexPage)
}

// describe never includes the reference text.
func (h *PageHandler) describe(c *fiber.Ctx) error {
	return utils.SendSuccess(c, dto.ChallengeResponse{
		Mode:         string(h.mode),
		Title:        h.challenge.Title,
		Description:  h.challenge.Description,
		SourceText:   h.challenge.SourceText,
		SystemPrompt: h.challenge.SystemPrompt,
	})
}
