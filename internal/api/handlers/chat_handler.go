package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/lewas-lab/chatbot/internal/chat"
	"github.com/lewas-lab/chatbot/internal/middleware/validation"
	"github.com/lewas-lab/chatbot/internal/session"
)

const loginRequired = "Please log in to access the chatbot."

type TurnRunner interface {
	HandleTurn(ctx context.Context, state *session.State, utterance string) chat.TurnResult
}

type Rater interface {
	Rate(ctx context.Context, state *session.State, index int, liked bool) bool
}

// ChatHandler serves the chat form posts. Each post mutates the session and
// redirects to GET /chat, which renders the result.
type ChatHandler struct {
	turns    TurnRunner
	feedback Rater
}

func NewChatHandler(turns TurnRunner, feedback Rater) *ChatHandler {
	return &ChatHandler{turns: turns, feedback: feedback}
}

func (h *ChatHandler) Send(c *fiber.Ctx) error {
	state := State(c)
	if !state.Authenticated {
		return redirectWithFlash(c, "/chat", session.FlashWarning, loginRequired)
	}

	h.turns.HandleTurn(c.UserContext(), state, validation.Message(c))
	return c.Redirect("/chat", fiber.StatusSeeOther)
}

func (h *ChatHandler) Clear(c *fiber.Ctx) error {
	State(c).ClearChat()
	return c.Redirect("/chat", fiber.StatusSeeOther)
}

// Feedback records a thumbs-up or thumbs-down for the message at :index.
// Repeat votes and invalid indexes are ignored.
func (h *ChatHandler) Feedback(c *fiber.Ctx) error {
	state := State(c)
	if !state.Authenticated {
		return redirectWithFlash(c, "/chat", session.FlashWarning, loginRequired)
	}

	index, err := c.ParamsInt("index")
	if err != nil {
		return c.Redirect("/chat", fiber.StatusSeeOther)
	}
	liked, err := strconv.ParseBool(c.FormValue("liked"))
	if err != nil {
		return c.Redirect("/chat", fiber.StatusSeeOther)
	}

	h.feedback.Rate(c.UserContext(), state, index, liked)
	return c.Redirect("/chat", fiber.StatusSeeOther)
}

// MessageRejected is the validation failure page for chat posts. Empty posts
// are dropped silently.
func MessageRejected(c *fiber.Ctx, reason string) error {
	if strings.TrimSpace(c.FormValue("message")) == "" {
		return c.Redirect("/chat", fiber.StatusSeeOther)
	}
	return redirectWithFlash(c, "/chat", session.FlashError, reason)
}

const rateLimitedMessage = "Too many requests. Please wait a moment and try again."

// RateLimited sends the caller back to the page they came from with a notice.
func RateLimited(c *fiber.Ctx) error {
	to := "/chat"
	if strings.HasPrefix(c.Path(), "/auth/") {
		to = "/"
	}
	return redirectWithFlash(c, to, session.FlashError, rateLimitedMessage)
}
