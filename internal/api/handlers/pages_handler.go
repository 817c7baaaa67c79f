package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lewas-lab/chatbot/internal/api/views"
)

const pageTitle = "LEWAS Lab Chatbot"

type PagesHandler struct {
	authEnabled bool
}

func NewPagesHandler(authEnabled bool) *PagesHandler {
	return &PagesHandler{authEnabled: authEnabled}
}

// Home shows the account forms. Signed-in sessions go straight to the chat.
func (h *PagesHandler) Home(c *fiber.Ctx) error {
	state := State(c)
	if state.Authenticated {
		return c.Redirect("/chat", fiber.StatusSeeOther)
	}

	return c.Render("home", views.Page{
		Title:         pageTitle,
		Flash:         state.TakeFlash(),
		AuthEnabled:   h.authEnabled,
		Tab:           views.ValidTab(c.Query("tab")),
		PasswordRules: views.PasswordRuleLabels(),
	})
}

func (h *PagesHandler) Chat(c *fiber.Ctx) error {
	state := State(c)

	page := views.Page{
		Title:         pageTitle,
		Flash:         state.TakeFlash(),
		AuthEnabled:   h.authEnabled,
		Authenticated: state.Authenticated,
		Username:      state.Username,
	}
	if state.Authenticated {
		page.Messages = views.Transcript(state)
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Render("chat", page)
}
