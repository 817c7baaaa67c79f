package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"github.com/lewas-lab/chatbot/internal/api/views"
	"github.com/lewas-lab/chatbot/internal/auth"
	"github.com/lewas-lab/chatbot/internal/session"
	"github.com/lewas-lab/chatbot/pkg/logger"
	"github.com/lewas-lab/chatbot/pkg/utils"
)

type Authenticator interface {
	SignUp(ctx context.Context, in auth.SignUpInput) auth.Result
	ConfirmSignUp(ctx context.Context, username, code string) auth.Result
	ResendConfirmation(ctx context.Context, username string) auth.Result
	Login(ctx context.Context, username, password string) auth.Result
	ForgotPassword(ctx context.Context, username string) auth.Result
	ConfirmForgotPassword(ctx context.Context, in auth.ResetInput) auth.Result
}

// AuthHandler turns the account forms into gateway calls. Every outcome is
// reported as a flash notice on the page the user lands on next.
type AuthHandler struct {
	gateway  Authenticator
	sessions *Sessions
}

func NewAuthHandler(gateway Authenticator, sessions *Sessions) *AuthHandler {
	return &AuthHandler{gateway: gateway, sessions: sessions}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	username := fiberutils.CopyString(c.FormValue("username"))
	res := h.gateway.Login(c.UserContext(), username, c.FormValue("password"))
	if !res.OK() {
		return redirectWithFlash(c, tabURL(views.TabLogin), session.FlashError, res.Message)
	}

	state := State(c)
	h.sessions.Renew(c)
	state.Login(username, res.Tokens.AccessToken, res.Tokens.IDToken)
	logger.Info("Session authenticated",
		zap.String("session_id", state.ID),
		zap.String("user", utils.HashString(username)),
	)
	return c.Redirect("/chat", fiber.StatusSeeOther)
}

func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	res := h.gateway.SignUp(c.UserContext(), auth.SignUpInput{
		Username:        c.FormValue("username"),
		Email:           c.FormValue("email"),
		Name:            c.FormValue("name"),
		Password:        c.FormValue("password"),
		ConfirmPassword: c.FormValue("confirm_password"),
	})
	return h.respond(c, res, views.TabConfirm, views.TabSignUp)
}

func (h *AuthHandler) ConfirmSignUp(c *fiber.Ctx) error {
	res := h.gateway.ConfirmSignUp(c.UserContext(), c.FormValue("username"), c.FormValue("code"))
	return h.respond(c, res, views.TabLogin, views.TabConfirm)
}

func (h *AuthHandler) ResendConfirmation(c *fiber.Ctx) error {
	res := h.gateway.ResendConfirmation(c.UserContext(), c.FormValue("username"))
	return h.respond(c, res, views.TabConfirm, views.TabConfirm)
}

func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	res := h.gateway.ForgotPassword(c.UserContext(), c.FormValue("username"))
	return h.respond(c, res, views.TabReset, views.TabForgot)
}

func (h *AuthHandler) ConfirmForgotPassword(c *fiber.Ctx) error {
	res := h.gateway.ConfirmForgotPassword(c.UserContext(), auth.ResetInput{
		Username:        c.FormValue("username"),
		Code:            c.FormValue("code"),
		Password:        c.FormValue("password"),
		ConfirmPassword: c.FormValue("confirm_password"),
	})
	return h.respond(c, res, views.TabLogin, views.TabReset)
}

// Logout drops the tokens and the transcript and retires the session id.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	state := State(c)
	state.Logout()
	state.ClearChat()
	h.sessions.Renew(c)
	return c.Redirect("/", fiber.StatusSeeOther)
}

func (h *AuthHandler) respond(c *fiber.Ctx, res auth.Result, successTab, failureTab string) error {
	if res.OK() {
		return redirectWithFlash(c, tabURL(successTab), session.FlashSuccess, res.Message)
	}
	return redirectWithFlash(c, tabURL(failureTab), session.FlashError, res.Message)
}

func tabURL(tab string) string {
	return "/?tab=" + tab
}
