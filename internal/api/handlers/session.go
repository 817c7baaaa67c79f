package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lewas-lab/chatbot/internal/session"
	"github.com/lewas-lab/chatbot/pkg/logger"
)

const stateKey = "session_state"

type SessionConfig struct {
	CookieName string
	Secure     bool
	TTL        time.Duration
	// AuthRequired is false when no identity provider is configured; new
	// sessions then start authenticated.
	AuthRequired bool
}

// Sessions attaches the caller's session to each request and persists it
// once the handler returns. Requests of one session are serialized.
type Sessions struct {
	store session.Store
	locks *session.Locks
	cfg   SessionConfig
}

func NewSessions(store session.Store, cfg SessionConfig) *Sessions {
	if cfg.CookieName == "" {
		cfg.CookieName = "lewas_session"
	}
	return &Sessions{
		store: store,
		locks: session.NewLocks(),
		cfg:   cfg,
	}
}

func (s *Sessions) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		state, unlock := s.acquire(ctx, utils.CopyString(c.Cookies(s.cfg.CookieName)))
		defer unlock()

		s.setCookie(c, state.ID)
		c.Locals(stateKey, state)

		err := c.Next()

		if saveErr := s.store.Save(ctx, state); saveErr != nil {
			logger.Error("Failed to save session",
				zap.String("session_id", state.ID),
				zap.Error(saveErr),
			)
		}
		return err
	}
}

// acquire locks and loads the session for id, or starts a new one when id is
// empty or unknown.
func (s *Sessions) acquire(ctx context.Context, id string) (*session.State, func()) {
	if id != "" {
		unlock := s.locks.Lock(id)
		state, err := s.store.Load(ctx, id)
		if err == nil {
			return state, unlock
		}
		unlock()
		if !errors.Is(err, session.ErrNotFound) {
			logger.Warn("Failed to load session", zap.String("session_id", id), zap.Error(err))
		}
	}

	state := session.New(uuid.NewString())
	state.Authenticated = !s.cfg.AuthRequired
	logger.Debug("Session started", zap.String("session_id", state.ID))
	return state, s.locks.Lock(state.ID)
}

// Update runs fn against the stored session id under its lock and saves the
// result. Used by long-lived connections that outlive a single request.
func (s *Sessions) Update(ctx context.Context, id string, fn func(*session.State) error) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	state, err := s.store.Load(ctx, id)
	if err != nil {
		return err
	}
	if err := fn(state); err != nil {
		return err
	}
	return s.store.Save(ctx, state)
}

// Renew moves the request's session to a fresh id and deletes the stored
// copy under the old one. The middleware saves the state under the new id.
func (s *Sessions) Renew(c *fiber.Ctx) {
	state := State(c)
	if state == nil {
		return
	}

	if err := s.store.Delete(c.UserContext(), state.ID); err != nil {
		logger.Warn("Failed to delete session", zap.String("session_id", state.ID), zap.Error(err))
	}
	state.ID = uuid.NewString()
	s.setCookie(c, state.ID)
}

func (s *Sessions) setCookie(c *fiber.Ctx, id string) {
	cookie := &fiber.Cookie{
		Name:     s.cfg.CookieName,
		Value:    id,
		Path:     "/",
		HTTPOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if s.cfg.TTL > 0 {
		cookie.Expires = time.Now().Add(s.cfg.TTL)
	}
	c.Cookie(cookie)
}

// State returns the session attached by Sessions.Middleware.
func State(c *fiber.Ctx) *session.State {
	state, _ := c.Locals(stateKey).(*session.State)
	return state
}

// redirectWithFlash stores a notice for the next page and redirects there.
func redirectWithFlash(c *fiber.Ctx, to string, kind session.FlashKind, text string) error {
	if state := State(c); state != nil && text != "" {
		state.SetFlash(kind, text)
	}
	return c.Redirect(to, fiber.StatusSeeOther)
}
