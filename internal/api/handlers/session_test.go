package handlers

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewas-lab/chatbot/internal/session"
)

func sessionApp(sessions *Sessions) *fiber.App {
	app := fiber.New()
	app.Use(sessions.Middleware())
	app.Get("/", func(c *fiber.Ctx) error {
		state := State(c)
		state.AppendUser("seen")
		return c.SendString(state.ID)
	})
	return app
}

func sessionCookie(t *testing.T, app *fiber.App, cookie string) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/", nil)
	if cookie != "" {
		req.Header.Set("Cookie", "sid="+cookie)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	for _, c := range resp.Cookies() {
		if c.Name == "sid" {
			assert.True(t, c.HttpOnly)
			return c.Value
		}
	}
	t.Fatal("no session cookie")
	return ""
}

func TestSessionsReuseKnownCookie(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	app := sessionApp(NewSessions(store, SessionConfig{CookieName: "sid", AuthRequired: true}))

	id := sessionCookie(t, app, "")
	assert.Equal(t, id, sessionCookie(t, app, id))

	state, err := store.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, state.Messages, 2)
	assert.False(t, state.Authenticated)
}

func TestSessionsReplaceUnknownCookie(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	app := sessionApp(NewSessions(store, SessionConfig{CookieName: "sid"}))

	id := sessionCookie(t, app, "forged")
	assert.NotEqual(t, "forged", id)

	state, err := store.Load(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, state.Authenticated, "sessions start signed in without an identity provider")
}

func TestSessionsUpdate(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	sessions := NewSessions(store, SessionConfig{})
	ctx := context.Background()

	err := sessions.Update(ctx, "missing", func(*session.State) error { return nil })
	assert.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, store.Save(ctx, session.New("s1")))
	require.NoError(t, sessions.Update(ctx, "s1", func(s *session.State) error {
		s.AppendUser("hi")
		return nil
	}))

	state, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, state.Messages, 1)
}
