package handlers

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/lewas-lab/chatbot/internal/chat"
	"github.com/lewas-lab/chatbot/internal/middleware/ratelimit"
	"github.com/lewas-lab/chatbot/internal/session"
	"github.com/lewas-lab/chatbot/pkg/logger"
)

const sessionIDKey = "ws_session_id"

var errSignedOut = errors.New("session is no longer signed in")

// Limiter is the per-key budget shared with the form endpoints.
type Limiter interface {
	Allow(key string) bool
}

type inboundMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type turnMessage struct {
	Type    string `json:"type"`
	Index   int    `json:"index"`
	Content string `json:"content"`
	Detail  string `json:"detail"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// WebSocketHandler runs chat turns over a websocket for the signed-in
// session that opened it. Each message loads, updates and saves the
// session under its lock, exactly like a form post.
type WebSocketHandler struct {
	sessions         *Sessions
	turns            TurnRunner
	limiter          Limiter
	maxMessageLength int
}

// NewWebSocketHandler takes an optional limiter; each query spends one token
// from the session's bucket.
func NewWebSocketHandler(sessions *Sessions, turns TurnRunner, limiter Limiter, maxMessageLength int) *WebSocketHandler {
	if maxMessageLength <= 0 {
		maxMessageLength = 2000
	}
	return &WebSocketHandler{
		sessions:         sessions,
		turns:            turns,
		limiter:          limiter,
		maxMessageLength: maxMessageLength,
	}
}

// Upgrade admits websocket upgrades from authenticated sessions only.
func (h *WebSocketHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	state := State(c)
	if state == nil || !state.Authenticated {
		return c.Status(fiber.StatusUnauthorized).SendString(loginRequired)
	}
	c.Locals(sessionIDKey, state.ID)
	return c.Next()
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	sessionID, _ := c.Locals(sessionIDKey).(string)
	logger.Info("WebSocket connection established", zap.String("session_id", sessionID))

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed", zap.String("session_id", sessionID))
	}()

	for {
		var msg inboundMessage
		if err := c.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("Failed to read WebSocket message", zap.Error(err))
			}
			return
		}

		if msg.Type != "query" {
			continue
		}

		content := strings.TrimSpace(strings.ReplaceAll(msg.Content, "\x00", ""))
		if content == "" {
			continue
		}
		if utf8.RuneCountInString(content) > h.maxMessageLength {
			h.sendError(c, "Message is too long.")
			continue
		}
		if h.limiter != nil && !h.limiter.Allow(ratelimit.SessionKey(sessionID)) {
			logger.Warn("WebSocket rate limit exceeded", zap.String("session_id", sessionID))
			h.sendError(c, rateLimitedMessage)
			continue
		}

		reply, err := h.runTurn(sessionID, content)
		if err != nil {
			logger.Error("Failed to process WebSocket turn", zap.String("session_id", sessionID), zap.Error(err))
			h.sendError(c, "Your session has expired. Please reload the page.")
			return
		}
		if err := c.WriteJSON(reply); err != nil {
			logger.Warn("Failed to write WebSocket reply", zap.Error(err))
			return
		}
	}
}

func (h *WebSocketHandler) runTurn(sessionID, content string) (*turnMessage, error) {
	var reply *turnMessage
	err := h.sessions.Update(context.Background(), sessionID, func(state *session.State) error {
		if !state.Authenticated {
			return errSignedOut
		}
		result := h.turns.HandleTurn(context.Background(), state, content)
		reply = &turnMessage{
			Type:    "turn",
			Index:   result.Index,
			Content: result.Content,
			Detail:  string(chat.FormatDetail(result.Detail)),
		}
		return nil
	})
	return reply, err
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, text string) {
	if err := c.WriteJSON(errorMessage{Type: "error", Error: text}); err != nil {
		logger.Warn("Failed to write WebSocket error", zap.Error(err))
	}
}
