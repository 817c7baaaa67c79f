package validation

import (
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
)

const messageKey = "validated_message"

type Config struct {
	// Field is the form field carrying the chat message.
	Field               string
	MaxMessageLength    int
	AllowedContentTypes []string
	// Rejected renders an invalid submission. Defaults to a plain 400.
	Rejected func(c *fiber.Ctx, reason string) error
	Logger   *zap.Logger
}

// ChatMessage validates a chat form post and stores the cleaned message for
// Message. Empty, oversized and wrongly typed submissions never reach the
// handler.
func ChatMessage(cfg Config) fiber.Handler {
	if cfg.Field == "" {
		cfg.Field = "message"
	}
	if cfg.MaxMessageLength == 0 {
		cfg.MaxMessageLength = 2000
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{fiber.MIMEApplicationForm, fiber.MIMEMultipartForm}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Rejected == nil {
		cfg.Rejected = func(c *fiber.Ctx, reason string) error {
			return c.Status(fiber.StatusBadRequest).SendString(reason)
		}
	}

	return func(c *fiber.Ctx) error {
		if !allowedContentType(c.Get(fiber.HeaderContentType), cfg.AllowedContentTypes) {
			return c.Status(fiber.StatusUnsupportedMediaType).SendString("Unsupported content type")
		}

		message := sanitizeString(utils.CopyString(c.FormValue(cfg.Field)))
		if message == "" {
			return cfg.Rejected(c, "Please enter a message.")
		}
		if utf8.RuneCountInString(message) > cfg.MaxMessageLength {
			cfg.Logger.Warn("Chat message too long",
				zap.String("ip", c.IP()),
				zap.Int("length", utf8.RuneCountInString(message)),
			)
			return cfg.Rejected(c, "Message is too long.")
		}

		c.Locals(messageKey, message)
		return c.Next()
	}
}

// Message returns the message stored by ChatMessage.
func Message(c *fiber.Ctx) string {
	message, _ := c.Locals(messageKey).(string)
	return message
}

// FormPost rejects POST bodies that are not HTML form submissions.
func FormPost() fiber.Handler {
	allowed := []string{fiber.MIMEApplicationForm, fiber.MIMEMultipartForm}
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodPost && !allowedContentType(c.Get(fiber.HeaderContentType), allowed) {
			return c.Status(fiber.StatusUnsupportedMediaType).SendString("Unsupported content type")
		}
		return c.Next()
	}
}

func allowedContentType(contentType string, allowed []string) bool {
	if contentType == "" {
		return true
	}
	for _, allowedType := range allowed {
		if strings.HasPrefix(strings.ToLower(contentType), allowedType) {
			return true
		}
	}
	return false
}

func sanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	return strings.TrimSpace(input)
}
