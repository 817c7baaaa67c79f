package api

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/lewas-lab/chatbot/internal/api/handlers"
	"github.com/lewas-lab/chatbot/internal/api/views"
	"github.com/lewas-lab/chatbot/internal/metrics"
	"github.com/lewas-lab/chatbot/internal/middleware/ratelimit"
	"github.com/lewas-lab/chatbot/internal/middleware/security"
	"github.com/lewas-lab/chatbot/internal/middleware/validation"
	"github.com/lewas-lab/chatbot/internal/session"
	"github.com/lewas-lab/chatbot/pkg/logger"
)

const maxMessageLength = 2000

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimit    int

	Store   session.Store
	Session handlers.SessionConfig

	// Auth is nil when sign-in is disabled.
	Auth     handlers.Authenticator
	Turns    handlers.TurnRunner
	Feedback handlers.Rater

	MaxRequestsPerMinute int
	AllowedOrigins       []string
	Development          bool
	AccessLog            bool

	ReadyChecks map[string]ReadyCheck
}

// Server is the fiber app plus the background resources it owns.
type Server struct {
	App     *fiber.App
	limiter *ratelimit.RateLimiter
}

func New(opts Options) (*Server, error) {
	engine := views.New()
	if err := engine.Load(); err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		BodyLimit:             opts.BodyLimit,
		Views:                 engine,
		DisableStartupMessage: true,
		// request strings end up in sessions that outlive the request
		Immutable: true,
	})

	app.Use(recover.New())
	if opts.AccessLog {
		app.Use(fiberlogger.New())
	}
	if len(opts.AllowedOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins: strings.Join(opts.AllowedOrigins, ", "),
			AllowHeaders: "Origin, Content-Type, Accept",
			AllowMethods: "GET, POST, OPTIONS",
		}))
	}
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: opts.AllowedOrigins,
		IsDevelopment:  opts.Development,
	}))

	app.Use("/static", filesystem.New(filesystem.Config{
		Root:   views.Static(),
		MaxAge: 3600,
	}))

	apiGroup := app.Group("/api/v1")
	apiGroup.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})
	apiGroup.Get("/ready", readyHandler(opts.ReadyChecks))
	app.Get("/metrics", metrics.MetricsHandler())

	sessions := handlers.NewSessions(opts.Store, handlers.SessionConfig{
		CookieName:   opts.Session.CookieName,
		Secure:       opts.Session.Secure,
		TTL:          opts.Session.TTL,
		AuthRequired: opts.Auth != nil,
	})
	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: opts.MaxRequestsPerMinute,
		CookieName:           opts.Session.CookieName,
		Exceeded:             handlers.RateLimited,
		Logger:               logger.GetLogger(),
	})

	pages := handlers.NewPagesHandler(opts.Auth != nil)
	chatHandler := handlers.NewChatHandler(opts.Turns, opts.Feedback)
	wsHandler := handlers.NewWebSocketHandler(sessions, opts.Turns, limiter, maxMessageLength)

	web := app.Group("", sessions.Middleware(), validation.FormPost())

	web.Get("/", pages.Home)
	web.Get("/chat", pages.Chat)
	web.Post("/chat", limiter.Middleware(), validation.ChatMessage(validation.Config{
		MaxMessageLength: maxMessageLength,
		Rejected:         handlers.MessageRejected,
		Logger:           logger.GetLogger(),
	}), chatHandler.Send)
	web.Post("/chat/clear", chatHandler.Clear)
	web.Post("/chat/feedback/:index", chatHandler.Feedback)
	web.Get("/ws/chat", wsHandler.Upgrade, websocket.New(wsHandler.HandleConnection))

	if opts.Auth != nil {
		authHandler := handlers.NewAuthHandler(opts.Auth, sessions)
		authGroup := web.Group("/auth", limiter.Middleware())
		authGroup.Post("/login", authHandler.Login)
		authGroup.Post("/signup", authHandler.SignUp)
		authGroup.Post("/confirm", authHandler.ConfirmSignUp)
		authGroup.Post("/resend", authHandler.ResendConfirmation)
		authGroup.Post("/forgot", authHandler.ForgotPassword)
		authGroup.Post("/reset", authHandler.ConfirmForgotPassword)
		authGroup.Post("/logout", authHandler.Logout)
	}

	logger.Info("HTTP routes registered", zap.Bool("auth_enabled", opts.Auth != nil))
	return &Server{App: app, limiter: limiter}, nil
}

func (s *Server) Shutdown() error {
	s.limiter.Stop()
	return s.App.Shutdown()
}

func readyHandler(checks map[string]ReadyCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		failed := fiber.Map{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "not_ready",
				"checks": failed,
			})
		}
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	}
}
