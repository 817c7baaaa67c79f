package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lewas-lab/chatbot/internal/api"
	"github.com/lewas-lab/chatbot/internal/api/handlers"
	"github.com/lewas-lab/chatbot/internal/auth"
	"github.com/lewas-lab/chatbot/internal/awsclient"
	"github.com/lewas-lab/chatbot/internal/chat"
	"github.com/lewas-lab/chatbot/internal/feedback"
	"github.com/lewas-lab/chatbot/internal/metrics"
	"github.com/lewas-lab/chatbot/internal/queryapi"
	"github.com/lewas-lab/chatbot/internal/session"
	"github.com/lewas-lab/chatbot/internal/storage/sqlite"
	"github.com/lewas-lab/chatbot/pkg/circuitbreaker"
	"github.com/lewas-lab/chatbot/pkg/config"
	appLogger "github.com/lewas-lab/chatbot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting LEWAS Lab chatbot")
	metrics.Init()

	ctx := context.Background()
	sessionTTL := time.Duration(cfg.Session.TTLMin) * time.Minute
	readyChecks := map[string]api.ReadyCheck{}

	var store session.Store
	if cfg.Redis.Enabled {
		redisClient, err := session.ConnectRedis(ctx, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		redisStore := session.NewRedisStore(redisClient, sessionTTL)
		defer redisStore.Close()

		readyChecks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
		store = redisStore
	} else {
		memoryStore := session.NewMemoryStore(sessionTTL)
		go sampleSessions(memoryStore)
		store = memoryStore
	}

	var (
		turnLog     chat.TurnLog
		feedbackLog feedback.Log
	)
	if cfg.SQLite.Enabled {
		sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
		if err != nil {
			appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
		}
		defer sqliteClient.Close()

		if err := sqliteClient.InitSchema(); err != nil {
			appLogger.Fatal("Failed to initialize schema", zap.Error(err))
		}
		turnLog, feedbackLog = sqliteClient, sqliteClient
	}

	health := queryapi.Health{}
	for _, route := range []queryapi.Route{queryapi.RouteRetrieval, queryapi.RouteSmartQuery} {
		breaker := circuitbreaker.New(string(route), circuitbreaker.Config{
			OpenTimeout:      30 * time.Second,
			FailureThreshold: 5,
			Logger:           appLogger.GetLogger(),
			OnStateChange: func(name string, _, to circuitbreaker.State) {
				metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			},
		})
		metrics.BreakerState.WithLabelValues(string(route)).Set(float64(circuitbreaker.StateClosed))
		readyChecks["query_api_"+string(route)] = func(context.Context) error {
			if breaker.State() == circuitbreaker.StateOpen {
				return circuitbreaker.ErrCircuitOpen
			}
			return nil
		}
		health[route] = breaker
	}

	queryClient := queryapi.NewClient(queryapi.Config{
		BaseURL:         cfg.API.BaseURL,
		KeyHeader:       cfg.API.KeyHeader,
		Classify:        queryapi.Endpoint{Path: cfg.API.ClassifyPath, APIKey: cfg.API.ClassifyKey},
		Retrieval:       queryapi.Endpoint{Path: cfg.API.RetrievalPath, APIKey: cfg.API.RetrievalKey},
		SmartQuery:      queryapi.Endpoint{Path: cfg.API.SmartQueryPath, APIKey: cfg.API.SmartQueryKey},
		ClassifyTimeout: time.Duration(cfg.API.ClassifyTimeoutSec) * time.Second,
		AnswerTimeout:   time.Duration(cfg.API.AnswerTimeoutSec) * time.Second,
	}, health)

	var classifier chat.Classifier
	if cfg.API.ClassifyEnabled {
		classifier = queryClient
	}
	turnHandler := chat.NewHandler(classifier, queryClient, turnLog)

	var writer feedback.Writer
	if cfg.DynamoDB.Enabled {
		dynamoClient, err := awsclient.NewDynamoDB(ctx, cfg.DynamoDB.Region, cfg.DynamoDB.Endpoint)
		if err != nil {
			appLogger.Fatal("Failed to create DynamoDB client", zap.Error(err))
		}
		writer = feedback.NewRecorder(dynamoClient, cfg.DynamoDB.Table, cfg.DynamoDB.KeyAttribute, cfg.DynamoDB.LikedAttribute)
	}
	feedbackService := feedback.NewService(writer, feedbackLog)

	var authenticator handlers.Authenticator
	if cfg.Cognito.Enabled {
		cognitoClient, err := awsclient.NewCognito(ctx, cfg.Cognito.Region)
		if err != nil {
			appLogger.Fatal("Failed to create Cognito client", zap.Error(err))
		}
		authenticator = auth.NewGateway(cognitoClient, cfg.Cognito.ClientID, cfg.Cognito.ClientSecret)
		appLogger.Info("Cognito sign-in enabled",
			zap.String("region", cfg.Cognito.Region),
			zap.String("user_pool_id", cfg.Cognito.UserPoolID),
		)
	} else {
		appLogger.Warn("Cognito disabled: every session is signed in")
	}

	server, err := api.New(api.Options{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
		Store:        store,
		Session: handlers.SessionConfig{
			CookieName: cfg.Session.CookieName,
			Secure:     cfg.Session.SecureCookie,
			TTL:        sessionTTL,
		},
		Auth:                 authenticator,
		Turns:                turnHandler,
		Feedback:             feedbackService,
		MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
		AllowedOrigins:       cfg.Security.AllowedOrigins,
		Development:          cfg.Security.Development,
		AccessLog:            cfg.Security.Development,
		ReadyChecks:          readyChecks,
	})
	if err != nil {
		appLogger.Fatal("Failed to build HTTP server", zap.Error(err))
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := server.App.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	if err := server.Shutdown(); err != nil {
		appLogger.Error("Server shutdown failed", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}

func sampleSessions(store *session.MemoryStore) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		metrics.SessionsActive.Set(float64(store.Len()))
	}
}
