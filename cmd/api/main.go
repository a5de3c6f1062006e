package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/taskpilot/taskpilot/internal/actions"
	"github.com/taskpilot/taskpilot/internal/api"
	"github.com/taskpilot/taskpilot/internal/audit"
	"github.com/taskpilot/taskpilot/internal/auth"
	"github.com/taskpilot/taskpilot/internal/chat"
	"github.com/taskpilot/taskpilot/internal/config"
	"github.com/taskpilot/taskpilot/internal/database"
	"github.com/taskpilot/taskpilot/internal/events"
	mw "github.com/taskpilot/taskpilot/internal/middleware"
	inats "github.com/taskpilot/taskpilot/internal/nats"
	"github.com/taskpilot/taskpilot/internal/nlp"
	"github.com/taskpilot/taskpilot/internal/preferences"
	"github.com/taskpilot/taskpilot/internal/quota"
	iredis "github.com/taskpilot/taskpilot/internal/redis"
	"github.com/taskpilot/taskpilot/internal/server"
	"github.com/taskpilot/taskpilot/internal/tasks"
	"github.com/taskpilot/taskpilot/internal/users"
)

const migrationsPath = "migrations"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("validating config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.DB.DSN(), migrationsPath); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS is optional: without it the API still serves requests, but action
	// events are not streamed and audit logs are not persisted.
	natsClient, err := inats.NewClient(ctx, cfg.NATS)
	if err != nil {
		slog.Warn("connecting to nats, continuing without event streaming", "error", err)
		natsClient = nil
	} else {
		defer natsClient.Close()
	}

	// Auth
	jwtManager := auth.NewJWTManager(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)
	authSvc := auth.NewService(jwtManager, redisClient)
	userRepo := users.NewRepository(pool)
	userSvc := users.NewService(userRepo)
	authHandler := auth.NewHandler(authSvc, userSvc)

	// Tasks
	taskSvc := tasks.NewService(tasks.NewRepository(pool))
	taskHandler := tasks.NewHandler(taskSvc)

	// Quota
	quotaSvc := quota.NewService(quota.NewRepository(pool), cfg.AI)
	quotaHandler := quota.NewHandler(quotaSvc)

	// Preferences
	prefsSvc := preferences.NewService(preferences.NewRepository(pool), quotaSvc, cfg.AI)
	prefsHandler := preferences.NewHandler(prefsSvc)

	// Events
	hub := events.NewHub()
	var publisher *inats.Publisher
	if natsClient != nil {
		publisher = inats.NewPublisher(natsClient.JetStream())
	}
	notifier := events.NewActionNotifier(hub, publisher)

	// Action pipeline
	pipeline := actions.NewPipeline(actions.NewRepository(pool), taskSvc, cfg.AI, notifier)
	actionHandler := actions.NewHandler(pipeline)

	// Chat
	interpreter := nlp.NewRuleInterpreter()
	contexts := chat.NewContextStore(redisClient)
	chatSvc := chat.NewService(quotaSvc, pipeline, interpreter, contexts, prefsSvc, cfg.AI)
	chatHandler := chat.NewHandler(chatSvc, hub)

	// Audit
	auditRepo := audit.NewRepository(pool)
	auditHandler := audit.NewHandler(auditRepo)
	if natsClient != nil {
		consumer := audit.NewConsumer(auditRepo, inats.NewConsumerManager(natsClient.JetStream()))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("audit consumer stopped", "error", err)
			}
		}()
	}

	// Brute-force protection on the public auth endpoints.
	authLimiter := mw.NewRateLimiter(redisClient, 10, 60)

	router := api.NewRouter(pool, natsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		AuthRateLimiter:    authLimiter.Middleware,
	}, api.HandlerSet{
		Register: authHandler.Register,
		Login:    authHandler.Login,
		Refresh:  authHandler.Refresh,
		Logout:   authHandler.Logout,

		CreateTask:              taskHandler.Create,
		ListTasks:               taskHandler.List,
		GetTask:                 taskHandler.Get,
		UpdateTask:              taskHandler.Update,
		DeleteTask:              taskHandler.Delete,
		CompleteTask:            taskHandler.Complete,
		TaskOwnershipMiddleware: taskHandler.OwnershipMiddleware,

		Chat:       chatHandler.Chat,
		ChatEvents: chatHandler.Events,

		ListPendingActions: actionHandler.ListPending,
		GetAction:          actionHandler.Get,
		ConfirmAction:      actionHandler.Confirm,
		RejectAction:       actionHandler.Reject,

		GetQuota:      quotaHandler.Get,
		ListAuditLogs: auditHandler.List,

		GetPreferences:    prefsHandler.Get,
		UpdatePreferences: prefsHandler.Update,
		PutShortcut:       prefsHandler.PutShortcut,
		DeleteShortcut:    prefsHandler.DeleteShortcut,

		AuthMiddleware: auth.Middleware(authSvc),
	})

	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
