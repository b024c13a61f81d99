package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"internship_backend/database"
	"internship_backend/internal/auth"
	"internship_backend/internal/cache"
	"internship_backend/internal/config"
	"internship_backend/internal/email"
	"internship_backend/internal/handlers"
	"internship_backend/internal/logger"
	"internship_backend/internal/middleware"
	"internship_backend/internal/realtime"
	"internship_backend/internal/routes"
	"internship_backend/internal/services"
	"internship_backend/internal/validator"
	"internship_backend/internal/workers"
	"internship_backend/pkg/apperrors"
	"internship_backend/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)
	apperrors.SetDebug(cfg.Server.Env != "production")

	if cfg.JWT.Secret == "" {
		logger.Fatal("JWT secret is not configured (jwt.secret or JWT_SECRET)")
	}

	logger.Info("Connecting to database...", "driver", cfg.Database.Driver)
	gormDB, err := database.Open(cfg)
	if err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	if err := database.AutoMigrate(gormDB); err != nil {
		logger.Fatal("Failed to migrate database", "error", err)
	}
	logger.Info("Database connected")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ginRouter, cleanup := SetupRouter(ctx, cfg, gormDB)
	defer cleanup()

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              address,
		Handler:           ginRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info(fmt.Sprintf("🚀 Server starting on %s", address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server startup error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
}

// SetupRouter собирает сервисы, фоновые процессы и маршруты.
// Возвращаемая функция останавливает фоновые процессы.
func SetupRouter(ctx context.Context, cfg *config.Config, gormDB *gorm.DB) (*gin.Engine, func()) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// контейнер создается ниже; realtime и ws обращаются к нему только после старта
	var container *services.ServiceContainer

	// 1. WebSocket
	wsManager := ws.NewWebSocketManager(ws.ReadMarkerFunc(func(ctx context.Context, userID, conversationID string) error {
		return container.UnreadService.MarkConversationRead(gormDB.WithContext(ctx), userID, conversationID, nil)
	}))
	go wsManager.Run(ctx)

	// 2. Realtime dispatcher
	sinks := []realtime.Sink{realtime.NewWebSocketSink(wsManager)}
	var amqpSink *realtime.AMQPSink
	if cfg.Realtime.AMQPURL != "" {
		s, err := realtime.NewAMQPSink(cfg.Realtime.AMQPURL, cfg.Realtime.Exchange)
		if err != nil {
			logger.Warn("RabbitMQ unavailable, realtime fan-out is local only", "error", err)
		} else {
			amqpSink = s
			sinks = append(sinks, s)
			logger.Info("RabbitMQ realtime sink enabled", "exchange", cfg.Realtime.Exchange)
		}
	}
	dispatcher := realtime.NewDispatcher(cfg.Realtime.QueueSize, cfg.Realtime.Workers,
		realtime.ParticipantListerFunc(func(ctx context.Context, conversationID string) ([]string, error) {
			return container.ConversationService.ParticipantIDs(gormDB.WithContext(ctx), conversationID)
		}),
		sinks...,
	)

	// 3. Кэш счетчиков
	var unreadCache services.UnreadCache
	var closeRedis func() error
	if cfg.Redis.Addr != "" {
		rdb := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := cache.Ping(ctx, rdb); err != nil {
			logger.Warn("Redis unavailable, unread counters are not cached", "error", err)
			_ = rdb.Close()
		} else {
			unreadCache = cache.NewUnreadCache(rdb, cfg.Notifications.UnreadCacheTTL)
			closeRedis = rdb.Close
			logger.Info("Redis unread cache enabled", "addr", cfg.Redis.Addr)
		}
	}

	// 4. Email
	var sender email.Sender = email.LogSender{}
	if cfg.Email.SMTPHost != "" {
		sender = email.NewSMTPSender(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPUser, cfg.Email.SMTPPassword)
	} else {
		logger.Warn("SMTP is not configured, notification emails are only logged")
	}
	mailer := email.NewNotificationMailer(sender, cfg.Email.FromEmail, cfg.Email.FromName, cfg.Email.QueueSize)

	// 5. Сервисы
	container = services.NewServiceContainer(services.Collaborators{
		Publisher:   dispatcher,
		UnreadCache: unreadCache,
		Mailer:      mailer,
		Paging: services.Paging{
			DefaultPageSize: cfg.Paging.DefaultPageSize,
			MaxPageSize:     cfg.Paging.MaxPageSize,
		},
	})

	dispatcher.Start(ctx)
	mailer.Start(ctx)
	workers.NewNotificationRetentionWorker(
		gormDB,
		container.NotificationService,
		cfg.Notifications.RetentionDays,
		cfg.Notifications.SweepInterval,
	).Start(ctx)

	// 6. Хэндлеры
	tokens := auth.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.TTL)*time.Minute)
	authMiddleware := middleware.AuthMiddleware(tokens)
	appHandlers := initializeHandlers(cfg, container, gormDB, authMiddleware)

	// 7. Gin
	ginRouter := initializeGinRouter(cfg, gormDB)
	routes.RegisterRoutes(ginRouter, appHandlers, ws.NewWebSocketHandler(wsManager, cfg.CORS.AllowedOrigins), authMiddleware)

	cleanup := func() {
		dispatcher.Stop()
		mailer.Stop()
		if amqpSink != nil {
			amqpSink.Close()
		}
		if closeRedis != nil {
			_ = closeRedis()
		}
	}
	return ginRouter, cleanup
}

func initializeHandlers(cfg *config.Config, container *services.ServiceContainer, gormDB *gorm.DB, authMiddleware gin.HandlerFunc) *handlers.AppHandlers {
	baseHandler := handlers.NewBaseHandler(validator.New(), handlers.Paging{
		DefaultPageSize: cfg.Paging.DefaultPageSize,
		MaxPageSize:     cfg.Paging.MaxPageSize,
	}, authMiddleware)

	return &handlers.AppHandlers{
		NotificationHandler: handlers.NewNotificationHandler(
			baseHandler,
			container.NotificationService,
			container.PreferenceService,
			cfg.Notifications.RetentionDays,
		),
		ChatHandler: handlers.NewChatHandler(
			baseHandler,
			container.ConversationService,
			container.MessageService,
			container.UnreadService,
		),
		HealthHandler: handlers.NewHealthHandler(gormDB),
	}
}

func initializeGinRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	router.Use(middleware.DBMiddleware(db))
	return router
}
