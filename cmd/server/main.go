package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"cargo_miniapp/internal/config"
	"cargo_miniapp/internal/handler"
	"cargo_miniapp/internal/middleware"
	"cargo_miniapp/internal/notify"
	"cargo_miniapp/internal/push"
	"cargo_miniapp/internal/repository"
	"cargo_miniapp/internal/service"
	"cargo_miniapp/pkg/logger"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	appLogger := logger.New(cfg.Log.Level)

	// Подключение к PostgreSQL
	dbPool, err := pgxpool.New(context.Background(), cfg.Database.DSN)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", "error", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		appLogger.Fatal("Failed to ping database", "error", err)
	}
	appLogger.Info("Database connection established")

	// Подключение к Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		appLogger.Fatal("Failed to connect to Redis", "error", err)
	}
	appLogger.Info("Redis connection established")

	// Telegram-бот для уведомлений (опционален)
	var notifier service.Notifier
	if tgNotifier, err := notify.New(cfg.Telegram.BotToken, appLogger); err != nil {
		appLogger.Fatal("Failed to init telegram notifier", "error", err)
	} else if tgNotifier != nil {
		notifier = tgNotifier
	}

	// Реестр push-подключений
	pushSrv := push.NewServer(appLogger)

	// Инициализация репозиториев и сервисов
	repos := repository.NewRepositories(dbPool, rdb, appLogger)
	services := service.NewServices(repos, pushSrv, notifier, cfg, appLogger)

	// Инициализация middleware
	authMiddleware := middleware.NewAuthMiddleware(services.Auth, appLogger)
	telegramMiddleware := middleware.NewTelegramMiddleware(cfg.Telegram.BotToken, appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, appLogger)

	// Инициализация handlers
	handlers := handler.NewHandlers(services, pushSrv, cfg, appLogger)

	// Настройка роутера
	router := setupRouter(handlers, authMiddleware, telegramMiddleware, rateLimitMiddleware, cfg, appLogger)

	// Запуск HTTP сервера
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		appLogger.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exited")
}

func setupRouter(
	handlers *handler.Handlers,
	authMiddleware *middleware.AuthMiddleware,
	telegramMiddleware *middleware.TelegramMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler())

	// Health check
	router.GET("/health", handlers.Health.Check)

	api := router.Group("/api")
	{
		// Публичные endpoints
		auth := api.Group("/auth")
		{
			auth.POST("/user-otp-auth", rateLimitMiddleware.Limit("otp", 10, time.Minute), handlers.Auth.OTPAuth)
			auth.POST("/refresh", handlers.Auth.RefreshToken)
			auth.POST("/telegram", authMiddleware.RequireAuth(), telegramMiddleware.RequireInitData(), handlers.Auth.LinkTelegram)
			auth.GET("/get-user-information", authMiddleware.RequireAuth(), handlers.User.GetInfo)
		}

		api.PATCH("/users/update", authMiddleware.RequireAuth(), handlers.User.Update)

		// Защищенные endpoints
		user := api.Group("/user")
		user.Use(authMiddleware.RequireAuth())
		{
			user.GET("/orders", handlers.Order.List)
			user.GET("/orders/:id", handlers.Order.GetByID)
			user.GET("/sellers/:id", handlers.Order.GetSeller)

			user.POST("/chats", handlers.Chat.Create)

			user.GET("/messages", handlers.Message.List)
			user.POST("/messages", rateLimitMiddleware.Limit("messages", 30, time.Minute), handlers.Message.Send)

			user.GET("/payments", handlers.Payment.List)
			user.GET("/payments/export", handlers.Payment.Export)

			user.GET("/comments", handlers.Comment.List)
			user.POST("/comments", handlers.Comment.Create)
		}
	}

	// WebSocket endpoint push-канала
	router.GET("/ws", handlers.WebSocket.Handle)

	return router
}
