package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"memory_promo/internal/bot"
	"memory_promo/internal/config"
	"memory_promo/internal/db"
	httpServer "memory_promo/internal/http"
	"memory_promo/internal/http/handlers"
	"memory_promo/internal/http/middleware"
	"memory_promo/internal/logger"
	"memory_promo/internal/metrics"
	"memory_promo/internal/repository"
	"memory_promo/internal/service"
	"memory_promo/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Version устанавливается при сборке
var Version = "dev"

func main() {
	cfg := config.Load()

	// Инициализация структурированного логгера
	logger.Init(cfg.LogLevel, cfg.JSONLogs())
	log := logger.Get()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}

	m := metrics.New(nil)

	// Хранилище победителей
	var (
		winners repository.WinnerStore
		events  service.EventCounter
		audit   *service.AuditService
		ping    func(ctx context.Context) error
		rdb     *redis.Client
	)
	switch cfg.StoreDriver {
	case config.StorePostgres:
		dbPool := db.Connect(cfg.DatabaseURL)
		defer dbPool.Close()

		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := db.Migrate(migrateCtx, dbPool); err != nil {
			cancel()
			logger.Fatal("migration failed", "error", err)
		}
		cancel()

		auditRepo := repository.NewAuditRepository(dbPool)
		winners = repository.NewWinnerRepository(dbPool)
		events = auditRepo
		audit = service.NewAuditService(auditRepo)
		ping = dbPool.Ping
	case config.StoreRedis:
		rdb = connectRedis(cfg.RedisURL)
		defer rdb.Close()
		winners = repository.NewRedisWinnerStore(rdb)
		ping = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	default:
		log.Warn("using in-memory winner store, winners are lost on restart")
		winners = repository.NewMemoryWinnerStore()
	}
	log.Info("winner store ready", "driver", cfg.StoreDriver, "collection", cfg.WinnersCollection)

	// Лимит создания сессий: через Redis, если он настроен
	if rdb == nil && cfg.RedisURL != "" {
		rdb = connectRedis(cfg.RedisURL)
		defer rdb.Close()
	}
	limiter := middleware.NewRateLimiter(rdb, cfg.RateLimitPerMinute, time.Minute)
	limiter.OnLimited = m.RateLimited.Inc

	tokens, err := service.NewTokenService(cfg.JWTSecret, cfg.SessionTokenTTL)
	if err != nil {
		logger.Fatal("failed to init token service", "error", err)
	}

	// hub создается после бота: бот получает число сессий через замыкание
	var hub *ws.Hub
	activeSessions := func() int {
		if hub == nil {
			return 0
		}
		return hub.Count()
	}

	// Запуск админ бота ПЕРЕД HTTP сервером чтобы уведомления о победителях были подключены
	var (
		adminBot *bot.AdminBot
		notifier service.WinnerNotifier
	)
	if cfg.AdminBotEnabled && len(cfg.AdminTelegramIDs) > 0 {
		adminService := service.NewAdminService(winners, events, activeSessions, cfg.WinnersCollection)
		adminBot, err = bot.NewAdminBot(cfg.BotToken, adminService, cfg.AdminTelegramIDs)
		if err != nil {
			log.Error("failed to start admin bot", "error", err)
		} else {
			go adminBot.Start()
			notifier = adminBot
			log.Info("admin bot started", "admin_ids", cfg.AdminTelegramIDs)
		}
	}

	hub = ws.NewHub(ws.HubDeps{
		Session:    cfg.SessionConfig(),
		Store:      service.NewTimedStore(winners, m),
		Recorder:   service.NewEventRecorder(m, audit, notifier, cfg.WinnersCollection),
		Metrics:    m,
		SessionTTL: cfg.SessionTokenTTL,
	})

	r := gin.Default()
	httpServer.RegisterRoutes(r, httpServer.RouterDeps{
		Handler: &handlers.Handler{
			Tokens:  tokens,
			Rules:   cfg.Rules,
			Version: Version,
			Ping:    ping,
			Active:  hub.Count,
		},
		WS:            ws.NewWSHandler(hub, tokens, cfg.AllowedOrigin),
		RateLimiter:   limiter,
		AllowedOrigin: cfg.AllowedOrigin,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		log.Info("server started", "port", cfg.AppPort, "version", Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Плавная остановка бота
	if adminBot != nil {
		adminBot.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// HTTP сервер не закрывает hijacked websocket соединения, их закрывает hub
	if err := hub.Shutdown(ctx); err != nil {
		log.Warn("sessions did not close in time", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}

func connectRedis(url string) *redis.Client {
	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.Fatal("invalid REDIS_URL", "error", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to redis", "error", err)
	}
	return rdb
}
