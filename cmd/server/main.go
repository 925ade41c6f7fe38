package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/vantrack/fleetsync-go/internal/api"
	"github.com/vantrack/fleetsync-go/internal/config"
	"github.com/vantrack/fleetsync-go/internal/database"
	"github.com/vantrack/fleetsync-go/internal/handler"
	"github.com/vantrack/fleetsync-go/internal/normalizer"
	"github.com/vantrack/fleetsync-go/internal/observability"
	"github.com/vantrack/fleetsync-go/internal/repository"
	"github.com/vantrack/fleetsync-go/internal/service"
	"github.com/vantrack/fleetsync-go/internal/vendorapi"
	"github.com/vantrack/fleetsync-go/internal/worker"
)

func main() {
	// 加载配置
	cfg := config.Load()
	logger := observability.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 初始化数据库
	if err := database.Init(database.Config{Path: cfg.DBPath}); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.Close()

	db := database.GetDB()
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Redis: shared rate-limiter state across worker instances
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to connect to redis:", err)
	}
	defer rdb.Close()

	// Repositories
	positionRepo := repository.NewPositionRepository(db)
	tripRepo := repository.NewTripRepository(db)
	checkpointRepo := repository.NewCheckpointRepository(db)
	eventRepo := repository.NewEventRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// Vendor client behind the shared limiter
	limiter := vendorapi.NewLimiter(rdb, cfg.RateLimit)
	client := vendorapi.NewClient(cfg.Vendor, cfg.RateLimit, limiter)

	// Services
	positionSvc := service.NewPositionService(positionRepo, cfg.Position)
	eventSvc := service.NewEventService(eventRepo, positionRepo, cfg.Sync.EventCooldown)
	syncSvc := service.NewSyncService(client, normalizer.Normalize,
		tripRepo, positionRepo, checkpointRepo, positionSvc, eventSvc, cfg.Sync)
	reconcileSvc := service.NewReconcileService(tripRepo, positionRepo, reportRepo,
		cfg.Sync.BackfillWindow)

	// Background sync + metrics
	scheduler := worker.NewScheduler(syncSvc, cfg.Sync.Interval)
	go scheduler.Start(ctx)
	go observability.StartMetricsServer(cfg.MetricsPort)

	// 初始化路由
	router := api.SetupRouter(api.Handlers{
		Sync:      handler.NewSyncHandler(syncSvc, cfg.Vendor.DisplayUTCOffsetHours),
		Reconcile: handler.NewReconcileHandler(reconcileSvc),
		Trips:     handler.NewTripHandler(tripRepo),
		Devices:   handler.NewDeviceHandler(positionRepo, eventRepo),
	})

	// 启动服务器
	logger.Info("server starting", "port", cfg.Port, "devices", len(cfg.Sync.Devices))
	if err := router.Run(cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
