package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"guest-snapper/config"
	"guest-snapper/internal/handler"
	"guest-snapper/internal/redis"
	"guest-snapper/internal/repository"
	"guest-snapper/internal/server"
	"guest-snapper/internal/services"
	"guest-snapper/internal/storage"
	"guest-snapper/internal/websocket"
	"guest-snapper/pkg/database"
	"guest-snapper/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	l := logger.New(cfg.LogMode)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if n, err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	} else if n > 0 {
		l.Infof("Applied %d migration(s)", n)
	}

	rdb, err := redis.Connect(ctx, redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer rdb.Close()

	store, err := storage.NewClient(ctx, storage.S3Config{
		Region:     cfg.S3Region,
		Bucket:     cfg.S3Bucket,
		AccessKey:  cfg.S3AccessKey,
		SecretKey:  cfg.S3SecretKey,
		Endpoint:   cfg.S3Endpoint,
		PublicBase: cfg.S3PublicBase,
		PresignTTL: cfg.S3PresignTTL,
		PartSize:   cfg.S3PartSize,
	})
	if err != nil {
		log.Fatalf("Failed to configure object storage: %v", err)
	}

	uploads := services.NewUploadService(store)
	go uploads.Run(ctx)

	media := services.NewMediaService(repository.NewMediaRepository(db))
	progress := services.NewProgressService(redis.NewPublisher(rdb))

	hub := websocket.NewHub()
	go hub.Run(ctx)

	bridge := websocket.NewRedisBridge(redis.NewSubscriber(rdb), hub, l)
	go func() {
		if err := bridge.Run(ctx); err != nil {
			l.Logger.Error("progress bridge stopped", zap.Error(err))
		}
	}()

	limiter := redis.NewRateLimiter(rdb, redis.RateLimitConfig{
		UploadLimit:  cfg.UploadRateLimit,
		UploadWindow: cfg.UploadRateWindow,
	})

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Upload:    handler.NewUploadHandler(uploads, uploads),
		Media:     handler.NewMediaHandler(media),
		Progress:  handler.NewProgressHandler(progress),
		WebSocket: websocket.NewHandler(hub, l),
	}, limiter, map[string]server.HealthCheck{
		"postgres": database.HealthCheck,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})

	if err := srv.Run(ctx); err != nil {
		l.Errorf("server error: %s", err)
		os.Exit(1)
	}
}
