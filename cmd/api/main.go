package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"github.com/hszk-dev/gostream/internal/api/handler"
	"github.com/hszk-dev/gostream/internal/api/middleware"
	"github.com/hszk-dev/gostream/internal/auth"
	"github.com/hszk-dev/gostream/internal/config"
	"github.com/hszk-dev/gostream/internal/events"
	"github.com/hszk-dev/gostream/internal/infrastructure/blobstore"
	"github.com/hszk-dev/gostream/internal/infrastructure/cache"
	"github.com/hszk-dev/gostream/internal/infrastructure/postgres"
	"github.com/hszk-dev/gostream/internal/sse"
	"github.com/hszk-dev/gostream/internal/transcoder"
	"github.com/hszk-dev/gostream/internal/usecase"
)

// eventBusCapacity bounds the in-process channel between the Status
// Updater's commit hook and the SSE dispatcher goroutine.
const eventBusCapacity = 256

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	pgClient, err := postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Database.DSN()))
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pgClient.Close()
	logger.Info("connected to PostgreSQL")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("connected to Redis")

	originalStore, err := blobstore.NewClient(cfg.Blob.StoragePath)
	if err != nil {
		return fmt.Errorf("failed to init original blob store: %w", err)
	}
	processedStore, err := blobstore.NewClient(cfg.Blob.StorageProcessedPath)
	if err != nil {
		return fmt.Errorf("failed to init processed blob store: %w", err)
	}
	tempStore, err := blobstore.NewClient(cfg.Blob.StorageTempPath)
	if err != nil {
		return fmt.Errorf("failed to init temp blob store: %w", err)
	}
	logger.Info("blob stores ready",
		slog.String("originals", originalStore.Root()),
		slog.String("processed", processedStore.Root()),
		slog.String("temp", tempStore.Root()),
	)

	jwtSecret, err := cfg.Auth.JWTSecret()
	if err != nil {
		return fmt.Errorf("failed to decode JWT secret: %w", err)
	}
	tokenIssuer, err := auth.NewTokenIssuer(jwtSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTExpiration)
	if err != nil {
		return fmt.Errorf("failed to init token issuer: %w", err)
	}
	passwordHasher := auth.NewBcryptHasher(0)

	videoRepo := postgres.NewVideoRepository(pgClient.Pool())
	userRepo := postgres.NewUserRepository(pgClient.Pool())
	videoUoW := postgres.NewVideoUnitOfWork(pgClient.Pool())
	videoCache := cache.NewRedisVideoCache(redisClient)

	bus := events.NewBus(eventBusCapacity)
	statusUpdater := usecase.NewStatusUpdater(videoUoW, bus, videoCache)

	registry := sse.NewRegistry()
	dispatcher := sse.NewDispatcher(bus, registry)
	go dispatcher.Run(ctx)
	go runHeartbeat(ctx, registry, cfg.SSE.HeartbeatInterval)

	ffmpeg := transcoder.NewFFmpegTranscoder(transcoder.FFmpegConfig{
		FFmpegPath: cfg.FFmpeg.BinaryPath,
	})
	pool := usecase.NewWorkerPool(ctx, cfg.Worker.PoolSize)
	orchestrator := usecase.NewProcessingOrchestrator(
		videoRepo, originalStore, tempStore, processedStore,
		ffmpeg, statusUpdater, pool, cfg.FFmpeg.TimeoutSeconds,
	)

	videoSvc := usecase.NewVideoService(
		videoRepo, originalStore, processedStore,
		statusUpdater, orchestrator,
		usecase.VideoServiceConfig{MaxUploadBytes: cfg.Blob.MaxUploadBytes()},
	)
	cachedVideoSvc := usecase.NewCachedVideoService(videoSvc, videoRepo, videoCache, usecase.DefaultCachedVideoServiceConfig())

	userSvc := usecase.NewUserService(userRepo, passwordHasher, tokenIssuer, cfg.Auth.JWTExpiration)

	videoHandler := handler.NewVideoHandler(cachedVideoSvc)
	authHandler := handler.NewAuthHandler(userSvc, cfg.App.FrontendBaseURL, int(cfg.Auth.JWTExpiration.Seconds()))
	sseHandler := handler.NewSSEHandler(registry, cfg.SSE.EmitterTimeout)

	r := setupRouter(logger, cfg.CORS, tokenIssuer, userRepo, videoHandler, authHandler, sseHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	registry.Shutdown()
	cancel()
	if err := pool.Wait(); err != nil {
		logger.Warn("worker pool returned error on shutdown", "error", err)
	}

	logger.Info("server stopped")
	return nil
}

// runHeartbeat periodically broadcasts an SSE keep-alive comment to every
// live emitter until ctx is cancelled, per spec.md §4.D.
func runHeartbeat(ctx context.Context, registry *sse.Registry, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			registry.SendHeartbeat()
		}
	}
}

func setupRouter(
	logger *slog.Logger,
	corsCfg config.CORSConfig,
	tokenIssuer *auth.TokenIssuer,
	userRepo *postgres.UserRepository,
	videoHandler *handler.VideoHandler,
	authHandler *handler.AuthHandler,
	sseHandler *handler.SSEHandler,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   corsCfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	r.Get("/health", handler.Health)

	authGate := middleware.Auth(tokenIssuer, userRepo)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Get("/verify-email", authHandler.VerifyEmail)
			r.Post("/resend-verification", authHandler.ResendVerification)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(authGate)

			r.Get("/sse/subscribe", sseHandler.Subscribe)

			r.Route("/videos", func(r chi.Router) {
				r.Post("/", videoHandler.Upload)
				r.Get("/", videoHandler.List)
				r.Get("/{publicId}", videoHandler.Get)
				r.Put("/{publicId}", videoHandler.UpdateDescription)
				r.Post("/{publicId}/process", videoHandler.TriggerProcess)
				r.Delete("/{publicId}", videoHandler.Delete)
				r.Get("/{publicId}/download", videoHandler.DownloadProcessed)
				r.Get("/{publicId}/download/original", videoHandler.DownloadOriginal)
			})
		})
	})

	return r
}
