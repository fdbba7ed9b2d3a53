// Command worker is an operational tool, not a long-running service: it
// drives a single video through the Processing Orchestrator synchronously,
// for the recovery path spec.md §4.E describes ("FAILED is not terminal
// forever; a client may re-request processing"). There is no cross-process
// queue to consume from — the API server already runs the orchestrator
// in-process on its own worker pool; this binary exists for operators who
// need to force a re-process outside of the HTTP surface (e.g. after fixing
// a bad FFmpeg binary on the host).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/hszk-dev/gostream/internal/config"
	"github.com/hszk-dev/gostream/internal/domain/model"
	"github.com/hszk-dev/gostream/internal/events"
	"github.com/hszk-dev/gostream/internal/infrastructure/blobstore"
	"github.com/hszk-dev/gostream/internal/infrastructure/postgres"
	"github.com/hszk-dev/gostream/internal/transcoder"
	"github.com/hszk-dev/gostream/internal/usecase"
)

// reprocessEventBusCapacity only needs to hold the handful of events a
// single reprocess run emits; there is no dispatcher draining it here.
const reprocessEventBusCapacity = 8

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	publicIDFlag := flag.String("public-id", "", "public ID of the video to reprocess (required)")
	mute := flag.Bool("mute", false, "strip audio")
	targetHeight := flag.Int("height", 0, "target resolution height (0 = keep original)")
	timeout := flag.Duration("timeout", 0, "override ffmpeg.timeout.seconds for this run (0 = use config)")
	flag.Parse()

	if *publicIDFlag == "" {
		flag.Usage()
		return fmt.Errorf("--public-id is required")
	}
	publicID, err := uuid.Parse(*publicIDFlag)
	if err != nil {
		return fmt.Errorf("invalid --public-id: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pgClient, err := postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Database.DSN()))
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pgClient.Close()

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

	ffmpegTimeout := cfg.FFmpeg.TimeoutSeconds
	if *timeout > 0 {
		ffmpegTimeout = *timeout
	}

	videoRepo := postgres.NewVideoRepository(pgClient.Pool())
	videoUoW := postgres.NewVideoUnitOfWork(pgClient.Pool())
	bus := events.NewBus(reprocessEventBusCapacity)
	statusUpdater := usecase.NewStatusUpdater(videoUoW, bus, nil)

	ffmpeg := transcoder.NewFFmpegTranscoder(transcoder.FFmpegConfig{FFmpegPath: cfg.FFmpeg.BinaryPath})
	pool := usecase.NewWorkerPool(ctx, 1)
	orchestrator := usecase.NewProcessingOrchestrator(
		videoRepo, originalStore, tempStore, processedStore,
		ffmpeg, statusUpdater, pool, ffmpegTimeout,
	)

	video, err := videoRepo.FindByPublicID(ctx, publicID)
	if err != nil {
		return fmt.Errorf("find video: %w", err)
	}

	var height *int
	if *targetHeight > 0 {
		height = targetHeight
	}
	opts, err := model.NewEditOptions(nil, nil, *mute, height)
	if err != nil {
		return fmt.Errorf("build edit options: %w", err)
	}

	logger.Info("reprocessing video", slog.String("public_id", publicID.String()), slog.Int64("video_id", video.ID))

	if _, err := statusUpdater.ToProcessing(ctx, video.ID); err != nil {
		return fmt.Errorf("transition to PROCESSING: %w", err)
	}

	orchestrator.Enqueue(video.ID, *opts)
	if err := pool.Wait(); err != nil {
		return fmt.Errorf("reprocess job failed: %w", err)
	}

	final, err := videoRepo.FindByID(ctx, video.ID)
	if err != nil {
		return fmt.Errorf("reload video after reprocess: %w", err)
	}
	logger.Info("reprocess finished", slog.String("status", string(final.Status)))

	drainEvents(bus)
	return nil
}

// drainEvents logs whatever the status updater published so the operator
// sees the same transitions an SSE subscriber would have received; nothing
// in this binary consumes the bus otherwise.
func drainEvents(bus *events.Bus) {
	events := bus.Subscribe()
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			slog.Info("status event", slog.String("status", string(e.Status)), slog.String("message", e.Message))
		default:
			return
		}
	}
}

