package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/gostream/internal/domain/model"
	"github.com/hszk-dev/gostream/internal/domain/repository"
	"github.com/hszk-dev/gostream/internal/infrastructure/blobstore"
	"github.com/hszk-dev/gostream/internal/infrastructure/metrics"
	"github.com/hszk-dev/gostream/internal/transcoder"
)

// ProcessingOrchestrator runs the single-attempt edit pipeline of spec.md §4.E:
// copy the original into a scratch area, run FFmpeg against real filesystem
// paths, promote the result into the processed store, and transition status.
// There is no retry and no requeue; a failure here is terminal for the job
// and surfaces as the video's FAILED status, except a failed final READY
// transition, which is only logged and leaves the row's status as it is.
type ProcessingOrchestrator struct {
	videoRepo      repository.VideoRepository
	originalStore  repository.ObjectStorage
	tempStore      *blobstore.Client
	processedStore *blobstore.Client
	transcoder     transcoder.Transcoder
	statusUpdater  *StatusUpdater
	pool           *WorkerPool
	timeout        time.Duration
}

// NewProcessingOrchestrator creates a ProcessingOrchestrator. timeout bounds
// each FFmpeg invocation (config.FFmpegConfig.TimeoutSeconds; defaults to
// 120s upstream when unset).
func NewProcessingOrchestrator(
	videoRepo repository.VideoRepository,
	originalStore repository.ObjectStorage,
	tempStore, processedStore *blobstore.Client,
	tc transcoder.Transcoder,
	statusUpdater *StatusUpdater,
	pool *WorkerPool,
	timeout time.Duration,
) *ProcessingOrchestrator {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &ProcessingOrchestrator{
		videoRepo:      videoRepo,
		originalStore:  originalStore,
		tempStore:      tempStore,
		processedStore: processedStore,
		transcoder:     tc,
		statusUpdater:  statusUpdater,
		pool:           pool,
		timeout:        timeout,
	}
}

// Enqueue submits the edit job for videoID to the shared worker pool and
// returns as soon as the pool accepts it; while every slot is busy it blocks
// until one frees. The caller (the video service's TriggerProcess) has
// already transitioned the row to PROCESSING before calling this.
func (o *ProcessingOrchestrator) Enqueue(videoID int64, opts model.EditOptions) {
	o.pool.Submit(func(ctx context.Context) {
		o.process(ctx, videoID, opts)
	})
}

func (o *ProcessingOrchestrator) process(ctx context.Context, videoID int64, opts model.EditOptions) {
	video, err := o.videoRepo.FindByID(ctx, videoID)
	if err != nil {
		slog.Error("orchestrator: reload video failed", "video_id", videoID, "error", err)
		return
	}
	if video.Status != model.StatusProcessing {
		slog.Warn("orchestrator: video no longer PROCESSING, aborting job", "video_id", videoID, "status", video.Status)
		return
	}

	jobID := uuid.New().String()
	tempInKey := fmt.Sprintf("temp-in-%s-%s", jobID, video.StoragePath)
	tempOutKey := fmt.Sprintf("temp-out-%s.mp4", jobID)

	defer o.cleanupTemp(tempInKey, tempOutKey)

	if err := o.stageOriginal(ctx, video.StoragePath, tempInKey); err != nil {
		slog.Error("orchestrator: stage original failed", "video_id", videoID, "error", err)
		o.fail(ctx, videoID)
		return
	}

	inputPath, err := o.tempStore.PathFor(tempInKey)
	if err != nil {
		slog.Error("orchestrator: resolve input path failed", "video_id", videoID, "error", err)
		o.fail(ctx, videoID)
		return
	}
	outputPath, err := o.tempStore.PathFor(tempOutKey)
	if err != nil {
		slog.Error("orchestrator: resolve output path failed", "video_id", videoID, "error", err)
		o.fail(ctx, videoID)
		return
	}

	transcodeOpts := transcoder.Options{
		CutStartTime:           opts.CutStartTime,
		CutEndTime:             opts.CutEndTime,
		Mute:                   opts.Mute,
		TargetResolutionHeight: opts.TargetResolutionHeight,
	}

	jobCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	err = o.transcoder.Transcode(jobCtx, inputPath, outputPath, transcodeOpts)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		outcome := metrics.TranscodeOutcomeFailed
		if errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
			outcome = metrics.TranscodeOutcomeTimeout
		}
		metrics.TranscodeJobDuration.WithLabelValues(outcome).Observe(elapsed)
		metrics.TranscodeJobsTotal.WithLabelValues(outcome).Inc()
		slog.Error("orchestrator: ffmpeg failed", "video_id", videoID, "error", err)
		o.fail(ctx, videoID)
		return
	}
	metrics.TranscodeJobDuration.WithLabelValues(metrics.TranscodeOutcomeReady).Observe(elapsed)
	metrics.TranscodeJobsTotal.WithLabelValues(metrics.TranscodeOutcomeReady).Inc()

	finalKey := fmt.Sprintf("%d-processed-%s.mp4", video.ID, jobID)
	finalPath, err := o.processedStore.PathFor(finalKey)
	if err != nil {
		slog.Error("orchestrator: resolve processed path failed", "video_id", videoID, "error", err)
		o.fail(ctx, videoID)
		return
	}
	if err := moveFile(outputPath, finalPath); err != nil {
		slog.Error("orchestrator: promote output to processed store failed", "video_id", videoID, "error", err)
		o.fail(ctx, videoID)
		return
	}

	if _, err := o.statusUpdater.ToReady(ctx, videoID, finalKey); err != nil {
		slog.Error("orchestrator: transition to READY failed", "video_id", videoID, "error", err)
		_ = o.processedStore.Delete(ctx, finalKey)
		return
	}
}

// stageOriginal copies the original object into the temp store under key,
// reusing the blob store's streaming Store for the write half.
func (o *ProcessingOrchestrator) stageOriginal(ctx context.Context, originalKey, tempKey string) error {
	src, err := o.originalStore.Load(ctx, originalKey)
	if err != nil {
		return fmt.Errorf("load original: %w", err)
	}
	defer src.Close()

	if _, err := o.tempStore.Store(ctx, tempKey, src); err != nil {
		return fmt.Errorf("stage original to temp: %w", err)
	}
	return nil
}

// fail makes a best-effort transition to FAILED, logging (not propagating)
// any error from the attempt itself.
func (o *ProcessingOrchestrator) fail(ctx context.Context, videoID int64) {
	if err := o.statusUpdater.ToFailed(ctx, videoID); err != nil {
		logIllegalTransition(err)
	}
}

// cleanupTemp best-effort deletes both scratch objects regardless of how the
// job ended; deleting an already-promoted or never-created key is a no-op.
func (o *ProcessingOrchestrator) cleanupTemp(keys ...string) {
	for _, key := range keys {
		if err := o.tempStore.Delete(context.Background(), key); err != nil {
			slog.Warn("orchestrator: temp cleanup failed", "key", key, "error", err)
		}
	}
}

// moveFile renames src to dst, falling back to copy-then-remove when the
// rename fails (e.g. the two roots live on different filesystems/devices).
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open move source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create move destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("copy during move: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close move destination: %w", err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove move source: %w", err)
	}
	return nil
}
