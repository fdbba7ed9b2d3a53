package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/gostream/internal/domain/model"
	"github.com/hszk-dev/gostream/internal/domain/repository"
	"github.com/hszk-dev/gostream/internal/infrastructure/cache"
)

// StatusUpdater performs the three transactional status transitions of
// spec.md §4.C. Each operation runs inside its own transaction and publishes
// a VideoStatusChanged event strictly after that transaction commits; a
// rolled-back transaction (e.g. a duplicate processedStoragePath) emits no
// event at all. The same commit-bound hook evicts the read cache, so the
// asynchronous ToReady/ToFailed transitions the processing orchestrator
// drives from its worker pool are reflected immediately, not just the
// synchronous writes CachedVideoService already invalidates on.
type StatusUpdater struct {
	uow   repository.VideoUnitOfWork
	bus   repository.EventPublisher
	cache cache.VideoCache
}

// NewStatusUpdater creates a StatusUpdater. videoCache may be nil (e.g. for
// cmd/worker, which has no cache in front of it); a nil cache disables
// invalidation without affecting the transition logic itself.
func NewStatusUpdater(uow repository.VideoUnitOfWork, bus repository.EventPublisher, videoCache cache.VideoCache) *StatusUpdater {
	return &StatusUpdater{uow: uow, bus: bus, cache: videoCache}
}

// ToProcessing transitions the video at id to PROCESSING. Re-entry from
// PROCESSING is allowed and re-emits the event (spec.md §9 Open Question).
func (u *StatusUpdater) ToProcessing(ctx context.Context, id int64) (*model.Video, error) {
	var saved *model.Video

	err := u.uow.WithinTx(ctx, func(ctx context.Context, repo repository.VideoRepository) error {
		video, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !video.Status.CanTransitionTo(model.StatusProcessing) {
			return fmt.Errorf("%w: %s cannot transition to PROCESSING", repository.ErrIllegalTransition, video.Status)
		}
		if err := video.TransitionTo(model.StatusProcessing, ""); err != nil {
			return fmt.Errorf("%w: %s", repository.ErrIllegalTransition, err)
		}

		saved, err = repo.Save(ctx, video)
		return err
	})
	if err != nil {
		return nil, err
	}

	u.publish(saved, model.StatusProcessing, "")
	return saved, nil
}

// ToReady transitions the video at id to READY with processedPath as its
// processed storage key. Precondition: status = PROCESSING.
func (u *StatusUpdater) ToReady(ctx context.Context, id int64, processedPath string) (*model.Video, error) {
	var saved *model.Video

	err := u.uow.WithinTx(ctx, func(ctx context.Context, repo repository.VideoRepository) error {
		video, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if video.Status != model.StatusProcessing {
			return fmt.Errorf("%w: %s is not PROCESSING", repository.ErrIllegalTransition, video.Status)
		}
		if err := video.TransitionTo(model.StatusReady, processedPath); err != nil {
			return fmt.Errorf("%w: %s", repository.ErrIllegalTransition, err)
		}

		saved, err = repo.Save(ctx, video)
		return err
	})
	if err != nil {
		return nil, err
	}

	u.publish(saved, model.StatusReady, "")
	return saved, nil
}

// ToFailed transitions the video at id to FAILED. Per spec.md §4.C this is a
// silent no-op — not an error — when the row is not currently PROCESSING.
func (u *StatusUpdater) ToFailed(ctx context.Context, id int64) error {
	var (
		saved     *model.Video
		attempted bool
	)

	err := u.uow.WithinTx(ctx, func(ctx context.Context, repo repository.VideoRepository) error {
		video, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if video.Status != model.StatusProcessing {
			return nil
		}
		attempted = true
		if err := video.TransitionTo(model.StatusFailed, ""); err != nil {
			return fmt.Errorf("%w: %s", repository.ErrIllegalTransition, err)
		}

		saved, err = repo.Save(ctx, video)
		return err
	})
	if err != nil {
		return err
	}
	if !attempted {
		return nil
	}

	u.publish(saved, model.StatusFailed, "Video processing failed.")
	return nil
}

func (u *StatusUpdater) publish(video *model.Video, status model.Status, message string) {
	if video == nil {
		return
	}
	u.bus.Publish(repository.VideoStatusChanged{
		PublicID:      video.PublicID,
		OwnerUsername: video.OwnerUsername,
		Status:        status,
		Message:       message,
		OccurredAt:    time.Now(),
	})
	u.invalidateCache(video.PublicID)
}

// invalidateCache evicts the cached row for publicID so the next Get, sync
// or async transition alike, reads the freshly committed status rather than
// whatever was cached before this transition. A no-op when no cache was
// wired (cmd/worker).
func (u *StatusUpdater) invalidateCache(publicID uuid.UUID) {
	if u.cache == nil {
		return
	}
	if err := u.cache.Delete(context.Background(), publicID); err != nil {
		slog.Warn("status updater: failed to invalidate cached video", "public_id", publicID, "error", err)
	}
}

// logIllegalTransition is a convenience used by callers (e.g. the
// orchestrator's best-effort toFailed) that want to log without failing.
func logIllegalTransition(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, repository.ErrIllegalTransition) {
		slog.Warn("status transition precondition not met", "error", err)
		return
	}
	slog.Error("status transition failed", "error", err)
}
