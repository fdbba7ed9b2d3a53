package usecase

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/hszk-dev/gostream/internal/domain/model"
	"github.com/hszk-dev/gostream/internal/domain/repository"
	"github.com/hszk-dev/gostream/internal/infrastructure/cache"
	"github.com/hszk-dev/gostream/internal/infrastructure/metrics"
)

// CachedVideoServiceConfig holds configuration for CachedVideoService.
type CachedVideoServiceConfig struct {
	// CacheTTL is the TTL for cached video metadata.
	CacheTTL time.Duration
}

// DefaultCachedVideoServiceConfig returns the default configuration.
func DefaultCachedVideoServiceConfig() CachedVideoServiceConfig {
	return CachedVideoServiceConfig{
		CacheTTL: 5 * time.Minute,
	}
}

// cachedVideoService decorates a VideoService with a Redis-backed cache-aside
// read path for Get, invalidating on every write. Uploads, lists, and the
// download streams are never cached.
type cachedVideoService struct {
	delegate VideoService
	repo     repository.VideoRepository
	cache    cache.VideoCache
	sfGroup  singleflight.Group

	cacheTTL time.Duration
}

// NewCachedVideoService creates a VideoService wrapping delegate with caching.
// repo backs the cache-miss read path directly (an ownership-agnostic fetch
// shared across whichever requesters coalesce on the same in-flight lookup);
// every write and ownership check still flows through delegate.
func NewCachedVideoService(
	delegate VideoService,
	repo repository.VideoRepository,
	videoCache cache.VideoCache,
	cfg CachedVideoServiceConfig,
) VideoService {
	return &cachedVideoService{
		delegate: delegate,
		repo:     repo,
		cache:    videoCache,
		cacheTTL: cfg.CacheTTL,
	}
}

// Upload delegates without touching the cache — there is nothing to
// invalidate for a video that didn't exist a moment ago.
func (s *cachedVideoService) Upload(ctx context.Context, input UploadVideoInput) (*model.Video, error) {
	return s.delegate.Upload(ctx, input)
}

// Get coalesces concurrent lookups for the same video with singleflight and
// serves from cache-aside.
func (s *cachedVideoService) Get(ctx context.Context, publicID uuid.UUID, requesterID int64) (*model.Video, error) {
	result, err, shared := s.sfGroup.Do(publicID.String(), func() (any, error) {
		return s.getWithCache(ctx, publicID)
	})

	if shared {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
	} else {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
	}
	if err != nil {
		return nil, err
	}

	video := result.(*model.Video)
	if video.OwnerID != requesterID {
		return nil, ErrNotOwner
	}
	return video, nil
}

// getWithCache implements the cache-aside pattern. It deliberately ignores
// ownership — the ownership check happens once, after coalescing, in Get —
// so that a cached row can be shared safely across requesters.
func (s *cachedVideoService) getWithCache(ctx context.Context, publicID uuid.UUID) (*model.Video, error) {
	video, err := s.cache.Get(ctx, publicID)
	if err != nil {
		slog.Warn("cache get failed, falling back to database", "public_id", publicID, "error", err)
	}
	if video != nil {
		return video, nil
	}

	video, err = s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, video, s.cacheTTL); err != nil {
		slog.Warn("failed to cache video", "public_id", publicID, "error", err)
	}
	return video, nil
}

// List delegates without caching — list pages are cheap and change often.
func (s *cachedVideoService) List(ctx context.Context, ownerUsername string, page repository.Page) (*repository.PagedVideos, error) {
	return s.delegate.List(ctx, ownerUsername, page)
}

// UpdateDescription delegates, then invalidates the cache entry.
func (s *cachedVideoService) UpdateDescription(ctx context.Context, publicID uuid.UUID, requesterID int64, description string) (*model.Video, error) {
	video, err := s.delegate.UpdateDescription(ctx, publicID, requesterID, description)
	s.invalidate(ctx, publicID)
	return video, err
}

// TriggerProcess invalidates the cache before delegating, so the next Get
// never serves the pre-PROCESSING row while a job is in flight.
func (s *cachedVideoService) TriggerProcess(ctx context.Context, publicID uuid.UUID, requesterID int64, opts model.EditOptions) error {
	s.invalidate(ctx, publicID)
	return s.delegate.TriggerProcess(ctx, publicID, requesterID, opts)
}

// Delete delegates, then invalidates the cache entry.
func (s *cachedVideoService) Delete(ctx context.Context, publicID uuid.UUID, requesterID int64) error {
	err := s.delegate.Delete(ctx, publicID, requesterID)
	s.invalidate(ctx, publicID)
	return err
}

// DownloadProcessed delegates directly; streamed bytes are never cached.
func (s *cachedVideoService) DownloadProcessed(ctx context.Context, publicID uuid.UUID, requesterID int64) (io.ReadCloser, *model.Video, error) {
	return s.delegate.DownloadProcessed(ctx, publicID, requesterID)
}

// DownloadOriginal delegates directly; streamed bytes are never cached.
func (s *cachedVideoService) DownloadOriginal(ctx context.Context, publicID uuid.UUID, requesterID int64) (io.ReadCloser, *model.Video, error) {
	return s.delegate.DownloadOriginal(ctx, publicID, requesterID)
}

func (s *cachedVideoService) invalidate(ctx context.Context, publicID uuid.UUID) {
	if err := s.cache.Delete(ctx, publicID); err != nil {
		slog.Warn("failed to invalidate cached video", "public_id", publicID, "error", err)
	}
}
