package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/gostream/internal/domain/model"
	"github.com/hszk-dev/gostream/internal/domain/repository"
)

// stubVideoService implements VideoService for decorator-level tests, with
// a counter on Get so tests can assert singleflight/cache coalescing.
type stubVideoService struct {
	getFn               func(ctx context.Context, publicID uuid.UUID, requesterID int64) (*model.Video, error)
	getCount            atomic.Int32
	updateDescriptionFn func(ctx context.Context, publicID uuid.UUID, requesterID int64, description string) (*model.Video, error)
	triggerProcessFn    func(ctx context.Context, publicID uuid.UUID, requesterID int64, opts model.EditOptions) error
	deleteFn            func(ctx context.Context, publicID uuid.UUID, requesterID int64) error
}

func (s *stubVideoService) Upload(ctx context.Context, input UploadVideoInput) (*model.Video, error) {
	return nil, nil
}

func (s *stubVideoService) Get(ctx context.Context, publicID uuid.UUID, requesterID int64) (*model.Video, error) {
	s.getCount.Add(1)
	if s.getFn != nil {
		return s.getFn(ctx, publicID, requesterID)
	}
	return nil, repository.ErrVideoNotFound
}

func (s *stubVideoService) List(ctx context.Context, ownerUsername string, page repository.Page) (*repository.PagedVideos, error) {
	return &repository.PagedVideos{Page: page}, nil
}

func (s *stubVideoService) UpdateDescription(ctx context.Context, publicID uuid.UUID, requesterID int64, description string) (*model.Video, error) {
	if s.updateDescriptionFn != nil {
		return s.updateDescriptionFn(ctx, publicID, requesterID, description)
	}
	return nil, nil
}

func (s *stubVideoService) TriggerProcess(ctx context.Context, publicID uuid.UUID, requesterID int64, opts model.EditOptions) error {
	if s.triggerProcessFn != nil {
		return s.triggerProcessFn(ctx, publicID, requesterID, opts)
	}
	return nil
}

func (s *stubVideoService) Delete(ctx context.Context, publicID uuid.UUID, requesterID int64) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, publicID, requesterID)
	}
	return nil
}

func (s *stubVideoService) DownloadProcessed(ctx context.Context, publicID uuid.UUID, requesterID int64) (io.ReadCloser, *model.Video, error) {
	return nil, nil, nil
}

func (s *stubVideoService) DownloadOriginal(ctx context.Context, publicID uuid.UUID, requesterID int64) (io.ReadCloser, *model.Video, error) {
	return nil, nil, nil
}

// stubVideoCache is an in-memory stand-in for cache.VideoCache.
type stubVideoCache struct {
	mu       sync.Mutex
	data     map[uuid.UUID]*model.Video
	getFn    func(ctx context.Context, publicID uuid.UUID) (*model.Video, error)
	setFn    func(ctx context.Context, video *model.Video, ttl time.Duration) error
	deleteFn func(ctx context.Context, publicID uuid.UUID) error
}

func newStubVideoCache() *stubVideoCache {
	return &stubVideoCache{data: make(map[uuid.UUID]*model.Video)}
}

func (c *stubVideoCache) Get(ctx context.Context, publicID uuid.UUID) (*model.Video, error) {
	if c.getFn != nil {
		return c.getFn(ctx, publicID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[publicID], nil
}

func (c *stubVideoCache) Set(ctx context.Context, video *model.Video, ttl time.Duration) error {
	if c.setFn != nil {
		return c.setFn(ctx, video, ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[video.PublicID] = video
	return nil
}

func (c *stubVideoCache) Delete(ctx context.Context, publicID uuid.UUID) error {
	if c.deleteFn != nil {
		return c.deleteFn(ctx, publicID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, publicID)
	return nil
}

func (c *stubVideoCache) has(publicID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[publicID] != nil
}

func TestCachedVideoService_Get_CacheHit(t *testing.T) {
	publicID := uuid.New()
	cached := &model.Video{PublicID: publicID, OwnerID: 7, Status: model.StatusReady}

	delegate := &stubVideoService{}
	videoCache := newStubVideoCache()
	videoCache.data[publicID] = cached

	svc := NewCachedVideoService(delegate, &mockVideoRepository{}, videoCache, DefaultCachedVideoServiceConfig())

	got, err := svc.Get(context.Background(), publicID, 7)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.PublicID != publicID {
		t.Errorf("PublicID = %v, want %v", got.PublicID, publicID)
	}
	if delegate.getCount.Load() != 0 {
		t.Errorf("delegate.Get called %d times on cache hit, want 0", delegate.getCount.Load())
	}
}

func TestCachedVideoService_Get_CacheMiss(t *testing.T) {
	publicID := uuid.New()
	fromDB := &model.Video{PublicID: publicID, OwnerID: 7, Status: model.StatusReady}

	repo := &mockVideoRepository{
		findByPublicIDFn: func(ctx context.Context, id uuid.UUID) (*model.Video, error) {
			return fromDB, nil
		},
	}
	videoCache := newStubVideoCache()

	svc := NewCachedVideoService(&stubVideoService{}, repo, videoCache, DefaultCachedVideoServiceConfig())

	got, err := svc.Get(context.Background(), publicID, 7)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.PublicID != publicID {
		t.Errorf("PublicID = %v, want %v", got.PublicID, publicID)
	}
	if !videoCache.has(publicID) {
		t.Error("video was not cached after cache miss")
	}
}

func TestCachedVideoService_Get_OwnershipCheckedAfterCacheHit(t *testing.T) {
	publicID := uuid.New()
	cached := &model.Video{PublicID: publicID, OwnerID: 7, Status: model.StatusReady}

	videoCache := newStubVideoCache()
	videoCache.data[publicID] = cached

	svc := NewCachedVideoService(&stubVideoService{}, &mockVideoRepository{}, videoCache, DefaultCachedVideoServiceConfig())

	_, err := svc.Get(context.Background(), publicID, 999)
	if !errors.Is(err, ErrNotOwner) {
		t.Errorf("expected ErrNotOwner for mismatched requester on a cached row, got %v", err)
	}
}

func TestCachedVideoService_Get_CacheErrorFallsBackToRepo(t *testing.T) {
	publicID := uuid.New()
	fromDB := &model.Video{PublicID: publicID, OwnerID: 7, Status: model.StatusReady}

	repo := &mockVideoRepository{
		findByPublicIDFn: func(ctx context.Context, id uuid.UUID) (*model.Video, error) {
			return fromDB, nil
		},
	}
	videoCache := &stubVideoCache{
		getFn: func(ctx context.Context, id uuid.UUID) (*model.Video, error) {
			return nil, errors.New("redis connection error")
		},
		setFn: func(ctx context.Context, video *model.Video, ttl time.Duration) error {
			return errors.New("redis connection error")
		},
	}

	svc := NewCachedVideoService(&stubVideoService{}, repo, videoCache, DefaultCachedVideoServiceConfig())

	got, err := svc.Get(context.Background(), publicID, 7)
	if err != nil {
		t.Fatalf("Get should not fail on a cache error: %v", err)
	}
	if got.PublicID != publicID {
		t.Errorf("PublicID = %v, want %v", got.PublicID, publicID)
	}
}

func TestCachedVideoService_Get_Singleflight(t *testing.T) {
	publicID := uuid.New()
	fromDB := &model.Video{PublicID: publicID, OwnerID: 7, Status: model.StatusReady}

	videoCache := newStubVideoCache()

	var wg sync.WaitGroup
	var findCount atomic.Int32
	countingRepo := &mockVideoRepository{
		findByPublicIDFn: func(ctx context.Context, id uuid.UUID) (*model.Video, error) {
			findCount.Add(1)
			time.Sleep(50 * time.Millisecond)
			return fromDB, nil
		},
	}
	svc := NewCachedVideoService(&stubVideoService{}, countingRepo, videoCache, DefaultCachedVideoServiceConfig())

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Get(context.Background(), publicID, 7); err != nil {
				t.Errorf("Get failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := findCount.Load(); got != 1 {
		t.Errorf("repo.FindByPublicID called %d times, want 1 (singleflight should coalesce)", got)
	}
}

func TestCachedVideoService_TriggerProcess_InvalidatesCacheBeforeDelegating(t *testing.T) {
	publicID := uuid.New()
	videoCache := newStubVideoCache()
	videoCache.data[publicID] = &model.Video{PublicID: publicID, OwnerID: 7, Status: model.StatusUploaded}

	var cachedDuringDelegate bool
	delegate := &stubVideoService{
		triggerProcessFn: func(ctx context.Context, id uuid.UUID, requesterID int64, opts model.EditOptions) error {
			cachedDuringDelegate = videoCache.has(publicID)
			return nil
		},
	}

	svc := NewCachedVideoService(delegate, &mockVideoRepository{}, videoCache, DefaultCachedVideoServiceConfig())

	if err := svc.TriggerProcess(context.Background(), publicID, 7, model.EditOptions{}); err != nil {
		t.Fatalf("TriggerProcess failed: %v", err)
	}
	if cachedDuringDelegate {
		t.Error("cache entry was still present when delegate.TriggerProcess ran, want invalidated first")
	}
	if videoCache.has(publicID) {
		t.Error("cache was not invalidated after TriggerProcess")
	}
}

func TestCachedVideoService_UpdateDescription_InvalidatesCacheAfterDelegating(t *testing.T) {
	publicID := uuid.New()
	videoCache := newStubVideoCache()
	videoCache.data[publicID] = &model.Video{PublicID: publicID, OwnerID: 7, Status: model.StatusUploaded}

	updated := &model.Video{PublicID: publicID, OwnerID: 7, Description: "new", Status: model.StatusUploaded}
	delegate := &stubVideoService{
		updateDescriptionFn: func(ctx context.Context, id uuid.UUID, requesterID int64, description string) (*model.Video, error) {
			return updated, nil
		},
	}

	svc := NewCachedVideoService(delegate, &mockVideoRepository{}, videoCache, DefaultCachedVideoServiceConfig())

	got, err := svc.UpdateDescription(context.Background(), publicID, 7, "new")
	if err != nil {
		t.Fatalf("UpdateDescription failed: %v", err)
	}
	if got.Description != "new" {
		t.Errorf("Description = %q, want %q", got.Description, "new")
	}
	if videoCache.has(publicID) {
		t.Error("cache was not invalidated after UpdateDescription")
	}
}

func TestCachedVideoService_Delete_InvalidatesCache(t *testing.T) {
	publicID := uuid.New()
	videoCache := newStubVideoCache()
	videoCache.data[publicID] = &model.Video{PublicID: publicID, OwnerID: 7, Status: model.StatusUploaded}

	delegate := &stubVideoService{
		deleteFn: func(ctx context.Context, id uuid.UUID, requesterID int64) error { return nil },
	}

	svc := NewCachedVideoService(delegate, &mockVideoRepository{}, videoCache, DefaultCachedVideoServiceConfig())

	if err := svc.Delete(context.Background(), publicID, 7); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if videoCache.has(publicID) {
		t.Error("cache was not invalidated after Delete")
	}
}

func TestCachedVideoService_List_NeverCaches(t *testing.T) {
	delegate := &stubVideoService{}
	videoCache := newStubVideoCache()

	svc := NewCachedVideoService(delegate, &mockVideoRepository{}, videoCache, DefaultCachedVideoServiceConfig())

	if _, err := svc.List(context.Background(), "alice", repository.Page{Number: 0, Size: 10}); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(videoCache.data) != 0 {
		t.Error("List should never populate the cache")
	}
}
