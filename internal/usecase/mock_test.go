package usecase

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/hszk-dev/gostream/internal/domain/model"
	"github.com/hszk-dev/gostream/internal/domain/repository"
	"github.com/hszk-dev/gostream/internal/transcoder"
)

// mockVideoRepository provides a configurable mock for repository.VideoRepository.
type mockVideoRepository struct {
	findByIDFn            func(ctx context.Context, id int64) (*model.Video, error)
	findByPublicIDFn       func(ctx context.Context, publicID uuid.UUID) (*model.Video, error)
	findByOwnerUsernameFn  func(ctx context.Context, username string, page repository.Page) (*repository.PagedVideos, error)
	saveFn                 func(ctx context.Context, video *model.Video) (*model.Video, error)
	deleteFn               func(ctx context.Context, video *model.Video) error
}

func (m *mockVideoRepository) FindByID(ctx context.Context, id int64) (*model.Video, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, repository.ErrVideoNotFound
}

func (m *mockVideoRepository) FindByPublicID(ctx context.Context, publicID uuid.UUID) (*model.Video, error) {
	if m.findByPublicIDFn != nil {
		return m.findByPublicIDFn(ctx, publicID)
	}
	return nil, repository.ErrVideoNotFound
}

func (m *mockVideoRepository) FindByOwnerUsername(ctx context.Context, username string, page repository.Page) (*repository.PagedVideos, error) {
	if m.findByOwnerUsernameFn != nil {
		return m.findByOwnerUsernameFn(ctx, username, page)
	}
	return &repository.PagedVideos{Page: page}, nil
}

func (m *mockVideoRepository) Save(ctx context.Context, video *model.Video) (*model.Video, error) {
	if m.saveFn != nil {
		return m.saveFn(ctx, video)
	}
	return video, nil
}

func (m *mockVideoRepository) Delete(ctx context.Context, video *model.Video) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, video)
	}
	return nil
}

// mockVideoUnitOfWork provides a configurable mock for repository.VideoUnitOfWork.
// By default it runs fn against a delegate VideoRepository with no real
// transaction boundary, which is sufficient for usecase-layer unit tests that
// only assert sequencing and commit/rollback outcomes.
type mockVideoUnitOfWork struct {
	repo      repository.VideoRepository
	withinTxFn func(ctx context.Context, fn func(ctx context.Context, repo repository.VideoRepository) error) error
}

func (m *mockVideoUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, repo repository.VideoRepository) error) error {
	if m.withinTxFn != nil {
		return m.withinTxFn(ctx, fn)
	}
	repo := m.repo
	if repo == nil {
		repo = &mockVideoRepository{}
	}
	return fn(ctx, repo)
}

// mockEventPublisher provides a configurable mock for repository.EventPublisher.
type mockEventPublisher struct {
	events    []repository.VideoStatusChanged
	publishFn func(event repository.VideoStatusChanged)
}

func (m *mockEventPublisher) Publish(event repository.VideoStatusChanged) {
	m.events = append(m.events, event)
	if m.publishFn != nil {
		m.publishFn(event)
	}
}

// mockUserRepository provides a configurable mock for repository.UserRepository.
type mockUserRepository struct {
	findByIDFn       func(ctx context.Context, id int64) (*model.User, error)
	findByUsernameFn func(ctx context.Context, username string) (*model.User, error)
	findByEmailFn    func(ctx context.Context, email string) (*model.User, error)
	saveFn           func(ctx context.Context, user *model.User) (*model.User, error)
}

func (m *mockUserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) Save(ctx context.Context, user *model.User) (*model.User, error) {
	if m.saveFn != nil {
		return m.saveFn(ctx, user)
	}
	return user, nil
}

// mockObjectStorage provides a configurable mock for repository.ObjectStorage.
type mockObjectStorage struct {
	storeFn  func(ctx context.Context, filename string, reader io.Reader) (string, error)
	loadFn   func(ctx context.Context, key string) (io.ReadCloser, error)
	deleteFn func(ctx context.Context, key string) error
	existsFn func(ctx context.Context, key string) (bool, error)
}

func (m *mockObjectStorage) Store(ctx context.Context, filename string, reader io.Reader) (string, error) {
	if m.storeFn != nil {
		return m.storeFn(ctx, filename, reader)
	}
	return filename, nil
}

func (m *mockObjectStorage) Load(ctx context.Context, key string) (io.ReadCloser, error) {
	if m.loadFn != nil {
		return m.loadFn(ctx, key)
	}
	return nil, repository.ErrObjectNotFound
}

func (m *mockObjectStorage) Delete(ctx context.Context, key string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, key)
	}
	return nil
}

func (m *mockObjectStorage) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

// mockTranscoder provides a configurable mock for transcoder.Transcoder.
type mockTranscoder struct {
	transcodeFn func(ctx context.Context, inputPath, outputPath string, opts transcoder.Options) error
}

func (m *mockTranscoder) Transcode(ctx context.Context, inputPath, outputPath string, opts transcoder.Options) error {
	if m.transcodeFn != nil {
		return m.transcodeFn(ctx, inputPath, outputPath, opts)
	}
	return nil
}

// nopReadCloser adapts an io.Reader with a no-op Close, for tests that need
// to hand a mockObjectStorage.loadFn result without a real file.
type nopReadCloser struct {
	io.Reader
}

func (nopReadCloser) Close() error { return nil }
