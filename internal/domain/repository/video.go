package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/hszk-dev/gostream/internal/domain/model"
)

// Page describes a paginated request; Number is zero-based.
type Page struct {
	Number int
	Size   int
}

// PagedVideos is a single page of a larger ordered sequence.
type PagedVideos struct {
	Videos     []*model.Video
	TotalCount int64
	Page       Page
}

// VideoRepository defines the interface for video persistence operations.
// Implementations should be provided by the infrastructure layer (e.g., PostgreSQL).
type VideoRepository interface {
	// FindByID retrieves a video by its internal numeric identifier.
	// Returns ErrVideoNotFound if the video does not exist.
	FindByID(ctx context.Context, id int64) (*model.Video, error)

	// FindByPublicID retrieves a video by its externally visible public id.
	// Returns ErrVideoNotFound if the video does not exist.
	FindByPublicID(ctx context.Context, publicID uuid.UUID) (*model.Video, error)

	// FindByOwnerUsername retrieves a paginated, ordered sequence of videos
	// owned by the given username. The owner relation is resolved in a single
	// round trip; no N+1 query is issued per video.
	FindByOwnerUsername(ctx context.Context, username string, page Page) (*PagedVideos, error)

	// Save inserts a new video or updates an existing one, enforcing the
	// optimistic-locking version check on update. Returns the persisted
	// entity (with its assigned id and incremented version).
	// Returns ErrDuplicateStoragePath on a unique-constraint violation and
	// ErrVersionConflict when the observed version is stale.
	Save(ctx context.Context, video *model.Video) (*model.Video, error)

	// Delete removes the video row. Does not touch blob storage; callers are
	// responsible for best-effort deletion of the associated storage paths.
	Delete(ctx context.Context, video *model.Video) error
}

// VideoUnitOfWork runs fn inside a single new transaction, handing it a
// VideoRepository scoped to that transaction. fn's error aborts the
// transaction; a nil return commits it. WithinTx returning nil is the
// caller's signal that the transaction has committed — event publication
// bound to commit (spec.md §4.C/§9) is sequenced after a nil return, never
// inside fn.
type VideoUnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo VideoRepository) error) error
}
