package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hszk-dev/gostream/internal/domain/model"
	"github.com/hszk-dev/gostream/internal/domain/repository"
)

// DBTX is an interface that abstracts pgxpool.Pool and pgx.Tx for testability.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// VideoRepository implements repository.VideoRepository using PostgreSQL.
type VideoRepository struct {
	db DBTX
}

// NewVideoRepository creates a new VideoRepository instance. db may be a
// *pgxpool.Pool for standalone reads or a pgx.Tx when the caller is inside
// a Status Updater transaction.
func NewVideoRepository(db DBTX) *VideoRepository {
	return &VideoRepository{db: db}
}

// FindByID retrieves a video by its internal numeric identifier.
func (r *VideoRepository) FindByID(ctx context.Context, id int64) (*model.Video, error) {
	const query = `
		SELECT v.id, v.public_id, v.owner_id, u.username, v.description, v.storage_path,
		       v.processed_storage_path, v.file_size, v.mime_type, v.duration, v.status,
		       v.uploaded_at, v.version
		FROM videos v
		JOIN users u ON u.id = v.owner_id
		WHERE v.id = $1
	`

	video, err := r.scanVideo(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrVideoNotFound
		}
		return nil, fmt.Errorf("find video by id: %w", err)
	}
	return video, nil
}

// FindByPublicID retrieves a video by its externally visible public id.
func (r *VideoRepository) FindByPublicID(ctx context.Context, publicID uuid.UUID) (*model.Video, error) {
	const query = `
		SELECT v.id, v.public_id, v.owner_id, u.username, v.description, v.storage_path,
		       v.processed_storage_path, v.file_size, v.mime_type, v.duration, v.status,
		       v.uploaded_at, v.version
		FROM videos v
		JOIN users u ON u.id = v.owner_id
		WHERE v.public_id = $1
	`

	video, err := r.scanVideo(r.db.QueryRow(ctx, query, publicID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrVideoNotFound
		}
		return nil, fmt.Errorf("find video by public id: %w", err)
	}
	return video, nil
}

// FindByOwnerUsername retrieves a paginated, ordered sequence of videos for
// the given owner. The owner relation is resolved in the same query via a
// join, and the total count via a window function, so listing never issues
// more than one round trip.
func (r *VideoRepository) FindByOwnerUsername(ctx context.Context, username string, page repository.Page) (*repository.PagedVideos, error) {
	const query = `
		SELECT v.id, v.public_id, v.owner_id, u.username, v.description, v.storage_path,
		       v.processed_storage_path, v.file_size, v.mime_type, v.duration, v.status,
		       v.uploaded_at, v.version, count(*) OVER () AS total_count
		FROM videos v
		JOIN users u ON u.id = v.owner_id
		WHERE u.username = $1
		ORDER BY v.uploaded_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, username, page.Size, page.Number*page.Size)
	if err != nil {
		return nil, fmt.Errorf("find videos by owner username: %w", err)
	}
	defer rows.Close()

	var (
		videos []*model.Video
		total  int64
	)
	for rows.Next() {
		video, count, err := r.scanVideoWithCount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
		total = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	return &repository.PagedVideos{Videos: videos, TotalCount: total, Page: page}, nil
}

// Save inserts a new video or, when video.ID is already set, updates an
// existing row under an optimistic-locking version check.
func (r *VideoRepository) Save(ctx context.Context, video *model.Video) (*model.Video, error) {
	if video.ID == 0 {
		return r.insert(ctx, video)
	}
	return r.update(ctx, video)
}

func (r *VideoRepository) insert(ctx context.Context, video *model.Video) (*model.Video, error) {
	const query = `
		INSERT INTO videos (public_id, owner_id, description, storage_path, processed_storage_path,
		                     file_size, mime_type, duration, status, uploaded_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0)
		RETURNING id, version
	`

	row := r.db.QueryRow(ctx, query,
		video.PublicID,
		video.OwnerID,
		video.Description,
		video.StoragePath,
		nullString(video.ProcessedStoragePath),
		video.FileSize,
		video.MimeType,
		video.Duration,
		video.Status.String(),
		video.UploadedAt,
	)

	var (
		id      int64
		version int32
	)
	if err := row.Scan(&id, &version); err != nil {
		if pgErr := asPgError(err); pgErr != nil && pgErr.Code == "23505" {
			return nil, repository.ErrDuplicateStoragePath
		}
		return nil, fmt.Errorf("insert video: %w", err)
	}

	saved := *video
	saved.ID = id
	saved.Version = version
	return &saved, nil
}

func (r *VideoRepository) update(ctx context.Context, video *model.Video) (*model.Video, error) {
	const query = `
		UPDATE videos
		SET description = $3, processed_storage_path = $4, file_size = $5, mime_type = $6,
		    duration = $7, status = $8, version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING version
	`

	row := r.db.QueryRow(ctx, query,
		video.ID,
		video.Version,
		video.Description,
		nullString(video.ProcessedStoragePath),
		video.FileSize,
		video.MimeType,
		video.Duration,
		video.Status.String(),
	)

	var newVersion int32
	err := row.Scan(&newVersion)
	if err != nil {
		if pgErr := asPgError(err); pgErr != nil && pgErr.Code == "23505" {
			return nil, repository.ErrDuplicateStoragePath
		}
		if errors.Is(err, pgx.ErrNoRows) {
			exists, existsErr := r.exists(ctx, video.ID)
			if existsErr != nil {
				return nil, fmt.Errorf("check video existence after failed update: %w", existsErr)
			}
			if !exists {
				return nil, repository.ErrVideoNotFound
			}
			return nil, repository.ErrVersionConflict
		}
		return nil, fmt.Errorf("update video: %w", err)
	}

	saved := *video
	saved.Version = newVersion
	return &saved, nil
}

func (r *VideoRepository) exists(ctx context.Context, id int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM videos WHERE id = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Delete removes the video row. Blob storage cleanup is the caller's concern.
func (r *VideoRepository) Delete(ctx context.Context, video *model.Video) error {
	const query = `DELETE FROM videos WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, video.ID)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrVideoNotFound
	}
	return nil
}

func (r *VideoRepository) scanVideo(row pgx.Row) (*model.Video, error) {
	var (
		video         model.Video
		status        string
		processedPath *string
	)

	err := row.Scan(
		&video.ID,
		&video.PublicID,
		&video.OwnerID,
		&video.OwnerUsername,
		&video.Description,
		&video.StoragePath,
		&processedPath,
		&video.FileSize,
		&video.MimeType,
		&video.Duration,
		&status,
		&video.UploadedAt,
		&video.Version,
	)
	if err != nil {
		return nil, err
	}

	video.Status = model.Status(status)
	if processedPath != nil {
		video.ProcessedStoragePath = *processedPath
	}
	return &video, nil
}

func (r *VideoRepository) scanVideoWithCount(rows pgx.Rows) (*model.Video, int64, error) {
	var (
		video         model.Video
		status        string
		processedPath *string
		total         int64
	)

	err := rows.Scan(
		&video.ID,
		&video.PublicID,
		&video.OwnerID,
		&video.OwnerUsername,
		&video.Description,
		&video.StoragePath,
		&processedPath,
		&video.FileSize,
		&video.MimeType,
		&video.Duration,
		&status,
		&video.UploadedAt,
		&video.Version,
		&total,
	)
	if err != nil {
		return nil, 0, err
	}

	video.Status = model.Status(status)
	if processedPath != nil {
		video.ProcessedStoragePath = *processedPath
	}
	return &video, total, nil
}

// nullString returns nil for empty strings, otherwise a pointer to the string.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// asPgError unwraps a *pgconn.PgError from err, or returns nil.
func asPgError(err error) *pgconn.PgError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr
	}
	return nil
}

// Compile-time verification that VideoRepository implements repository.VideoRepository.
var _ repository.VideoRepository = (*VideoRepository)(nil)
