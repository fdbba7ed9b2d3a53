package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/hszk-dev/gostream/internal/domain/model"
	"github.com/hszk-dev/gostream/internal/domain/repository"
)

var (
	// ErrEmptyUpload is returned when the uploaded file has zero bytes.
	ErrEmptyUpload = errors.New("uploaded file is empty")

	// ErrUploadTooLarge is returned when the uploaded file exceeds the
	// configured size limit. Callers map this to HTTP 413.
	ErrUploadTooLarge = errors.New("uploaded file exceeds the configured size limit")

	// ErrInvalidFilename is returned when the client-supplied filename
	// contains control characters, "..", or a path separator.
	ErrInvalidFilename = errors.New("filename contains invalid characters")

	// ErrInvalidExtension is returned when the sanitized filename's extension
	// is not ".mp4" (case-insensitive).
	ErrInvalidExtension = errors.New("file must have a .mp4 extension")

	// ErrInvalidContentType is returned when the declared Content-Type is not
	// exactly "video/mp4".
	ErrInvalidContentType = errors.New("Content-Type must be video/mp4")

	// ErrInvalidMagicBytes is returned when bytes 4..7 of the upload are not
	// the ASCII sequence "ftyp" — the file does not look like an MP4
	// container regardless of its declared name/type.
	ErrInvalidMagicBytes = errors.New("file does not look like an MP4 container")

	// ErrNotOwner is returned when the requester is not the video's owner.
	// Callers map this to HTTP 403 with no further detail.
	ErrNotOwner = errors.New("caller does not own this video")

	// ErrVideoNotReady is returned when a processed download is requested
	// before the video has reached READY.
	ErrVideoNotReady = errors.New("video has no processed output yet")

	// ErrAlreadyProcessing is returned by TriggerProcess when a processing
	// job is already in flight for the video — the HTTP-facing "don't accept
	// a second concurrent edit request" rule layered on top of the Status
	// Updater's more permissive re-entry semantics.
	ErrAlreadyProcessing = errors.New("video is already processing")
)

const magicByteWindow = 8

var mp4FtypMagic = []byte("ftyp")

// UploadVideoInput carries a multipart upload as received at the HTTP edge;
// Upload performs all validation.
type UploadVideoInput struct {
	OwnerID     int64
	Description string
	Filename    string
	ContentType string
	Size        int64
	Data        io.Reader
}

// VideoServiceConfig holds configuration for VideoService.
type VideoServiceConfig struct {
	MaxUploadBytes int64
}

// VideoService defines the per-request business operations on videos:
// upload validation and storage, ownership-checked reads/writes, and
// delegation of the async edit pipeline to the Status Updater and
// Processing Orchestrator.
type VideoService interface {
	Upload(ctx context.Context, input UploadVideoInput) (*model.Video, error)
	Get(ctx context.Context, publicID uuid.UUID, requesterID int64) (*model.Video, error)
	List(ctx context.Context, ownerUsername string, page repository.Page) (*repository.PagedVideos, error)
	UpdateDescription(ctx context.Context, publicID uuid.UUID, requesterID int64, description string) (*model.Video, error)
	TriggerProcess(ctx context.Context, publicID uuid.UUID, requesterID int64, opts model.EditOptions) error
	Delete(ctx context.Context, publicID uuid.UUID, requesterID int64) error
	DownloadProcessed(ctx context.Context, publicID uuid.UUID, requesterID int64) (io.ReadCloser, *model.Video, error)
	DownloadOriginal(ctx context.Context, publicID uuid.UUID, requesterID int64) (io.ReadCloser, *model.Video, error)
}

type videoService struct {
	repo           repository.VideoRepository
	originalStore  repository.ObjectStorage
	processedStore repository.ObjectStorage
	statusUpdater  *StatusUpdater
	orchestrator   *ProcessingOrchestrator

	maxUploadBytes int64
}

// NewVideoService creates a VideoService instance.
func NewVideoService(
	repo repository.VideoRepository,
	originalStore, processedStore repository.ObjectStorage,
	statusUpdater *StatusUpdater,
	orchestrator *ProcessingOrchestrator,
	cfg VideoServiceConfig,
) VideoService {
	return &videoService{
		repo:           repo,
		originalStore:  originalStore,
		processedStore: processedStore,
		statusUpdater:  statusUpdater,
		orchestrator:   orchestrator,
		maxUploadBytes: cfg.MaxUploadBytes,
	}
}

// Upload validates the multipart payload per spec.md §6's upload validation
// rules, stores the original under a fresh UUID key, and persists the video
// row in UPLOADED.
func (s *videoService) Upload(ctx context.Context, input UploadVideoInput) (*model.Video, error) {
	if input.Size <= 0 {
		return nil, ErrEmptyUpload
	}
	if input.Size > s.maxUploadBytes {
		return nil, ErrUploadTooLarge
	}
	if err := validateUploadFilename(input.Filename); err != nil {
		return nil, err
	}
	if !strings.EqualFold(extensionOf(input.Filename), ".mp4") {
		return nil, ErrInvalidExtension
	}
	if input.ContentType != "video/mp4" {
		return nil, ErrInvalidContentType
	}

	header := make([]byte, magicByteWindow)
	n, err := io.ReadFull(input.Data, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("read upload header: %w", err)
	}
	header = header[:n]
	if n < magicByteWindow || !bytes.Equal(header[4:8], mp4FtypMagic) {
		return nil, ErrInvalidMagicBytes
	}

	fullReader := io.MultiReader(bytes.NewReader(header), input.Data)
	storageKey := uuid.New().String() + ".mp4"

	if _, err := s.originalStore.Store(ctx, storageKey, fullReader); err != nil {
		return nil, fmt.Errorf("store original: %w", err)
	}

	video, err := model.NewVideo(input.OwnerID, input.Description, storageKey, input.Size, input.ContentType)
	if err != nil {
		_ = s.originalStore.Delete(ctx, storageKey)
		return nil, err
	}

	saved, err := s.repo.Save(ctx, video)
	if err != nil {
		_ = s.originalStore.Delete(ctx, storageKey)
		return nil, fmt.Errorf("save video: %w", err)
	}
	return saved, nil
}

// Get retrieves a video by public id, enforcing ownership.
func (s *videoService) Get(ctx context.Context, publicID uuid.UUID, requesterID int64) (*model.Video, error) {
	video, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if video.OwnerID != requesterID {
		return nil, ErrNotOwner
	}
	return video, nil
}

// List retrieves a paginated sequence of videos owned by ownerUsername.
func (s *videoService) List(ctx context.Context, ownerUsername string, page repository.Page) (*repository.PagedVideos, error) {
	return s.repo.FindByOwnerUsername(ctx, ownerUsername, page)
}

// UpdateDescription changes a video's description, enforcing ownership.
func (s *videoService) UpdateDescription(ctx context.Context, publicID uuid.UUID, requesterID int64, description string) (*model.Video, error) {
	video, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if video.OwnerID != requesterID {
		return nil, ErrNotOwner
	}

	updated := *video
	updated.Description = description
	return s.repo.Save(ctx, &updated)
}

// TriggerProcess transitions the video to PROCESSING and hands it to the
// orchestrator. Returns ErrAlreadyProcessing (mapped to HTTP 409) if a job is
// already in flight, honoring the "double-process conflict" scenario without
// weakening the Status Updater's own re-entry-allowed semantics used
// elsewhere (e.g. operator-triggered reprocessing).
func (s *videoService) TriggerProcess(ctx context.Context, publicID uuid.UUID, requesterID int64, opts model.EditOptions) error {
	video, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return err
	}
	if video.OwnerID != requesterID {
		return ErrNotOwner
	}
	if video.Status == model.StatusProcessing {
		return ErrAlreadyProcessing
	}

	updated, err := s.statusUpdater.ToProcessing(ctx, video.ID)
	if err != nil {
		return err
	}

	s.orchestrator.Enqueue(updated.ID, opts)
	return nil
}

// Delete removes the video row, then best-effort deletes both storage
// paths. Storage cleanup errors are discarded and never fail the request;
// only a missing file is logged, at WARN, by the store's Delete.
func (s *videoService) Delete(ctx context.Context, publicID uuid.UUID, requesterID int64) error {
	video, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return err
	}
	if video.OwnerID != requesterID {
		return ErrNotOwner
	}

	if err := s.repo.Delete(ctx, video); err != nil {
		return fmt.Errorf("delete video row: %w", err)
	}

	_ = s.originalStore.Delete(ctx, video.StoragePath)
	if video.ProcessedStoragePath != "" {
		_ = s.processedStore.Delete(ctx, video.ProcessedStoragePath)
	}
	return nil
}

// DownloadProcessed opens the transcoded output. Requires status READY.
func (s *videoService) DownloadProcessed(ctx context.Context, publicID uuid.UUID, requesterID int64) (io.ReadCloser, *model.Video, error) {
	video, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, nil, err
	}
	if video.OwnerID != requesterID {
		return nil, nil, ErrNotOwner
	}
	if video.Status != model.StatusReady || video.ProcessedStoragePath == "" {
		return nil, nil, ErrVideoNotReady
	}

	reader, err := s.processedStore.Load(ctx, video.ProcessedStoragePath)
	if err != nil {
		return nil, nil, err
	}
	return reader, video, nil
}

// DownloadOriginal opens the as-uploaded file.
func (s *videoService) DownloadOriginal(ctx context.Context, publicID uuid.UUID, requesterID int64) (io.ReadCloser, *model.Video, error) {
	video, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, nil, err
	}
	if video.OwnerID != requesterID {
		return nil, nil, ErrNotOwner
	}

	reader, err := s.originalStore.Load(ctx, video.StoragePath)
	if err != nil {
		return nil, nil, err
	}
	return reader, video, nil
}

// validateUploadFilename rejects control characters, "..", and path
// separators in the client-supplied original filename.
func validateUploadFilename(filename string) error {
	if filename == "" {
		return ErrInvalidFilename
	}
	if strings.ContainsAny(filename, "/\\") || strings.Contains(filename, "..") {
		return ErrInvalidFilename
	}
	for _, r := range filename {
		if r < 0x20 || r == 0x7f {
			return ErrInvalidFilename
		}
	}
	return nil
}

// extensionOf returns the filename's extension including the leading dot,
// or "" if there is none.
func extensionOf(filename string) string {
	dot := strings.LastIndexByte(filename, '.')
	if dot < 0 {
		return ""
	}
	return filename[dot:]
}
