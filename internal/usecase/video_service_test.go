package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/hszk-dev/gostream/internal/domain/model"
	"github.com/hszk-dev/gostream/internal/domain/repository"
	"github.com/hszk-dev/gostream/internal/infrastructure/blobstore"
)

func validMP4Payload(t *testing.T, size int) []byte {
	t.Helper()
	if size < 8 {
		t.Fatalf("size must be >= 8, got %d", size)
	}
	buf := make([]byte, size)
	copy(buf[4:8], "ftyp")
	return buf
}

func newVideoServiceUnderTest(t *testing.T, repo *mockVideoRepository, originals, processed *mockObjectStorage, maxBytes int64) *videoService {
	t.Helper()
	tempStore, err := blobstore.NewClient(filepath.Join(t.TempDir(), "temp"))
	if err != nil {
		t.Fatalf("create temp store: %v", err)
	}
	processedStore, err := blobstore.NewClient(filepath.Join(t.TempDir(), "processed"))
	if err != nil {
		t.Fatalf("create processed store: %v", err)
	}

	updater := NewStatusUpdater(&mockVideoUnitOfWork{repo: repo}, &mockEventPublisher{}, nil)
	pool := NewWorkerPool(context.Background(), 1)
	orch := NewProcessingOrchestrator(repo, originals, tempStore, processedStore, &mockTranscoder{}, updater, pool, 0)
	return &videoService{
		repo:           repo,
		originalStore:  originals,
		processedStore: processed,
		statusUpdater:  updater,
		orchestrator:   orch,
		maxUploadBytes: maxBytes,
	}
}

func TestVideoService_Upload(t *testing.T) {
	tests := []struct {
		name    string
		input   UploadVideoInput
		wantErr error
	}{
		{
			name: "valid upload succeeds",
			input: UploadVideoInput{
				OwnerID:     1,
				Description: "a video",
				Filename:    "clip.mp4",
				ContentType: "video/mp4",
				Size:        1024,
				Data:        bytes.NewReader(validMP4Payload(t, 1024)),
			},
		},
		{
			name: "zero size rejected",
			input: UploadVideoInput{
				OwnerID: 1, Filename: "clip.mp4", ContentType: "video/mp4", Size: 0,
				Data: bytes.NewReader(nil),
			},
			wantErr: ErrEmptyUpload,
		},
		{
			name: "over max size rejected",
			input: UploadVideoInput{
				OwnerID: 1, Filename: "clip.mp4", ContentType: "video/mp4", Size: 2048,
				Data: bytes.NewReader(validMP4Payload(t, 2048)),
			},
			wantErr: ErrUploadTooLarge,
		},
		{
			name: "path separator in filename rejected",
			input: UploadVideoInput{
				OwnerID: 1, Filename: "../etc/passwd.mp4", ContentType: "video/mp4", Size: 1024,
				Data: bytes.NewReader(validMP4Payload(t, 1024)),
			},
			wantErr: ErrInvalidFilename,
		},
		{
			name: "wrong extension rejected",
			input: UploadVideoInput{
				OwnerID: 1, Filename: "clip.mov", ContentType: "video/mp4", Size: 1024,
				Data: bytes.NewReader(validMP4Payload(t, 1024)),
			},
			wantErr: ErrInvalidExtension,
		},
		{
			name: "wrong content type rejected",
			input: UploadVideoInput{
				OwnerID: 1, Filename: "clip.mp4", ContentType: "application/octet-stream", Size: 1024,
				Data: bytes.NewReader(validMP4Payload(t, 1024)),
			},
			wantErr: ErrInvalidContentType,
		},
		{
			name: "bad magic bytes rejected",
			input: UploadVideoInput{
				OwnerID: 1, Filename: "clip.mp4", ContentType: "video/mp4", Size: 1024,
				Data: bytes.NewReader(bytes.Repeat([]byte{0x00}, 1024)),
			},
			wantErr: ErrInvalidMagicBytes,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockVideoRepository{
				saveFn: func(ctx context.Context, v *model.Video) (*model.Video, error) {
					return v, nil
				},
			}
			var stored []byte
			originals := &mockObjectStorage{
				storeFn: func(ctx context.Context, filename string, reader io.Reader) (string, error) {
					b, err := io.ReadAll(reader)
					if err != nil {
						return "", err
					}
					stored = b
					return filename, nil
				},
			}
			svc := newVideoServiceUnderTest(t, repo, originals, &mockObjectStorage{}, 1024)

			video, err := svc.Upload(context.Background(), tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if video.Status != model.StatusUploaded {
				t.Errorf("expected status UPLOADED, got %s", video.Status)
			}
			if !strings.HasSuffix(video.StoragePath, ".mp4") {
				t.Errorf("expected storage path with .mp4 suffix, got %q", video.StoragePath)
			}
			if int64(len(stored)) != tt.input.Size {
				t.Errorf("expected %d bytes stored, got %d", tt.input.Size, len(stored))
			}
		})
	}
}

func TestVideoService_Get_OwnershipCheck(t *testing.T) {
	video := newTestVideo(model.StatusReady)
	video.OwnerID = 7

	repo := &mockVideoRepository{
		findByPublicIDFn: func(ctx context.Context, publicID uuid.UUID) (*model.Video, error) {
			return video, nil
		},
	}
	svc := newVideoServiceUnderTest(t, repo, &mockObjectStorage{}, &mockObjectStorage{}, 1024)

	if _, err := svc.Get(context.Background(), video.PublicID, 7); err != nil {
		t.Fatalf("owner should be able to read: %v", err)
	}
	if _, err := svc.Get(context.Background(), video.PublicID, 99); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
}

func TestVideoService_TriggerProcess(t *testing.T) {
	tests := []struct {
		name    string
		status  model.Status
		wantErr error
	}{
		{name: "UPLOADED triggers processing", status: model.StatusUploaded},
		{name: "READY re-triggers processing", status: model.StatusReady},
		{name: "FAILED re-triggers processing", status: model.StatusFailed},
		{name: "already PROCESSING is rejected", status: model.StatusProcessing, wantErr: ErrAlreadyProcessing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			video := newTestVideo(tt.status)
			video.OwnerID = 7

			repo := &mockVideoRepository{
				findByPublicIDFn: func(ctx context.Context, publicID uuid.UUID) (*model.Video, error) {
					return video, nil
				},
				findByIDFn: func(ctx context.Context, id int64) (*model.Video, error) {
					return video, nil
				},
				saveFn: func(ctx context.Context, v *model.Video) (*model.Video, error) {
					return v, nil
				},
			}
			svc := newVideoServiceUnderTest(t, repo, &mockObjectStorage{}, &mockObjectStorage{}, 1024)

			err := svc.TriggerProcess(context.Background(), video.PublicID, 7, model.EditOptions{})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestVideoService_TriggerProcess_NotOwner(t *testing.T) {
	video := newTestVideo(model.StatusUploaded)
	video.OwnerID = 7

	repo := &mockVideoRepository{
		findByPublicIDFn: func(ctx context.Context, publicID uuid.UUID) (*model.Video, error) {
			return video, nil
		},
	}
	svc := newVideoServiceUnderTest(t, repo, &mockObjectStorage{}, &mockObjectStorage{}, 1024)

	err := svc.TriggerProcess(context.Background(), video.PublicID, 99, model.EditOptions{})
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
}

func TestVideoService_Delete_BestEffortStorageCleanup(t *testing.T) {
	video := newTestVideo(model.StatusReady)
	video.OwnerID = 7
	video.ProcessedStoragePath = "processed-key.mp4"

	var deletedOriginal, deletedProcessed string
	repo := &mockVideoRepository{
		findByPublicIDFn: func(ctx context.Context, publicID uuid.UUID) (*model.Video, error) {
			return video, nil
		},
		deleteFn: func(ctx context.Context, v *model.Video) error {
			return nil
		},
	}
	originals := &mockObjectStorage{
		deleteFn: func(ctx context.Context, key string) error {
			deletedOriginal = key
			return nil
		},
	}
	processed := &mockObjectStorage{
		deleteFn: func(ctx context.Context, key string) error {
			deletedProcessed = key
			return nil
		},
	}
	svc := newVideoServiceUnderTest(t, repo, originals, processed, 1024)

	if err := svc.Delete(context.Background(), video.PublicID, 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deletedOriginal != video.StoragePath {
		t.Errorf("expected original deleted at %q, got %q", video.StoragePath, deletedOriginal)
	}
	if deletedProcessed != video.ProcessedStoragePath {
		t.Errorf("expected processed deleted at %q, got %q", video.ProcessedStoragePath, deletedProcessed)
	}
}

func TestVideoService_DownloadProcessed_NotReady(t *testing.T) {
	video := newTestVideo(model.StatusProcessing)
	video.OwnerID = 7

	repo := &mockVideoRepository{
		findByPublicIDFn: func(ctx context.Context, publicID uuid.UUID) (*model.Video, error) {
			return video, nil
		},
	}
	svc := newVideoServiceUnderTest(t, repo, &mockObjectStorage{}, &mockObjectStorage{}, 1024)

	_, _, err := svc.DownloadProcessed(context.Background(), video.PublicID, 7)
	if !errors.Is(err, ErrVideoNotReady) {
		t.Fatalf("expected ErrVideoNotReady, got %v", err)
	}
}

func TestVideoService_List(t *testing.T) {
	repo := &mockVideoRepository{
		findByOwnerUsernameFn: func(ctx context.Context, username string, page repository.Page) (*repository.PagedVideos, error) {
			if username != "alice" {
				t.Errorf("unexpected username: %s", username)
			}
			return &repository.PagedVideos{TotalCount: 0, Page: page}, nil
		},
	}
	svc := newVideoServiceUnderTest(t, repo, &mockObjectStorage{}, &mockObjectStorage{}, 1024)

	if _, err := svc.List(context.Background(), "alice", repository.Page{Number: 0, Size: 10}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
