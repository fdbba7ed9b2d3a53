package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/hszk-dev/gostream/internal/domain/repository"
)

func TestClient_Store(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		body     string
		preWrite bool
		wantErr  error
	}{
		{name: "successful store", filename: "abc.mp4", body: "data"},
		{name: "empty file rejected", filename: "empty.mp4", body: "", wantErr: ErrInvalidFilename},
		{name: "path separator rejected", filename: "nested/abc.mp4", body: "data", wantErr: ErrInvalidFilename},
		{name: "backslash rejected", filename: `nested\abc.mp4`, body: "data", wantErr: ErrInvalidFilename},
		{name: "dot-dot rejected", filename: "../abc.mp4", body: "data", wantErr: ErrInvalidFilename},
		{name: "collision rejected", filename: "dup.mp4", body: "data", preWrite: true, wantErr: ErrAlreadyExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(t.TempDir())
			if err != nil {
				t.Fatalf("NewClient() error = %v", err)
			}

			if tt.preWrite {
				if _, err := c.Store(context.Background(), tt.filename, bytes.NewBufferString("existing")); err != nil {
					t.Fatalf("pre-write failed: %v", err)
				}
			}

			key, err := c.Store(context.Background(), tt.filename, bytes.NewBufferString(tt.body))

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Store() error = %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("Store() unexpected error = %v", err)
			}
			if key != tt.filename {
				t.Errorf("Store() key = %v, want %v", key, tt.filename)
			}
		})
	}
}

func TestClient_StoreRejectsEscapeViaJoin(t *testing.T) {
	c, err := NewClient(t.TempDir())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	// ".." is rejected by validateFilename before resolve ever runs, but
	// confirm the defense-in-depth containment check also holds for any
	// filename that manages to normalize outside root.
	_, err = c.resolve("..")
	if err == nil {
		t.Error("resolve(\"..\") should fail containment check")
	}
}

func TestClient_Load(t *testing.T) {
	c, err := NewClient(t.TempDir())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := c.Store(context.Background(), "real.mp4", bytes.NewBufferString("hello")); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	t.Run("existing object", func(t *testing.T) {
		r, err := c.Load(context.Background(), "real.mp4")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		defer r.Close()

		data, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if string(data) != "hello" {
			t.Errorf("data = %q, want %q", data, "hello")
		}
	})

	t.Run("missing object", func(t *testing.T) {
		_, err := c.Load(context.Background(), "missing.mp4")
		if !errors.Is(err, repository.ErrObjectNotFound) {
			t.Errorf("Load() error = %v, want %v", err, repository.ErrObjectNotFound)
		}
	})

	t.Run("traversal rejected", func(t *testing.T) {
		_, err := c.Load(context.Background(), "../real.mp4")
		if !errors.Is(err, ErrInvalidFilename) {
			t.Errorf("Load() error = %v, want %v", err, ErrInvalidFilename)
		}
	})
}

func TestClient_Delete(t *testing.T) {
	c, err := NewClient(t.TempDir())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := c.Store(context.Background(), "gone.mp4", bytes.NewBufferString("x")); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	if err := c.Delete(context.Background(), "gone.mp4"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	// Idempotent: deleting an already-missing file is not an error.
	if err := c.Delete(context.Background(), "gone.mp4"); err != nil {
		t.Errorf("Delete() second call error = %v, want nil", err)
	}
}

func TestClient_Exists(t *testing.T) {
	c, err := NewClient(t.TempDir())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := c.Store(context.Background(), "here.mp4", bytes.NewBufferString("x")); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	exists, err := c.Exists(context.Background(), "here.mp4")
	if err != nil || !exists {
		t.Errorf("Exists() = %v, %v, want true, nil", exists, err)
	}

	exists, err = c.Exists(context.Background(), "nope.mp4")
	if err != nil || exists {
		t.Errorf("Exists() = %v, %v, want false, nil", exists, err)
	}
}

func TestNewClient_CreatesRootDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "blobs")

	c, err := NewClient(root)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	info, err := os.Stat(c.Root())
	if err != nil || !info.IsDir() {
		t.Errorf("expected root directory to exist, stat error = %v", err)
	}
}
