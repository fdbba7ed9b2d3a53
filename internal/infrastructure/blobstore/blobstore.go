// Package blobstore implements a content-addressed filesystem blob store:
// a root directory rooted at init time, with path-traversal-safe resolve,
// exclusive-create streaming write, and best-effort delete. The write is not
// atomic: bytes stream straight into the final name, so the partial file is
// visible while the copy runs; it is removed if the copy fails or is empty.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hszk-dev/gostream/internal/domain/repository"
	"github.com/hszk-dev/gostream/internal/infrastructure/metrics"
)

// ErrInvalidFilename is returned when a caller-supplied filename contains a
// path separator or a "..", and on any attempt to write or read outside root.
var ErrInvalidFilename = errors.New("invalid filename")

// ErrAlreadyExists is returned by Store when a file already exists at the
// requested filename (UUID collision protection).
var ErrAlreadyExists = errors.New("object already exists")

// Client implements repository.ObjectStorage over a local directory.
type Client struct {
	root string
}

// NewClient creates the root directory if absent and returns a Client
// rooted there.
func NewClient(root string) (*Client, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve blob store root: %w", err)
	}
	if err := os.MkdirAll(absRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create blob store root: %w", err)
	}
	return &Client{root: absRoot}, nil
}

// Root returns the configured root directory.
func (c *Client) Root() string {
	return c.root
}

// PathFor returns the absolute filesystem path for key, for callers (the
// processing orchestrator) that must hand a real path to an external
// subprocess rather than read through io.Reader/Writer. Subject to the same
// containment check as Load/Store.
func (c *Client) PathFor(key string) (string, error) {
	if err := validateFilename(key); err != nil {
		return "", err
	}
	return c.resolve(key)
}

// Store writes reader's bytes under filename via a single streaming copy and
// returns filename unchanged as the storage key. Fails if filename contains
// a path separator or "..", if an object already exists at that name, or if
// the resolved destination would escape the root.
func (c *Client) Store(ctx context.Context, filename string, reader io.Reader) (key string, err error) {
	defer func() { recordBlobOp(metrics.BlobOpStore, err) }()

	if err = validateFilename(filename); err != nil {
		return "", err
	}

	dest, err := c.resolve(filename)
	if err != nil {
		return "", err
	}

	if _, statErr := os.Stat(dest); statErr == nil {
		err = ErrAlreadyExists
		return "", err
	} else if !errors.Is(statErr, os.ErrNotExist) {
		err = fmt.Errorf("stat destination: %w", statErr)
		return "", err
	}

	f, openErr := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if openErr != nil {
		if errors.Is(openErr, os.ErrExist) {
			err = ErrAlreadyExists
			return "", err
		}
		err = fmt.Errorf("open destination for write: %w", openErr)
		return "", err
	}
	defer f.Close()

	written, copyErr := io.Copy(f, reader)
	if copyErr != nil {
		_ = os.Remove(dest)
		err = fmt.Errorf("write object: %w", copyErr)
		return "", err
	}
	if written == 0 {
		_ = os.Remove(dest)
		err = fmt.Errorf("%w: empty file", ErrInvalidFilename)
		return "", err
	}

	return filename, nil
}

// Load opens the object addressed by key for reading.
func (c *Client) Load(ctx context.Context, key string) (rc io.ReadCloser, err error) {
	defer func() { recordBlobOp(metrics.BlobOpLoad, err) }()

	if err = validateFilename(key); err != nil {
		return nil, err
	}

	path, resolveErr := c.resolve(key)
	if resolveErr != nil {
		err = resolveErr
		return nil, err
	}

	f, openErr := os.Open(path)
	if openErr != nil {
		if errors.Is(openErr, os.ErrNotExist) || errors.Is(openErr, os.ErrPermission) {
			err = repository.ErrObjectNotFound
			return nil, err
		}
		err = fmt.Errorf("open object: %w", openErr)
		return nil, err
	}
	return f, nil
}

// Delete removes the object addressed by key. Idempotent: a missing file is
// logged at WARN level, not returned as an error.
func (c *Client) Delete(ctx context.Context, key string) (err error) {
	defer func() { recordBlobOp(metrics.BlobOpDelete, err) }()

	if err = validateFilename(key); err != nil {
		return err
	}

	path, resolveErr := c.resolve(key)
	if resolveErr != nil {
		err = resolveErr
		return err
	}

	if removeErr := os.Remove(path); removeErr != nil {
		if errors.Is(removeErr, os.ErrNotExist) {
			slog.Warn("delete: object already absent", "key", key)
			return nil
		}
		err = fmt.Errorf("delete object: %w", removeErr)
		return err
	}
	return nil
}

// recordBlobOp increments BlobStoreOperationsTotal for operation, labeled by
// whether the call returned an error.
func recordBlobOp(operation string, err error) {
	status := metrics.BlobStatusSuccess
	if err != nil {
		status = metrics.BlobStatusError
	}
	metrics.BlobStoreOperationsTotal.WithLabelValues(operation, status).Inc()
}

// Exists reports whether an object addressed by key is present.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateFilename(key); err != nil {
		return false, err
	}

	path, err := c.resolve(key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat object: %w", err)
	}
	return true, nil
}

// resolve normalizes key against the root and re-checks containment,
// defense in depth beyond validateFilename.
func (c *Client) resolve(key string) (string, error) {
	joined := filepath.Join(c.root, key)
	clean := filepath.Clean(joined)

	rootWithSep := c.root + string(os.PathSeparator)
	if clean != c.root && !strings.HasPrefix(clean, rootWithSep) {
		return "", fmt.Errorf("%w: escapes root", ErrInvalidFilename)
	}
	return clean, nil
}

func validateFilename(filename string) error {
	if filename == "" {
		return fmt.Errorf("%w: empty", ErrInvalidFilename)
	}
	if strings.ContainsAny(filename, `/\`) {
		return fmt.Errorf("%w: contains path separator", ErrInvalidFilename)
	}
	if strings.Contains(filename, "..") {
		return fmt.Errorf("%w: contains '..'", ErrInvalidFilename)
	}
	return nil
}

// Compile-time verification that Client implements repository.ObjectStorage.
var _ repository.ObjectStorage = (*Client)(nil)
