package repository

import "errors"

var (
	// ErrVideoNotFound is returned when a video cannot be found.
	ErrVideoNotFound = errors.New("video not found")

	// ErrDuplicateStoragePath is returned when a storagePath or
	// processedStoragePath value collides with an existing row.
	ErrDuplicateStoragePath = errors.New("storage path already in use")

	// ErrVersionConflict is returned when an optimistic-locking update observes
	// a stale version; the caller lost a race with a concurrent writer.
	ErrVersionConflict = errors.New("video was modified concurrently")

	// ErrIllegalTransition is returned when a status transition's precondition
	// is not met (e.g. toReady called on a video that is not PROCESSING).
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrUserNotFound is returned when a user cannot be found.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateUsername is returned when registering an already-taken username.
	ErrDuplicateUsername = errors.New("username already taken")

	// ErrObjectNotFound is returned when a blob store key cannot be resolved.
	ErrObjectNotFound = errors.New("object not found")
)
