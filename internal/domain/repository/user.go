package repository

import (
	"context"

	"github.com/hszk-dev/gostream/internal/domain/model"
)

// UserRepository defines the interface for user persistence operations.
// Implementations should be provided by the infrastructure layer (e.g., PostgreSQL).
type UserRepository interface {
	// FindByID retrieves a user by internal numeric identifier.
	// Returns ErrUserNotFound if the user does not exist.
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByUsername retrieves a user by username.
	// Returns ErrUserNotFound if the user does not exist.
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// FindByEmail retrieves a user by email.
	// Returns ErrUserNotFound if the user does not exist.
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Save inserts a new user or updates an existing one.
	// Returns ErrDuplicateUsername on a unique-constraint violation.
	Save(ctx context.Context, user *model.User) (*model.User, error)
}
