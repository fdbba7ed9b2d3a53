package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hszk-dev/gostream/internal/domain/model"
	"github.com/hszk-dev/gostream/internal/domain/repository"
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const selectUserColumns = `id, username, email, hashed_password, role, verified`

// FindByID retrieves a user by internal numeric identifier.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, selectUserColumns)

	user, err := r.scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return user, nil
}

// FindByUsername retrieves a user by username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE username = $1`, selectUserColumns)

	user, err := r.scanUser(r.db.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return user, nil
}

// FindByEmail retrieves a user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, selectUserColumns)

	user, err := r.scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return user, nil
}

// Save inserts a new user or updates an existing one.
func (r *UserRepository) Save(ctx context.Context, user *model.User) (*model.User, error) {
	if user.ID == 0 {
		return r.insert(ctx, user)
	}
	return r.updateExisting(ctx, user)
}

func (r *UserRepository) insert(ctx context.Context, user *model.User) (*model.User, error) {
	const query = `
		INSERT INTO users (username, email, hashed_password, role, verified)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	row := r.db.QueryRow(ctx, query, user.Username, user.Email, user.HashedPassword, string(user.Role), user.Verified)

	var id int64
	if err := row.Scan(&id); err != nil {
		if pgErr := asPgError(err); pgErr != nil && pgErr.Code == "23505" {
			return nil, repository.ErrDuplicateUsername
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	saved := *user
	saved.ID = id
	return &saved, nil
}

func (r *UserRepository) updateExisting(ctx context.Context, user *model.User) (*model.User, error) {
	const query = `
		UPDATE users
		SET email = $2, hashed_password = $3, role = $4, verified = $5
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, user.ID, user.Email, user.HashedPassword, string(user.Role), user.Verified)
	if err != nil {
		if pgErr := asPgError(err); pgErr != nil && pgErr.Code == "23505" {
			return nil, repository.ErrDuplicateUsername
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, repository.ErrUserNotFound
	}

	saved := *user
	return &saved, nil
}

func (r *UserRepository) scanUser(row pgx.Row) (*model.User, error) {
	var (
		u    model.User
		role string
	)

	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.HashedPassword, &role, &u.Verified); err != nil {
		return nil, err
	}

	u.Role = model.Role(role)
	return &u, nil
}

// Compile-time verification that UserRepository implements repository.UserRepository.
var _ repository.UserRepository = (*UserRepository)(nil)
