package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hszk-dev/gostream/internal/domain/repository"
)

// VideoUnitOfWork implements repository.VideoUnitOfWork over a pgxpool.Pool,
// giving each Status Updater operation (spec.md §4.C) its own transaction.
type VideoUnitOfWork struct {
	pool *pgxpool.Pool
}

// NewVideoUnitOfWork creates a VideoUnitOfWork backed by pool.
func NewVideoUnitOfWork(pool *pgxpool.Pool) *VideoUnitOfWork {
	return &VideoUnitOfWork{pool: pool}
}

// WithinTx begins a transaction, runs fn against a VideoRepository scoped to
// it, and commits iff fn returns nil. Any error from fn or from the commit
// itself leaves the transaction rolled back.
func (u *VideoUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, repo repository.VideoRepository) error) error {
	tx, err := u.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	repo := NewVideoRepository(tx)
	if err := fn(ctx, repo); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

var _ repository.VideoUnitOfWork = (*VideoUnitOfWork)(nil)
