package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/hszk-dev/gostream/internal/domain/model"
)

// VideoStatusChanged is emitted by the Status Updater strictly after the
// transaction that produced it has committed.
type VideoStatusChanged struct {
	PublicID      uuid.UUID
	OwnerUsername string
	Status        model.Status
	Message       string
	OccurredAt    time.Time
}

// EventPublisher hands a committed status-change event off to whatever
// in-process listener delivers it to SSE subscribers. Publish must never
// block the caller's transaction-commit path; implementations buffer or
// dispatch asynchronously.
type EventPublisher interface {
	Publish(event VideoStatusChanged)
}
