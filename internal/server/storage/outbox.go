package storage

import (
	"context"
	"time"

	"github.com/iudanet/tasktracker/internal/models"
)

// OutboxStorage defines interface for the outgoing mail queue
type OutboxStorage interface {
	// EnqueueMail stores a new message and sets its ID
	EnqueueMail(ctx context.Context, mail *models.OutboundMail) error

	// PendingMail returns unsent messages with fewer than maxAttempts attempts, oldest first
	PendingMail(ctx context.Context, maxAttempts, limit int) ([]*models.OutboundMail, error)

	// MarkMailSent marks message as delivered
	// Returns ErrMailNotFound if message doesn't exist
	MarkMailSent(ctx context.Context, id int64, sentAt time.Time) error

	// MarkMailFailed increments attempts and records the last error
	// Returns ErrMailNotFound if message doesn't exist
	MarkMailFailed(ctx context.Context, id int64, lastError string) error
}
