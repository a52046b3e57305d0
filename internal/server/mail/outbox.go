package mail

import (
	"context"
	"log/slog"

	"github.com/iudanet/tasktracker/internal/models"
	"github.com/iudanet/tasktracker/internal/server/storage"
)

// Outbox queues messages for the Worker.
type Outbox struct {
	store  storage.OutboxStorage
	logger *slog.Logger
	nudge  chan struct{}
}

// NewOutbox creates an outbox backed by store.
func NewOutbox(logger *slog.Logger, store storage.OutboxStorage) *Outbox {
	return &Outbox{
		store:  store,
		logger: logger,
		nudge:  make(chan struct{}, 1),
	}
}

// Enqueue stores msg and wakes the worker. Failures are logged and
// swallowed: a lost notification must not fail the caller's operation.
func (o *Outbox) Enqueue(ctx context.Context, msg Message) {
	mail := &models.OutboundMail{
		To:      msg.To,
		Subject: msg.Subject,
		Body:    msg.Body,
	}

	if err := o.store.EnqueueMail(ctx, mail); err != nil {
		o.logger.ErrorContext(ctx, "failed to enqueue mail",
			slog.String("subject", msg.Subject),
			slog.Any("error", err))
		return
	}

	select {
	case o.nudge <- struct{}{}:
	default:
	}
}

// Notify returns the channel signalled after each successful Enqueue.
func (o *Outbox) Notify() <-chan struct{} {
	return o.nudge
}
