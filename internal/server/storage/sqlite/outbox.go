package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iudanet/tasktracker/internal/models"
	"github.com/iudanet/tasktracker/internal/server/storage"
)

// EnqueueMail stores a new message in the outbox and sets its ID
func (s *Storage) EnqueueMail(ctx context.Context, mail *models.OutboundMail) error {
	query := `
		INSERT INTO mail_outbox (recipient, subject, body, attempts, last_error, created_at)
		VALUES (?, ?, ?, 0, '', ?)
	`

	if mail.CreatedAt.IsZero() {
		mail.CreatedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, query,
		mail.To,
		mail.Subject,
		mail.Body,
		timeToUnix(mail.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue mail: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get mail id: %w", err)
	}

	mail.ID = id
	mail.Attempts = 0
	mail.LastError = ""

	return nil
}

// PendingMail returns unsent messages that still have attempts left
func (s *Storage) PendingMail(ctx context.Context, maxAttempts, limit int) ([]*models.OutboundMail, error) {
	query := `
		SELECT id, recipient, subject, body, attempts, last_error, created_at, sent_at
		FROM mail_outbox
		WHERE sent_at IS NULL AND attempts < ?
		ORDER BY id ASC
		LIMIT ?
	`

	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, query, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.OutboundMail, 0)
	for rows.Next() {
		m := &models.OutboundMail{}
		var createdAt int64
		var sentAt sql.NullInt64

		if err := rows.Scan(
			&m.ID,
			&m.To,
			&m.Subject,
			&m.Body,
			&m.Attempts,
			&m.LastError,
			&createdAt,
			&sentAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan mail: %w", err)
		}

		m.CreatedAt = unixToTime(createdAt)
		if sentAt.Valid {
			t := unixToTime(sentAt.Int64)
			m.SentAt = &t
		}

		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox: %w", err)
	}

	return messages, nil
}

// MarkMailSent marks message as delivered
func (s *Storage) MarkMailSent(ctx context.Context, id int64, sentAt time.Time) error {
	query := `UPDATE mail_outbox SET sent_at = ?, attempts = attempts + 1, last_error = '' WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, timeToUnix(sentAt), id)
	if err != nil {
		return fmt.Errorf("failed to mark mail sent: %w", err)
	}

	return expectAffected(result, storage.ErrMailNotFound)
}

// MarkMailFailed records a failed delivery attempt
func (s *Storage) MarkMailFailed(ctx context.Context, id int64, lastError string) error {
	query := `UPDATE mail_outbox SET attempts = attempts + 1, last_error = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, lastError, id)
	if err != nil {
		return fmt.Errorf("failed to mark mail failed: %w", err)
	}

	return expectAffected(result, storage.ErrMailNotFound)
}
