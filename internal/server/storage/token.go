package storage

import (
	"context"

	"github.com/iudanet/tasktracker/internal/models"
)

// SessionStorage defines interface for session (issued token) persistence.
// Sessions are keyed by the SHA256 hash of the token.
type SessionStorage interface {
	// CreateSession stores a new session
	CreateSession(ctx context.Context, session *models.Session) error

	// GetSessionByTokenHash retrieves session by token hash
	// Returns ErrSessionNotFound if session doesn't exist
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)

	// GetUserSessions retrieves all sessions for a user, oldest first
	// Returns empty slice if no sessions found
	GetUserSessions(ctx context.Context, userID string) ([]*models.Session, error)

	// DeleteSession deletes the session with this token hash owned by userID
	// Returns ErrSessionNotFound if no such session
	DeleteSession(ctx context.Context, userID, tokenHash string) error

	// DeleteUserSessions deletes all sessions for a user
	// Returns number of deleted sessions
	DeleteUserSessions(ctx context.Context, userID string) (int, error)
}
