package storage

import (
	"context"

	"github.com/iudanet/tasktracker/internal/models"
)

// UserStorage defines interface for user data persistence
type UserStorage interface {
	// CreateUser creates a new user in the storage
	// Returns ErrEmailTaken if email is already used
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves user by normalized email
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves user by ID
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// UpdateUser updates profile fields (name, email, password hash, age)
	// Returns ErrUserNotFound if user doesn't exist, ErrEmailTaken on email conflict
	UpdateUser(ctx context.Context, user *models.User) error

	// SetAvatar replaces the avatar image, nil clears it
	// Returns ErrUserNotFound if user doesn't exist
	SetAvatar(ctx context.Context, userID string, avatar []byte) error

	// DeleteUser deletes user by ID together with the user's tasks and sessions
	// Returns ErrUserNotFound if user doesn't exist
	DeleteUser(ctx context.Context, userID string) error
}
