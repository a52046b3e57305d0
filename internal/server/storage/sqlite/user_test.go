package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/tasktracker/internal/models"
	"github.com/iudanet/tasktracker/internal/server/storage"
)

func newUser(email string) *models.User {
	now := time.Now().UTC()
	return &models.User{
		ID:           uuid.New().String(),
		Name:         "Jane",
		Email:        email,
		PasswordHash: "hash",
		Age:          30,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUserStorage_CreateUser(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	tests := []struct {
		wantError error
		user      *models.User
		name      string
	}{
		{
			name:      "create new user successfully",
			user:      newUser("jane@example.com"),
			wantError: nil,
		},
		{
			name:      "duplicate email",
			user:      newUser("jane@example.com"),
			wantError: storage.ErrEmailTaken,
		},
		{
			name:      "duplicate email differs only by case",
			user:      newUser("JANE@example.com"),
			wantError: storage.ErrEmailTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.CreateUser(ctx, tt.user)
			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)

			retrieved, err := s.GetUserByID(ctx, tt.user.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.user.Name, retrieved.Name)
			assert.Equal(t, tt.user.Email, retrieved.Email)
			assert.Equal(t, tt.user.PasswordHash, retrieved.PasswordHash)
			assert.Equal(t, tt.user.Age, retrieved.Age)
			assert.True(t, tt.user.CreatedAt.Equal(retrieved.CreatedAt))
			assert.False(t, retrieved.HasAvatar())
		})
	}
}

func TestUserStorage_GetUser(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	user := newUser("bob@example.com")
	require.NoError(t, s.CreateUser(ctx, user))

	t.Run("by email", func(t *testing.T) {
		got, err := s.GetUserByEmail(ctx, "bob@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := s.GetUserByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, storage.ErrUserNotFound)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := s.GetUserByID(ctx, uuid.New().String())
		assert.ErrorIs(t, err, storage.ErrUserNotFound)
	})
}

func TestUserStorage_UpdateUser(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	user := newUser("first@example.com")
	require.NoError(t, s.CreateUser(ctx, user))
	other := newUser("second@example.com")
	require.NoError(t, s.CreateUser(ctx, other))

	t.Run("update profile fields", func(t *testing.T) {
		user.Name = "Renamed"
		user.Age = 41
		user.PasswordHash = "newhash"
		user.UpdatedAt = time.Now().UTC().Add(time.Minute)

		require.NoError(t, s.UpdateUser(ctx, user))

		got, err := s.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Name)
		assert.Equal(t, 41, got.Age)
		assert.Equal(t, "newhash", got.PasswordHash)
		assert.True(t, user.UpdatedAt.Equal(got.UpdatedAt))
	})

	t.Run("email taken by another user", func(t *testing.T) {
		changed := *user
		changed.Email = other.Email
		assert.ErrorIs(t, s.UpdateUser(ctx, &changed), storage.ErrEmailTaken)
	})

	t.Run("missing user", func(t *testing.T) {
		ghost := newUser("ghost@example.com")
		assert.ErrorIs(t, s.UpdateUser(ctx, ghost), storage.ErrUserNotFound)
	})
}

func TestUserStorage_SetAvatar(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)

	require.NoError(t, s.SetAvatar(ctx, userID, []byte{0x89, 'P', 'N', 'G'}))
	got, err := s.GetUserByID(ctx, userID)
	require.NoError(t, err)
	assert.True(t, got.HasAvatar())
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, got.Avatar)

	require.NoError(t, s.SetAvatar(ctx, userID, nil))
	got, err = s.GetUserByID(ctx, userID)
	require.NoError(t, err)
	assert.False(t, got.HasAvatar())

	assert.ErrorIs(t, s.SetAvatar(ctx, uuid.New().String(), nil), storage.ErrUserNotFound)
}

func TestUserStorage_DeleteUser(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)
	keepID := createTestUser(t, ctx, s)

	for _, owner := range []string{userID, userID, keepID} {
		require.NoError(t, s.CreateTask(ctx, newTask(owner, "task", time.Now().UTC())))
	}
	require.NoError(t, s.CreateSession(ctx, newSession(userID, "h1")))
	require.NoError(t, s.CreateSession(ctx, newSession(keepID, "h2")))

	require.NoError(t, s.DeleteUser(ctx, userID))

	_, err := s.GetUserByID(ctx, userID)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	var count int
	require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE owner_id = ?`, userID).Scan(&count))
	assert.Zero(t, count)

	sessions, err := s.GetUserSessions(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	// Данные другого пользователя остаются
	kept, err := s.ListTasks(ctx, keepID, noQuery)
	require.NoError(t, err)
	assert.Len(t, kept, 1)
	_, err = s.GetSessionByTokenHash(ctx, "h2")
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteUser(ctx, userID), storage.ErrUserNotFound)
}
