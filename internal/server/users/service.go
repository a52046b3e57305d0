// Package users implements account lifecycle: signup, login, sessions,
// profile updates, avatar and account deletion.
package users

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/iudanet/tasktracker/internal/crypto"
	"github.com/iudanet/tasktracker/internal/models"
	"github.com/iudanet/tasktracker/internal/server/apperr"
	"github.com/iudanet/tasktracker/internal/server/avatar"
	"github.com/iudanet/tasktracker/internal/server/mail"
	"github.com/iudanet/tasktracker/internal/server/storage"
	"github.com/iudanet/tasktracker/internal/validation"
)

const domain = "users"

// Sessions issues and revokes session tokens.
type Sessions interface {
	Issue(ctx context.Context, userID, userAgent string) (string, error)
	Revoke(ctx context.Context, userID, token string) error
	RevokeAll(ctx context.Context, userID string) (int, error)
	Sessions(ctx context.Context, userID string) ([]*models.Session, error)
}

// Notifier queues account notifications. It never fails the caller.
type Notifier interface {
	Enqueue(ctx context.Context, msg mail.Message)
}

// SignupInput holds signup fields.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Age      int
}

// Service provides user account operations.
type Service struct {
	store     storage.UserStorage
	sessions  Sessions
	notifier  Notifier
	hasher    *crypto.PasswordHasher
	logger    *slog.Logger
	now       func() time.Time
	dummyHash string
}

// NewService creates a new user service.
func NewService(logger *slog.Logger, store storage.UserStorage, sessions Sessions, hasher *crypto.PasswordHasher, notifier Notifier) (*Service, error) {
	// Хеш для несуществующих email: bcrypt выполняется всегда,
	// время ответа не выдает, зарегистрирован ли адрес
	dummy, err := hasher.Hash(uuid.New().String())
	if err != nil {
		return nil, oops.In(domain).Wrapf(err, "failed to prepare dummy hash")
	}

	return &Service{
		store:     store,
		sessions:  sessions,
		notifier:  notifier,
		hasher:    hasher,
		logger:    logger,
		now:       time.Now,
		dummyHash: dummy,
	}, nil
}

// Signup creates an account, opens the first session and queues a welcome mail.
func (s *Service) Signup(ctx context.Context, in SignupInput, userAgent string) (*models.User, string, error) {
	verr := apperr.NewValidationError()
	checkField(verr, "name", validation.ValidateName(in.Name))
	checkField(verr, "email", validation.ValidateEmail(in.Email))
	checkField(verr, "password", validation.ValidatePassword(in.Password))
	checkField(verr, "age", validation.ValidateAge(in.Age))
	if err := verr.Err(); err != nil {
		return nil, "", err
	}

	hash, err := s.hasher.Hash(strings.TrimSpace(in.Password))
	if err != nil {
		return nil, "", apperr.Upstream(domain, "hash password", err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(in.Name),
		Email:        models.NormalizeEmail(in.Email),
		PasswordHash: hash,
		Age:          in.Age,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return nil, "", apperr.FieldError("email", "is already taken")
		}
		return nil, "", apperr.Upstream(domain, "create user", err)
	}

	token, err := s.sessions.Issue(ctx, user.ID, userAgent)
	if err != nil {
		// Без сессии аккаунт не создается, иначе повторная регистрация упрется в занятый email
		if delErr := s.store.DeleteUser(context.WithoutCancel(ctx), user.ID); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to roll back user after session error",
				slog.String("user_id", user.ID),
				slog.Any("error", delErr))
		}
		return nil, "", err
	}

	s.notifier.Enqueue(ctx, mail.WelcomeMessage(user.Name, user.Email))

	s.logger.InfoContext(ctx, "user signed up", slog.String("user_id", user.ID))

	return user, token, nil
}

// Login checks credentials and opens a new session. Unknown email and wrong
// password produce the same apperr.ErrUnauthorized.
func (s *Service) Login(ctx context.Context, email, password, userAgent string) (*models.User, string, error) {
	user, err := s.store.GetUserByEmail(ctx, models.NormalizeEmail(email))
	if err != nil && !errors.Is(err, storage.ErrUserNotFound) {
		return nil, "", apperr.Upstream(domain, "get user by email", err)
	}

	hash := s.dummyHash
	if user != nil {
		hash = user.PasswordHash
	}

	verifyErr := s.hasher.Verify(strings.TrimSpace(password), hash)
	if user == nil || verifyErr != nil {
		if verifyErr != nil && !errors.Is(verifyErr, crypto.ErrPasswordMismatch) {
			s.logger.ErrorContext(ctx, "password verification failed", slog.Any("error", verifyErr))
		}
		s.logger.WarnContext(ctx, "login failed: invalid credentials")
		return nil, "", invalidCredentials()
	}

	token, err := s.sessions.Issue(ctx, user.ID, userAgent)
	if err != nil {
		return nil, "", err
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))

	return user, token, nil
}

// Logout revokes only the session of token.
func (s *Service) Logout(ctx context.Context, userID, token string) error {
	if err := s.sessions.Revoke(ctx, userID, token); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "user logged out", slog.String("user_id", userID))
	return nil
}

// LogoutAll revokes every session of the user.
func (s *Service) LogoutAll(ctx context.Context, userID string) (int, error) {
	n, err := s.sessions.RevokeAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "user logged out everywhere",
		slog.String("user_id", userID),
		slog.Int("sessions_revoked", n))
	return n, nil
}

// Sessions returns the open sessions of the user.
func (s *Service) Sessions(ctx context.Context, userID string) ([]*models.Session, error) {
	return s.sessions.Sessions(ctx, userID)
}

// Profile returns the current state of the user.
func (s *Service) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, s.mapError(err, "get user by id")
	}
	return user, nil
}

// UpdateProfile validates every provided field first and writes them in a
// single update. The password is rehashed only when provided.
func (s *Service) UpdateProfile(ctx context.Context, userID string, patch models.ProfilePatch) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, s.mapError(err, "get user by id")
	}

	if patch.IsEmpty() {
		return user, nil
	}

	verr := apperr.NewValidationError()
	if patch.Name != nil {
		checkField(verr, "name", validation.ValidateName(*patch.Name))
	}
	if patch.Email != nil {
		checkField(verr, "email", validation.ValidateEmail(*patch.Email))
	}
	if patch.Password != nil {
		checkField(verr, "password", validation.ValidatePassword(*patch.Password))
	}
	if patch.Age != nil {
		checkField(verr, "age", validation.ValidateAge(*patch.Age))
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	if patch.Name != nil {
		user.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Email != nil {
		user.Email = models.NormalizeEmail(*patch.Email)
	}
	if patch.Age != nil {
		user.Age = *patch.Age
	}
	if patch.Password != nil {
		hash, err := s.hasher.Hash(strings.TrimSpace(*patch.Password))
		if err != nil {
			return nil, apperr.Upstream(domain, "hash password", err)
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return nil, apperr.FieldError("email", "is already taken")
		}
		return nil, s.mapError(err, "update user")
	}

	return user, nil
}

// Delete removes the account with its tasks and sessions and queues a
// goodbye mail. The deleted user is returned.
func (s *Service) Delete(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, s.mapError(err, "get user by id")
	}

	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return nil, s.mapError(err, "delete user")
	}

	s.notifier.Enqueue(ctx, mail.GoodbyeMessage(user.Name, user.Email))

	s.logger.InfoContext(ctx, "user deleted", slog.String("user_id", userID))

	return user, nil
}

// SetAvatar validates and normalizes an upload and stores it.
func (s *Service) SetAvatar(ctx context.Context, userID, filename string, size int64, r io.Reader) error {
	if err := avatar.CheckUpload(filename, size); err != nil {
		return apperr.FieldError("avatar", err.Error())
	}

	img, err := avatar.Normalize(r)
	if err != nil {
		if errors.Is(err, avatar.ErrDecode) || errors.Is(err, avatar.ErrTooLarge) {
			return apperr.FieldError("avatar", err.Error())
		}
		return apperr.Upstream(domain, "normalize avatar", err)
	}

	if err := s.store.SetAvatar(ctx, userID, img); err != nil {
		return s.mapError(err, "set avatar")
	}
	return nil
}

// ClearAvatar removes the stored avatar.
func (s *Service) ClearAvatar(ctx context.Context, userID string) error {
	if err := s.store.SetAvatar(ctx, userID, nil); err != nil {
		return s.mapError(err, "clear avatar")
	}
	return nil
}

// Avatar returns the stored PNG of any user. Missing user or missing
// image both yield apperr.ErrNotFound.
func (s *Service) Avatar(ctx context.Context, userID string) ([]byte, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, s.mapError(err, "get user by id")
	}
	if !user.HasAvatar() {
		return nil, oops.In(domain).
			Code("AVATAR_NOT_FOUND").
			With("user_id", userID).
			Wrap(apperr.ErrNotFound)
	}
	return user.Avatar, nil
}

func (s *Service) mapError(err error, operation string) error {
	if errors.Is(err, storage.ErrUserNotFound) {
		return oops.In(domain).
			Code("USER_NOT_FOUND").
			With("operation", operation).
			Wrap(errors.Join(apperr.ErrNotFound, err))
	}
	return apperr.Upstream(domain, operation, err)
}

func invalidCredentials() error {
	return oops.In(domain).
		Code("INVALID_CREDENTIALS").
		Wrap(apperr.ErrUnauthorized)
}

func checkField(verr *apperr.ValidationError, field string, err error) {
	if err != nil {
		verr.Add(field, err.Error())
	}
}
