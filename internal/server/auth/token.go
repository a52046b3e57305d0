package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/iudanet/tasktracker/internal/crypto"
	"github.com/iudanet/tasktracker/internal/models"
	"github.com/iudanet/tasktracker/internal/server/apperr"
	"github.com/iudanet/tasktracker/internal/server/storage"
)

const domain = "auth"

// Identity is the authenticated caller bound to a request.
type Identity struct {
	User      *models.User
	UserID    string
	SessionID string
	Token     string
}

// TokenService signs session tokens and tracks them in session storage.
type TokenService struct {
	sessions storage.SessionStorage
	users    storage.UserStorage
	now      func() time.Time
	secret   []byte
}

// NewTokenService creates a TokenService signing with secret.
func NewTokenService(secret []byte, sessions storage.SessionStorage, users storage.UserStorage) *TokenService {
	return &TokenService{
		secret:   secret,
		sessions: sessions,
		users:    users,
		now:      time.Now,
	}
}

// Issue signs a new token for userID and stores its session.
// A user may hold any number of sessions at once.
func (s *TokenService) Issue(ctx context.Context, userID, userAgent string) (string, error) {
	now := s.now().UTC()
	sessionID := ulid.Make().String()

	claims := jwt.RegisteredClaims{
		Subject:  userID,
		IssuedAt: jwt.NewNumericDate(now),
		ID:       sessionID,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", apperr.Upstream(domain, "sign token", err)
	}

	session := &models.Session{
		ID:        sessionID,
		UserID:    userID,
		TokenHash: crypto.HashToken(token),
		UserAgent: userAgent,
		CreatedAt: now,
	}

	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return "", apperr.Upstream(domain, "persist session", err)
	}

	return token, nil
}

// Validate checks the signature, finds the session by token hash and loads
// its user. Invalid, revoked or orphaned tokens yield apperr.ErrUnauthorized.
func (s *TokenService) Validate(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, invalidToken(err)
	}

	session, err := s.sessions.GetSessionByTokenHash(ctx, crypto.HashToken(token))
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, invalidToken(err)
		}
		return nil, apperr.Upstream(domain, "get session by token hash", err)
	}

	if session.UserID != claims.Subject {
		return nil, invalidToken(fmt.Errorf("session owner mismatch"))
	}

	user, err := s.users.GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, invalidToken(err)
		}
		return nil, apperr.Upstream(domain, "get user by id", err)
	}

	return &Identity{
		User:      user,
		UserID:    user.ID,
		SessionID: session.ID,
		Token:     token,
	}, nil
}

// Revoke deletes the single session behind token. Other sessions of the
// user stay valid.
func (s *TokenService) Revoke(ctx context.Context, userID, token string) error {
	err := s.sessions.DeleteSession(ctx, userID, crypto.HashToken(token))
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return invalidToken(err)
		}
		return apperr.Upstream(domain, "delete session", err)
	}
	return nil
}

// RevokeAll deletes every session of userID and returns how many were removed.
func (s *TokenService) RevokeAll(ctx context.Context, userID string) (int, error) {
	n, err := s.sessions.DeleteUserSessions(ctx, userID)
	if err != nil {
		return 0, apperr.Upstream(domain, "delete user sessions", err)
	}
	return n, nil
}

// Sessions lists the open sessions of userID, oldest first.
func (s *TokenService) Sessions(ctx context.Context, userID string) ([]*models.Session, error) {
	sessions, err := s.sessions.GetUserSessions(ctx, userID)
	if err != nil {
		return nil, apperr.Upstream(domain, "get user sessions", err)
	}
	return sessions, nil
}

func (s *TokenService) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !parsed.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}

func invalidToken(err error) error {
	return oops.In(domain).
		Code("INVALID_TOKEN").
		Wrap(errors.Join(apperr.ErrUnauthorized, err))
}
