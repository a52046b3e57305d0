package handlers

import (
	"context"

	"github.com/iudanet/tasktracker/internal/server/auth"
)

// contextKey тип для ключей контекста
type contextKey string

// IdentityKey ключ для хранения auth.Identity в контексте
const IdentityKey contextKey = "identity"

// WithIdentity кладет аутентифицированного пользователя в контекст
func WithIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// GetIdentity извлекает auth.Identity из контекста запроса
func GetIdentity(ctx context.Context) (*auth.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(*auth.Identity)
	return identity, ok && identity != nil
}
