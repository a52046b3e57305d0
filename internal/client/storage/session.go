package storage

import (
	"context"
	"time"
)

// SessionStorage хранит текущую сессию клиента.
// Токен хранится как есть: локальная база доступна только владельцу (0600).
type SessionStorage interface {
	// SaveSession заменяет текущую сессию
	SaveSession(ctx context.Context, session *Session) error

	// GetSession возвращает ErrSessionNotFound, если пользователь не вошел
	GetSession(ctx context.Context) (*Session, error)

	// DeleteSession удаляет сессию и сохраненные ссылки на задачи
	DeleteSession(ctx context.Context) error
}

// TaskRefStorage запоминает порядок задач последнего вывода `tasks list`,
// чтобы команды принимали номер строки вместо ID.
type TaskRefStorage interface {
	SaveTaskRefs(ctx context.Context, ids []string) error

	// ResolveTaskRef возвращает ID для номера строки (с 1) или сам ref,
	// если это не число
	ResolveTaskRef(ctx context.Context, ref string) (string, error)
}

// Session данные текущей сессии
type Session struct {
	CreatedAt time.Time `json:"created_at"`
	ServerURL string    `json:"server_url"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
}
