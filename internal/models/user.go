package models

import (
	"strings"
	"time"
)

// User представляет пользователя в системе
type User struct {
	CreatedAt    time.Time `json:"created_at"` // время создания
	UpdatedAt    time.Time `json:"updated_at"` // время последнего обновления
	ID           string    `json:"id"`         // UUID пользователя
	Name         string    `json:"name"`       // отображаемое имя
	Email        string    `json:"email"`      // уникальный email (lower-case)
	PasswordHash string    `json:"-"`          // bcrypt хеш пароля
	Avatar       []byte    `json:"-"`          // PNG 250x250, может отсутствовать
	Age          int       `json:"age"`        // возраст, >= 0
}

// HasAvatar reports whether an avatar image is stored for the user.
func (u *User) HasAvatar() bool {
	return len(u.Avatar) > 0
}

// NormalizeEmail приводит email к каноническому виду для хранения и поиска.
// Уникальность email не зависит от регистра.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ProfilePatch описывает изменяемые поля профиля.
// nil означает "поле не передано", остальные поля изменить нельзя.
type ProfilePatch struct {
	Name     *string
	Email    *string
	Password *string
	Age      *int
}

// IsEmpty reports whether the patch changes nothing.
func (p ProfilePatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Password == nil && p.Age == nil
}

// Session представляет одну активную сессию (выданный токен) пользователя.
// Хранится отдельно от User и ищется по SHA256 хешу токена.
type Session struct {
	CreatedAt time.Time `json:"created_at"` // время выдачи токена
	ID        string    `json:"id"`         // ULID сессии, совпадает с jti токена
	UserID    string    `json:"user_id"`    // владелец сессии
	TokenHash string    `json:"-"`          // hex(sha256(token))
	UserAgent string    `json:"user_agent"` // User-Agent клиента при логине
}
