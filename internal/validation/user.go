package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// EmailPattern определяет допустимый формат email
var EmailPattern = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")

const (
	// MaxNameLen максимальная длина имени
	MaxNameLen = 255
	// MaxEmailLen максимальная длина email
	MaxEmailLen = 254
	// MinPasswordLen минимальная длина пароля
	MinPasswordLen = 7
	// MaxPasswordLen ограничение bcrypt (72 байта)
	MaxPasswordLen = 72
	// MaxDescriptionLen максимальная длина описания задачи
	MaxDescriptionLen = 1024
)

// ValidateName проверяет имя пользователя (после trim)
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("must be provided")
	}
	if len(name) > MaxNameLen {
		return fmt.Errorf("must not exceed %d characters", MaxNameLen)
	}
	return nil
}

// ValidateEmail проверяет формат email (после trim)
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("must be provided")
	}
	if len(email) > MaxEmailLen {
		return fmt.Errorf("must not exceed %d characters", MaxEmailLen)
	}
	if !EmailPattern.MatchString(email) {
		return fmt.Errorf("must be a valid email address")
	}
	return nil
}

// ValidatePassword проверяет требования к паролю:
// минимум 7 символов после trim, не длиннее 72 байт
// и без слова "password" в любом регистре.
func ValidatePassword(password string) error {
	password = strings.TrimSpace(password)
	if password == "" {
		return fmt.Errorf("must be provided")
	}
	if len(password) < MinPasswordLen {
		return fmt.Errorf("must be at least %d characters long", MinPasswordLen)
	}
	if len(password) > MaxPasswordLen {
		return fmt.Errorf("must not exceed %d bytes", MaxPasswordLen)
	}
	if strings.Contains(strings.ToLower(password), "password") {
		return fmt.Errorf(`must not contain "password"`)
	}
	return nil
}

// ValidateAge проверяет, что возраст неотрицательный
func ValidateAge(age int) error {
	if age < 0 {
		return fmt.Errorf("must be a non-negative number")
	}
	return nil
}
