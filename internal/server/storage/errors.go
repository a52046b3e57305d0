package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken indicates that another user already uses this email
	ErrEmailTaken = errors.New("email already taken")

	// ErrSessionNotFound indicates that session (token) was not found
	ErrSessionNotFound = errors.New("session not found")

	// ErrTaskNotFound indicates that task was not found for the given owner
	ErrTaskNotFound = errors.New("task not found")

	// ErrMailNotFound indicates that outbox message was not found
	ErrMailNotFound = errors.New("mail not found")
)
