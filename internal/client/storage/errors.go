package storage

import "errors"

// Common client storage errors
var (
	// ErrSessionNotFound indicates that the user is not logged in
	ErrSessionNotFound = errors.New("session not found")

	// ErrTaskRefNotFound indicates that a numeric task reference is outside the last listing
	ErrTaskRefNotFound = errors.New("task reference not found")
)
