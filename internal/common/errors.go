// Package common defines sentinel errors shared by repositories, services and
// the HTTP layer of workhub. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Auth errors (invalid, malformed or expired token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Remote provider errors.
	ErrNotConnected = errors.New("remote calendar not connected")
	ErrSyncFailed   = errors.New("sync failed")

	// Label / group errors.
	ErrNameConflict = errors.New("name already in use")
	ErrDefaultLabel = errors.New("default label cannot be deleted")
)
