package session

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthFailed matches every *AuthError.
	ErrAuthFailed = errors.New("login failed")
	// ErrTransport matches every *TransportError.
	ErrTransport = errors.New("network error")

	ErrLoginInProgress  = errors.New("login already in progress")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionExpired   = errors.New("session expired")
)

// AuthError means the backend refused the login: bad credentials, a
// success=false envelope, or a payload missing the token or user ID.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "login failed: " + e.Reason
}

func (e *AuthError) Is(target error) bool { return target == ErrAuthFailed }

// TransportError means a backend call could not complete.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// StorageError reports a durable store failure surfaced by Login or Logout.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
