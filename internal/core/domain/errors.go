package domain

import "errors"

var (
	// ErrNoToken means the session store has no credential; connecting is a
	// no-op in that case, not a failure.
	ErrNoToken = errors.New("no session token available")

	// ErrTokenExpired means the stored credential's exp claim has passed.
	ErrTokenExpired = errors.New("session token expired")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrForbidden          = errors.New("access forbidden")
)
