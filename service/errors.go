package service

import "errors"

// Token codec failures. They never leave the service package unchanged:
// Refresh collapses all three into ErrInvalidOrExpiredToken.
var (
	ErrTokenMalformed        = errors.New("token is malformed")
	ErrTokenInvalidSignature = errors.New("token signature is invalid")
	ErrTokenExpired          = errors.New("token is expired")
)

// Session errors returned to callers. All of them are terminal for the
// presented credentials; none is retried internally.
var (
	ErrAuthenticationFailed  = errors.New("invalid email or password")
	ErrMissingToken          = errors.New("refresh token not provided")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrAccessDenied          = errors.New("access denied")
	ErrTokenRevoked          = errors.New("refresh token has been revoked")
)

// ErrStoreUnavailable wraps I/O failures and timeouts talking to the
// credential or session store. Callers may retry; it never means revoked.
var ErrStoreUnavailable = errors.New("session backend unavailable")

// Account errors.
var (
	ErrEmailTaken               = errors.New("email is already registered")
	ErrUsernameTaken            = errors.New("username is already taken")
	ErrInvalidVerificationToken = errors.New("verification token is invalid or expired")
	ErrUserNotFound             = errors.New("user not found")
)
