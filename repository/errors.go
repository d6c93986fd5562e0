package repository

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user with this email or username already exists")
	ErrSessionNotFound = errors.New("session record not found")
)
