package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	// Request could not be served because of its shape (missing or empty fields)
	ErrBadRequest = errors.New("bad request")

	// Credentials or token rejected
	// Token errors below are always wrapped together with ErrUnauthorized
	ErrUnauthorized = errors.New("unauthorized")

	ErrTokenMissing = errors.New("token is missing")
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token is expired")
)
