package auth

import "errors"

var (
	ErrNotFound     = errors.New("auth: not found")
	ErrConflict     = errors.New("auth: already exists")
	ErrInvalidInput = errors.New("auth: invalid input")
	ErrUnauthorized = errors.New("auth: unauthorized")
)
