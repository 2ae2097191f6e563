package service

import "errors"

var (
	ErrValidation              = errors.New("invalid input")
	ErrUnreachableTarget       = errors.New("target url is unreachable")
	ErrDuplicateLink           = errors.New("link already shortened")
	ErrPathTaken               = errors.New("custom path is taken")
	ErrNotFound                = errors.New("link not found")
	ErrUnauthorized            = errors.New("link belongs to another user")
	ErrCollisionRetryExhausted = errors.New("could not allocate a free short code")

	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already registered")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
