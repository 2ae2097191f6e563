package repository

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrCodeTaken     = errors.New("short code already in use")
	ErrUsernameTaken = errors.New("username already in use")
	ErrEmailTaken    = errors.New("email already in use")
)

const (
	constraintShortLink  = "links_short_link_key"
	constraintCustomPath = "links_custom_path_key"
	constraintUsername   = "users_username_key"
	constraintEmail      = "users_email_key"
)

// uniqueViolation maps a unique constraint violation onto the matching
// sentinel. Other errors are returned as is.
func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return err
	}

	switch pgErr.ConstraintName {
	case constraintUsername:
		return ErrUsernameTaken
	case constraintEmail:
		return ErrEmailTaken
	default:
		return ErrCodeTaken
	}
}
