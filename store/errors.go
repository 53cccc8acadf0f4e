package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

type (
	NotFound struct {
		Entity string
		Key    string
	}

	// Conflict is returned when a write violates a unique constraint,
	// Field is empty when the column could not be identified.
	Conflict struct {
		Field string
		cause error
	}
)

const (
	pgUniqueViolation = "23505"
)

func (n NotFound) Error() string {
	return fmt.Sprintf("%v %v not found", n.Entity, n.Key)
}

func (c Conflict) Error() string {
	if c.Field == "" {
		return fmt.Sprintf("unique constraint violated, cause %v", c.cause)
	}
	return fmt.Sprintf("%v already in use", c.Field)
}

func (c Conflict) Unwrap() error {
	return c.cause
}

// IsNotFound reports whether any error in the chain is a NotFound
func IsNotFound(err error) bool {
	var nf NotFound
	return errors.As(err, &nf)
}

func asConflict(err error) (Conflict, bool) {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return Conflict{Field: conflictField(liteErr.Error()), cause: err}, true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return Conflict{Field: conflictField(pgErr.ConstraintName + " " + pgErr.Detail), cause: err}, true
	}
	return Conflict{}, false
}

// conflictField extracts the column name from messages like
// "UNIQUE constraint failed: users.email" or "users_email_key"
func conflictField(msg string) string {
	switch {
	case strings.Contains(msg, "email"):
		return "email"
	case strings.Contains(msg, "username"):
		return "username"
	}
	return ""
}
