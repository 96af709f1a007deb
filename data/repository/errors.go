package repository

import (
	"errors"

	"events-calendar/data/models"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
)

// Errors returned by the store. They are terminal for the request that hit
// them; callers match with errors.Is.
var (
	ErrValidation         = models.ErrValidation
	ErrNotFound           = errors.New("not found")
	ErrUsernameTaken      = errors.New("a user with that username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyMember      = errors.New("already a member of this event")
	ErrNotAMember         = errors.New("not a member of this event")
	ErrForbidden          = errors.New("only the creator may delete this event")
	ErrUnauthenticated    = errors.New("authentication credentials were not provided or are invalid")
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == pgerrcode.UniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pgErrorCode(err) == pgerrcode.ForeignKeyViolation
}

// isInvalidInput reports whether Postgres rejected a parameter value, e.g. a
// non-numeric string compared with an integer column.
func isInvalidInput(err error) bool {
	switch pgErrorCode(err) {
	case pgerrcode.InvalidTextRepresentation,
		pgerrcode.InvalidDatetimeFormat,
		pgerrcode.DatetimeFieldOverflow,
		pgerrcode.NumericValueOutOfRange:
		return true
	}
	return false
}
