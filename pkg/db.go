package pkg

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// https://www.postgresql.org/docs/current/errcodes-appendix.html

// IsConstraintViolation checks if the error comes from the store rejecting
// a row: NOT NULL violation, CHECK violation, or a value too long for the
// column type
func IsConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "23502", "23514", "22001":
		return true
	}
	return false
}
