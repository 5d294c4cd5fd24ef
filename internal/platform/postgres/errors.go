package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/otis-tran/demo-service/internal/task"
)

// PostgreSQL error codes
const (
	uniqueViolationCode = "23505"
	checkViolationCode  = "23514"
)

// ErrInvalidRecord is returned when a row violates a table constraint.
var ErrInvalidRecord = errors.New("invalid task record")

// MapError maps a database error to a task package error, wrapping the
// original for debugging.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", task.ErrTaskNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode, checkViolationCode:
			return fmt.Errorf("%w: %s (%s): %v", ErrInvalidRecord, pgErr.Message, pgErr.ConstraintName, err)
		}
	}

	return err
}
