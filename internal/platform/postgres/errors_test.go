package postgres

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/otis-tran/demo-service/internal/task"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	other := errors.New("connection reset")

	tests := []struct {
		name   string
		err    error
		target error
	}{
		{name: "no_rows", err: sql.ErrNoRows, target: task.ErrTaskNotFound},
		{
			name:   "unique_violation",
			err:    &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "tasks_pkey"},
			target: ErrInvalidRecord,
		},
		{
			name:   "check_violation",
			err:    &pgconn.PgError{Code: checkViolationCode, ConstraintName: "tasks_status_check"},
			target: ErrInvalidRecord,
		},
		{name: "passthrough", err: other, target: other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, MapError(tt.err), tt.target)
		})
	}

	assert.NoError(t, MapError(nil))
}
