package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/otis-tran/demo-service/internal/platform/logger"
	"github.com/otis-tran/demo-service/internal/task"
)

// PostgresTaskStore implements the task.TaskStore interface using PostgreSQL
type PostgresTaskStore struct {
	db  DBTX
	now func() time.Time
}

// NewPostgresTaskStore creates a new PostgresTaskStore
func NewPostgresTaskStore(db DBTX) *PostgresTaskStore {
	return &PostgresTaskStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// SaveTask records task as pending. Saving an existing ID resets its row so
// a task identity can be resubmitted after a terminal result.
func (s *PostgresTaskStore) SaveTask(ctx context.Context, t task.Task) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO tasks (id, type, payload, status, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULL, $5, $5)
		ON CONFLICT (id) DO UPDATE
		SET type = EXCLUDED.type,
			payload = EXCLUDED.payload,
			status = EXCLUDED.status,
			error_message = NULL,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		t.ID(),
		t.Type(),
		t.Payload(),
		task.TaskStatusPending,
		s.now(),
	)
	if err != nil {
		log.Error("failed to save task",
			"task_id", t.ID(),
			"task_type", t.Type(),
			"error", err)
		return fmt.Errorf("failed to save task to database: %w", MapError(err))
	}

	return nil
}

// UpdateTaskStatus updates the status of a task in the database.
// Unknown IDs are a no-op.
func (s *PostgresTaskStore) UpdateTaskStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status task.TaskStatus,
	errorMsg string,
) error {
	log := logger.FromContext(ctx)

	query := `
		UPDATE tasks
		SET status = $1, error_message = NULLIF($2, ''), updated_at = $3
		WHERE id = $4
	`

	result, err := s.db.ExecContext(ctx, query, status, errorMsg, s.now(), taskID)
	if err != nil {
		log.Error("failed to update task status",
			"task_id", taskID,
			"status", status,
			"error", err)
		return fmt.Errorf("failed to update task status: %w", MapError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		log.Warn("no task found with ID to update status", "task_id", taskID)
	}

	return nil
}

// GetTask returns the record for taskID, or task.ErrTaskNotFound.
func (s *PostgresTaskStore) GetTask(ctx context.Context, taskID uuid.UUID) (*task.TaskRecord, error) {
	query := `
		SELECT id, type, payload, status, error_message, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, taskID))
	if err != nil {
		return nil, MapError(err)
	}
	return rec, nil
}

// GetPendingTasks retrieves all tasks with "pending" status
func (s *PostgresTaskStore) GetPendingTasks(ctx context.Context) ([]task.TaskRecord, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusPending, 0)
}

// GetProcessingTasks retrieves tasks with "processing" status
func (s *PostgresTaskStore) GetProcessingTasks(
	ctx context.Context,
	olderThan time.Duration,
) ([]task.TaskRecord, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusProcessing, olderThan)
}

// getTasksByStatus gets tasks by status with an optional age filter
func (s *PostgresTaskStore) getTasksByStatus(
	ctx context.Context,
	status task.TaskStatus,
	olderThan time.Duration,
) ([]task.TaskRecord, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT id, type, payload, status, error_message, created_at, updated_at
		FROM tasks
		WHERE status = $1
		ORDER BY created_at ASC
	`
	args := []any{status}
	if olderThan > 0 {
		query = `
			SELECT id, type, payload, status, error_message, created_at, updated_at
			FROM tasks
			WHERE status = $1 AND updated_at < $2
			ORDER BY created_at ASC
		`
		args = append(args, s.now().Add(-olderThan))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks by status", "status", status, "error", err)
		return nil, fmt.Errorf("failed to query tasks by status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []task.TaskRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			log.Error("failed to scan task row", "status", status, "error", err)
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}
	return records, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*task.TaskRecord, error) {
	var (
		rec          task.TaskRecord
		status       string
		errorMessage sql.NullString
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Type,
		&rec.Payload,
		&status,
		&errorMessage,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rec.Status = task.TaskStatus(status)
	rec.ErrorMessage = errorMessage.String
	return &rec, nil
}

// Ensure PostgresTaskStore implements task.TaskStore
var _ task.TaskStore = (*PostgresTaskStore)(nil)
