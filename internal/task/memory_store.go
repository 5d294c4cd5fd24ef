package task

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryTaskStore implements TaskStore in process memory. It is used when no
// database is configured and in tests.
type MemoryTaskStore struct {
	mutex   sync.RWMutex
	records map[uuid.UUID]*TaskRecord
	now     func() time.Time
}

// NewMemoryTaskStore creates an empty MemoryTaskStore
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{
		records: make(map[uuid.UUID]*TaskRecord),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SaveTask records task as pending. Saving an existing ID resets its record.
func (s *MemoryTaskStore) SaveTask(ctx context.Context, task Task) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	s.records[task.ID()] = &TaskRecord{
		ID:        task.ID(),
		Type:      task.Type(),
		Payload:   task.Payload(),
		Status:    TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// UpdateTaskStatus updates the status of a task. Unknown IDs are a no-op,
// matching the SQL store.
func (s *MemoryTaskStore) UpdateTaskStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status TaskStatus,
	errorMsg string,
) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	rec, exists := s.records[taskID]
	if !exists {
		return nil
	}
	rec.Status = status
	rec.ErrorMessage = errorMsg
	rec.UpdatedAt = s.now()
	return nil
}

// GetTask returns a copy of the record for taskID
func (s *MemoryTaskStore) GetTask(ctx context.Context, taskID uuid.UUID) (*TaskRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	rec, exists := s.records[taskID]
	if !exists {
		return nil, ErrTaskNotFound
	}
	cp := *rec
	return &cp, nil
}

// GetPendingTasks retrieves all tasks with "pending" status
func (s *MemoryTaskStore) GetPendingTasks(ctx context.Context) ([]TaskRecord, error) {
	return s.byStatus(TaskStatusPending, 0), nil
}

// GetProcessingTasks retrieves tasks with "processing" status
func (s *MemoryTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]TaskRecord, error) {
	return s.byStatus(TaskStatusProcessing, olderThan), nil
}

// byStatus returns matching records ordered by creation time
func (s *MemoryTaskStore) byStatus(status TaskStatus, olderThan time.Duration) []TaskRecord {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	now := s.now()
	var out []TaskRecord
	for _, rec := range s.records {
		if rec.Status != status {
			continue
		}
		// If olderThan is zero, include all; otherwise only records
		// that have been in this state longer than olderThan
		if olderThan > 0 && now.Sub(rec.UpdatedAt) <= olderThan {
			continue
		}
		out = append(out, *rec)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
