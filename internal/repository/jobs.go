package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/iago/telegram-voice-bot/internal/domain"
)

var ErrNotFound = errors.New("resource not found")

// JobsRepository stores the job history. Records are upserted on every
// status change and are never read back into a queue.
type JobsRepository interface {
	SaveJob(ctx context.Context, record *domain.JobRecord) error
	GetJob(ctx context.Context, jobID string) (*domain.JobRecord, error)
	ListChatJobs(ctx context.Context, chatID int64, limit int) ([]domain.JobRecord, error)
}

// MemoryJobsRepository keeps the most recent records in memory.
type MemoryJobsRepository struct {
	mu         sync.RWMutex
	jobs       map[string]*domain.JobRecord
	order      []string
	maxRecords int
}

func NewMemoryJobsRepository(maxRecords int) *MemoryJobsRepository {
	if maxRecords <= 0 {
		maxRecords = 10000
	}
	return &MemoryJobsRepository{
		jobs:       make(map[string]*domain.JobRecord),
		maxRecords: maxRecords,
	}
}

func (r *MemoryJobsRepository) SaveJob(_ context.Context, record *domain.JobRecord) error {
	if record == nil || record.ID == "" {
		return errors.New("job record without id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[record.ID]; !ok {
		r.order = append(r.order, record.ID)
	}
	clone := *record
	r.jobs[record.ID] = &clone

	for len(r.order) > r.maxRecords {
		delete(r.jobs, r.order[0])
		r.order = r.order[1:]
	}
	return nil
}

func (r *MemoryJobsRepository) GetJob(_ context.Context, jobID string) (*domain.JobRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *record
	return &clone, nil
}

// ListChatJobs returns the newest records of a chat first.
func (r *MemoryJobsRepository) ListChatJobs(_ context.Context, chatID int64, limit int) ([]domain.JobRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit = normalizeLimit(limit)
	items := make([]domain.JobRecord, 0)
	for _, record := range r.jobs {
		if record.ChatID == chatID {
			items = append(items, *record)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Sequence > items[j].Sequence
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 200 {
		return 200
	}
	return limit
}
