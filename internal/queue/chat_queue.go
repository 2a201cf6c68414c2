package queue

import (
	"sync"
	"time"

	"github.com/iago/telegram-voice-bot/internal/domain"
)

type chatState struct {
	lastSequence int64
	pending      []*domain.Job
}

// ChatQueue keeps one ordered job list per chat. Chat state is created on
// first enqueue and kept afterwards so sequence numbers are never reused.
type ChatQueue struct {
	mu    sync.Mutex
	chats map[int64]*chatState
	now   func() time.Time
}

func NewChatQueue() *ChatQueue {
	return &ChatQueue{
		chats: make(map[int64]*chatState),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (q *ChatQueue) Enqueue(chatID int64, jobID string, payload domain.JobPayload) *domain.Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	state, ok := q.chats[chatID]
	if !ok {
		state = &chatState{}
		q.chats[chatID] = state
	}
	state.lastSequence++

	now := q.now()
	job := &domain.Job{
		ID:        jobID,
		ChatID:    chatID,
		Sequence:  state.lastSequence,
		Payload:   payload,
		Status:    domain.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	state.pending = append(state.pending, job)
	return job
}

func (q *ChatQueue) Peek(chatID int64) (*domain.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	state, ok := q.chats[chatID]
	if !ok || len(state.pending) == 0 {
		return nil, false
	}
	return state.pending[0], true
}

func (q *ChatQueue) Pop(chatID int64) (*domain.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	state, ok := q.chats[chatID]
	if !ok || len(state.pending) == 0 {
		return nil, false
	}
	head := state.pending[0]
	state.pending[0] = nil
	state.pending = state.pending[1:]
	if len(state.pending) == 0 {
		state.pending = nil
	}
	return head, true
}

func (q *ChatQueue) SetStatus(job *domain.Job, status domain.JobStatus, errMessage string) {
	if job == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	job.Status = status
	job.ErrorMessage = errMessage
	job.UpdatedAt = q.now()
}

func (q *ChatQueue) IsEmpty(chatID int64) bool {
	return q.Len(chatID) == 0
}

func (q *ChatQueue) Len(chatID int64) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	state, ok := q.chats[chatID]
	if !ok {
		return 0
	}
	return len(state.pending)
}

// Snapshot returns copies of the pending jobs of a chat in queue order.
func (q *ChatQueue) Snapshot(chatID int64) []domain.Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	state, ok := q.chats[chatID]
	if !ok {
		return []domain.Job{}
	}
	jobs := make([]domain.Job, 0, len(state.pending))
	for _, job := range state.pending {
		jobs = append(jobs, *job)
	}
	return jobs
}

// LastSequence returns the last sequence number handed out for a chat.
func (q *ChatQueue) LastSequence(chatID int64) int64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	if state, ok := q.chats[chatID]; ok {
		return state.lastSequence
	}
	return 0
}
