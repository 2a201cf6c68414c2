package queue

import (
	"github.com/iago/telegram-voice-bot/internal/domain"
)

// JobQueue is the per-chat FIFO consumed by drain workers.
type JobQueue interface {
	Enqueue(chatID int64, jobID string, payload domain.JobPayload) *domain.Job
	Peek(chatID int64) (*domain.Job, bool)
	Pop(chatID int64) (*domain.Job, bool)
	SetStatus(job *domain.Job, status domain.JobStatus, errMessage string)
	IsEmpty(chatID int64) bool
}

// Locker guards single-flight draining per chat.
type Locker interface {
	TryAcquire(chatID int64) bool
	Release(chatID int64)
}
