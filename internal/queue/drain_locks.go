package queue

import "sync"

// DrainLocks is the process-wide registry of chats with an active drain.
type DrainLocks struct {
	mu     sync.Mutex
	active map[int64]struct{}
}

func NewDrainLocks() *DrainLocks {
	return &DrainLocks{active: make(map[int64]struct{})}
}

// TryAcquire inserts chatID if absent and reports whether the caller now owns it.
func (l *DrainLocks) TryAcquire(chatID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.active[chatID]; held {
		return false
	}
	l.active[chatID] = struct{}{}
	return true
}

func (l *DrainLocks) Release(chatID int64) {
	l.mu.Lock()
	delete(l.active, chatID)
	l.mu.Unlock()
}

func (l *DrainLocks) Held(chatID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, held := l.active[chatID]
	return held
}

func (l *DrainLocks) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.active)
}
