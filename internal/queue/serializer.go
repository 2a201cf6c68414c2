package queue

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrIntakeBackpressure = errors.New("intake backpressure: chat backlog is full")
	ErrSerializerClosed   = errors.New("intake serializer is closed")
)

type SerializerConfig struct {
	// MaxBacklogPerChat bounds tasks waiting behind the running one for a chat.
	MaxBacklogPerChat int
	// OnPanic receives a recovered task panic. Optional.
	OnPanic func(chatID int64, recovered any)
}

// Serializer runs submitted tasks one at a time per chat in submission order.
// Different chats run in parallel. A chat has a goroutine only while it has work.
type Serializer struct {
	mu      sync.Mutex
	pending map[int64][]func()
	closed  bool
	wg      sync.WaitGroup
	config  SerializerConfig
}

func NewSerializer(cfg SerializerConfig) *Serializer {
	if cfg.MaxBacklogPerChat <= 0 {
		cfg.MaxBacklogPerChat = 256
	}
	return &Serializer{
		pending: make(map[int64][]func()),
		config:  cfg,
	}
}

func (s *Serializer) Submit(chatID int64, task func()) error {
	if task == nil {
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSerializerClosed
	}
	backlog, running := s.pending[chatID]
	if len(backlog) >= s.config.MaxBacklogPerChat {
		s.mu.Unlock()
		return ErrIntakeBackpressure
	}
	s.pending[chatID] = append(backlog, task)
	if !running {
		s.wg.Add(1)
	}
	s.mu.Unlock()

	if !running {
		go s.run(chatID)
	}
	return nil
}

func (s *Serializer) run(chatID int64) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		backlog := s.pending[chatID]
		if len(backlog) == 0 {
			delete(s.pending, chatID)
			s.mu.Unlock()
			return
		}
		task := backlog[0]
		backlog[0] = nil
		s.pending[chatID] = backlog[1:]
		s.mu.Unlock()

		s.execute(chatID, task)
	}
}

func (s *Serializer) execute(chatID int64, task func()) {
	defer func() {
		if recovered := recover(); recovered != nil && s.config.OnPanic != nil {
			s.config.OnPanic(chatID, fmt.Sprint(recovered))
		}
	}()
	task()
}

// Close rejects new tasks and waits for accepted ones to finish.
func (s *Serializer) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}
