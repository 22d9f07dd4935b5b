package chatsync

import (
	"context"
	"sync"

	"nocturne/internal/domain/entity"
	"nocturne/internal/domain/repository"
	"nocturne/pkg/logger"
)

// UpdateFunc receives the user's fresh conversation list after every table
// change. The websocket layer plugs its push fan-out in here.
type UpdateFunc func(userID string, conversations []entity.ConversationSummary)

// SessionManager hands out one Engine per authenticated user and reference
// counts the holders. The engine starts with the first acquire (typically the
// user's websocket connection) and is torn down when the last holder
// releases it.
type SessionManager struct {
	chatRepo repository.ChatRepository
	userRepo repository.UserRepository
	onUpdate UpdateFunc

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	engine      *Engine
	cancel      context.CancelFunc
	unsubscribe func()
	refs        int
}

func NewSessionManager(chatRepo repository.ChatRepository, userRepo repository.UserRepository, onUpdate UpdateFunc) *SessionManager {
	return &SessionManager{
		chatRepo: chatRepo,
		userRepo: userRepo,
		onUpdate: onUpdate,
		sessions: make(map[string]*session),
	}
}

// Acquire returns the user's engine, starting one if needed.
func (m *SessionManager) Acquire(userID string) (*Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[userID]; ok {
		s.refs++
		return s.engine, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	engine := NewEngine(m.chatRepo, m.userRepo)
	if err := engine.Start(ctx, userID); err != nil {
		cancel()
		return nil, err
	}

	s := &session{engine: engine, cancel: cancel, refs: 1}
	if m.onUpdate != nil {
		s.unsubscribe = engine.Subscribe(func(conversations []entity.ConversationSummary) {
			m.onUpdate(userID, conversations)
		})
	}

	m.sessions[userID] = s
	logger.Debug("Opened sync session for user %s", userID)
	return engine, nil
}

// Release drops one reference; the last release stops the engine.
func (m *SessionManager) Release(userID string) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if ok {
		s.refs--
		if s.refs <= 0 {
			delete(m.sessions, userID)
		} else {
			s = nil
		}
	}
	m.mu.Unlock()

	if ok && s != nil {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		s.engine.Stop()
		s.cancel()
		logger.Debug("Closed sync session for user %s", userID)
	}
}

// Get returns the user's engine without touching the reference count.
func (m *SessionManager) Get(userID string) (*Engine, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return nil, false
	}
	return s.engine, true
}
