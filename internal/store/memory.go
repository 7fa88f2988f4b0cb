package store

import (
	"context"
	"sync"

	"github.com/zhouzirui/legalease/backend/internal/model/chat"
)

// Memory keeps everything in process memory.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	messages map[string][]chat.Message
	values   map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]chat.Session),
		messages: make(map[string][]chat.Message),
		values:   make(map[string]string),
	}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *Memory) Put(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	return nil
}

func (m *Memory) CreateSession(_ context.Context, session chat.Session) error {
	m.mu.Lock()
	m.sessions[session.ID] = session
	m.messages[session.ID] = make([]chat.Message, 0, 16)
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetSession(_ context.Context, id string) (chat.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return chat.Session{}, ErrNotFound
	}
	return session, nil
}

func (m *Memory) AppendMessage(_ context.Context, message chat.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[message.SessionID]; !ok {
		return ErrNotFound
	}
	m.messages[message.SessionID] = append(m.messages[message.SessionID], message)
	return nil
}

func (m *Memory) Messages(_ context.Context, sessionID string) ([]chat.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	messages, ok := m.messages[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

func (m *Memory) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	delete(m.messages, id)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
