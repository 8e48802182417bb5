package state

import (
	"sync"
)

type session[T any] struct {
	mu    sync.Mutex
	value T
}

type memoryManager[T any] struct {
	mu       sync.RWMutex
	sessions map[int64]*session[T]
	initial  func() T
}

// NewMemoryManager constructs an in-memory Manager. initial produces the value
// of a chat that has no session yet; nil means the zero value of T.
func NewMemoryManager[T any](initial func() T) Manager[T] {
	if initial == nil {
		initial = func() T {
			var zero T
			return zero
		}
	}
	return &memoryManager[T]{
		sessions: make(map[int64]*session[T]),
		initial:  initial,
	}
}

// Get returns the session value for a chat if it exists, otherwise the initial value.
func (m *memoryManager[T]) Get(chatID int64) T {
	m.mu.RLock()
	s, ok := m.sessions[chatID]
	m.mu.RUnlock()
	if !ok {
		return m.initial()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set updates the value for a chat, creating a new session if necessary.
func (m *memoryManager[T]) Set(chatID int64, value T) {
	s := m.session(chatID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = value
}

// Update runs fn with the chat's lock held so concurrent updates for the same
// chat are applied one after another.
func (m *memoryManager[T]) Update(chatID int64, fn func(current T) T) T {
	s := m.session(chatID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = fn(s.value)
	return s.value
}

// Clear removes the entire session for a chat.
func (m *memoryManager[T]) Clear(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}

// Len returns the number of chats with a session.
func (m *memoryManager[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *memoryManager[T]) session(chatID int64) *session[T] {
	m.mu.RLock()
	s, ok := m.sessions[chatID]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok = m.sessions[chatID]; ok {
		return s
	}
	s = &session[T]{value: m.initial()}
	m.sessions[chatID] = s
	return s
}
