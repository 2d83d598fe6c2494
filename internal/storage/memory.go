package storage

import (
	"context"
	"sync"

	"github.com/arc53/tg-bot-docsgpt-extenstion/internal/conversation"
)

// MemoryStore keeps conversation state in process memory. Nothing survives a
// restart; that is the accepted trade-off for zero external dependencies, and
// it is also the fallback when a durable backend cannot be reached.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[int64]*conversation.State
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[int64]*conversation.State)}
}

// Get returns a deep copy so callers cannot corrupt the backing entry.
func (m *MemoryStore) Get(_ context.Context, chatID int64) *conversation.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[chatID]
	if !ok {
		return &conversation.State{}
	}
	return st.Clone()
}

// Save merges into any existing entry: history and conversation id are always
// overwritten with the latest values, while identity info persists across
// saves that don't supply a new one.
func (m *MemoryStore) Save(_ context.Context, chatID int64, history []conversation.Turn, conversationID string, user *conversation.UserInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[chatID]
	if !ok {
		st = &conversation.State{}
		m.states[chatID] = st
	}
	trimmed := conversation.Trim(history)
	st.History = make([]conversation.Turn, len(trimmed))
	copy(st.History, trimmed)
	st.ConversationID = conversationID
	if user != nil {
		u := *user
		st.User = &u
	}
	st.LastUpdated = nowFunc()
}

func (m *MemoryStore) Close(context.Context) error { return nil }

func (m *MemoryStore) Kind() string { return "memory" }
