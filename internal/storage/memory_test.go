package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc53/tg-bot-docsgpt-extenstion/internal/conversation"
)

func TestMemoryStore_GetMissingReturnsEmptyDefault(t *testing.T) {
	m := NewMemoryStore()
	st := m.Get(context.Background(), 42)
	require.NotNil(t, st)
	assert.Empty(t, st.History)
	assert.Empty(t, st.ConversationID)
	assert.Nil(t, st.User)
}

func TestMemoryStore_SaveAndGet(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	history := []conversation.Turn{
		{Role: "user", Content: "q"},
		{Role: "assistant", Content: "a"},
	}
	m.Save(ctx, 1, history, "conv-1", &conversation.UserInfo{ID: 5, Username: "a"})

	st := m.Get(ctx, 1)
	require.Len(t, st.History, 2)
	assert.Equal(t, "conv-1", st.ConversationID)
	require.NotNil(t, st.User)
	assert.Equal(t, "a", st.User.Username)
	assert.False(t, st.LastUpdated.IsZero())
}

func TestMemoryStore_GetReturnsDefensiveCopy(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	m.Save(ctx, 1, []conversation.Turn{{Role: "user", Content: "q"}}, "", nil)

	st := m.Get(ctx, 1)
	st.History[0].Content = "mutated"
	st.History = append(st.History, conversation.Turn{Role: "assistant", Content: "extra"})

	again := m.Get(ctx, 1)
	require.Len(t, again.History, 1)
	assert.Equal(t, "q", again.History[0].Content)
}

func TestMemoryStore_NilUserKeepsStoredIdentity(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	m.Save(ctx, 1, nil, "", &conversation.UserInfo{ID: 5, Username: "a"})
	m.Save(ctx, 1, []conversation.Turn{{Role: "user", Content: "q"}}, "conv-2", nil)

	st := m.Get(ctx, 1)
	require.NotNil(t, st.User)
	assert.Equal(t, int64(5), st.User.ID)
	assert.Equal(t, "a", st.User.Username)
	assert.Equal(t, "conv-2", st.ConversationID)
}

func TestMemoryStore_SaveTrimsHistory(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	history := make([]conversation.Turn, 0, 30)
	for i := 0; i < 15; i++ {
		history = append(history,
			conversation.Turn{Role: "user", Content: "q"},
			conversation.Turn{Role: "assistant", Content: "a"},
		)
	}
	m.Save(ctx, 1, history, "", nil)

	st := m.Get(ctx, 1)
	assert.Len(t, st.History, conversation.MaxHistoryTurns)
}

func TestMemoryStore_ChatsAreIsolated(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	m.Save(ctx, 1, []conversation.Turn{{Role: "user", Content: "one"}}, "c1", nil)
	m.Save(ctx, 2, []conversation.Turn{{Role: "user", Content: "two"}}, "c2", nil)

	assert.Equal(t, "c1", m.Get(ctx, 1).ConversationID)
	assert.Equal(t, "c2", m.Get(ctx, 2).ConversationID)
}
