package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc53/tg-bot-docsgpt-extenstion/internal/conversation"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(context.Background()) })
	return store
}

func TestSQLiteStore_GetMissingReturnsEmptyDefault(t *testing.T) {
	store := newTestSQLiteStore(t)
	st := store.Get(context.Background(), 42)
	require.NotNil(t, st)
	assert.Empty(t, st.History)
	assert.Empty(t, st.ConversationID)
}

func TestSQLiteStore_UpsertRoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	store.Save(ctx, 1, []conversation.Turn{{Role: "user", Content: "q1"}}, "conv-1", &conversation.UserInfo{ID: 5, FirstName: "Ada"})
	st := store.Get(ctx, 1)
	require.Len(t, st.History, 1)
	assert.Equal(t, "conv-1", st.ConversationID)
	require.NotNil(t, st.User)
	assert.Equal(t, "Ada", st.User.FirstName)
	assert.False(t, st.LastUpdated.IsZero())

	// Second save replaces history and conversation id without a separate
	// existence check.
	store.Save(ctx, 1, []conversation.Turn{
		{Role: "user", Content: "q1"},
		{Role: "assistant", Content: "a1"},
	}, "conv-2", nil)
	st = store.Get(ctx, 1)
	require.Len(t, st.History, 2)
	assert.Equal(t, "conv-2", st.ConversationID)
}

func TestSQLiteStore_NilUserKeepsStoredIdentity(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	store.Save(ctx, 1, nil, "", &conversation.UserInfo{ID: 5, Username: "a"})
	store.Save(ctx, 1, nil, "", nil)

	st := store.Get(ctx, 1)
	require.NotNil(t, st.User)
	assert.Equal(t, "a", st.User.Username)
}

func TestSQLiteStore_SaveTrimsHistory(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	history := make([]conversation.Turn, 0, 44)
	for i := 0; i < 22; i++ {
		history = append(history,
			conversation.Turn{Role: "user", Content: "q"},
			conversation.Turn{Role: "assistant", Content: "a"},
		)
	}
	store.Save(ctx, 1, history, "", nil)

	st := store.Get(ctx, 1)
	assert.Len(t, st.History, conversation.MaxHistoryTurns)
	assert.Equal(t, "assistant", st.History[len(st.History)-1].Role)
}

func TestSQLiteStore_CorruptStateYieldsEmptyDefault(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx,
		"INSERT INTO conversations (chat_id, state) VALUES (?, ?)", "7", "{not json")
	require.NoError(t, err)

	st := store.Get(ctx, 7)
	require.NotNil(t, st)
	assert.Empty(t, st.History)
}
