package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/arc53/tg-bot-docsgpt-extenstion/internal/conversation"
)

// SQLiteStore keeps one row per chat, holding the state document as JSON.
// It is the durable option that needs no external service.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database, ensuring the parent
// directory exists, and verifies it with a ping before creating the schema.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open db at %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db at %s: %w", path, err)
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS conversations (
			chat_id TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			last_updated INTEGER NOT NULL DEFAULT (unixepoch())
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

type sqliteDocument struct {
	History        []conversation.Turn    `json:"conversation_history"`
	ConversationID string                 `json:"conversation_id,omitempty"`
	User           *conversation.UserInfo `json:"user_info,omitempty"`
}

// Get loads and decodes the chat's row. Missing row or any failure yields the
// empty default; failures are logged, never propagated.
func (s *SQLiteStore) Get(ctx context.Context, chatID int64) *conversation.State {
	var raw string
	var updatedAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT state, last_updated FROM conversations WHERE chat_id = ?",
		chatKey(chatID),
	).Scan(&raw, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &conversation.State{}
	}
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("sqlite read failed, using empty state")
		return &conversation.State{}
	}

	var doc sqliteDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("sqlite state decode failed, using empty state")
		return &conversation.State{}
	}
	return &conversation.State{
		History:        doc.History,
		ConversationID: doc.ConversationID,
		User:           doc.User,
		LastUpdated:    time.Unix(updatedAt, 0),
	}
}

// Save upserts the row. Identity info from the previous document is carried
// over when the new one is absent.
func (s *SQLiteStore) Save(ctx context.Context, chatID int64, history []conversation.Turn, conversationID string, user *conversation.UserInfo) {
	if user == nil {
		user = s.Get(ctx, chatID).User
	}
	doc := sqliteDocument{
		History:        conversation.Trim(history),
		ConversationID: conversationID,
		User:           user,
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("sqlite state encode failed")
		return
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (chat_id, state, last_updated) VALUES (?, ?, unixepoch())
		ON CONFLICT(chat_id) DO UPDATE SET state = excluded.state, last_updated = unixepoch()
	`, chatKey(chatID), string(raw))
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("sqlite save failed")
	}
}

func (s *SQLiteStore) Close(context.Context) error {
	return s.db.Close()
}

func (s *SQLiteStore) Kind() string { return "sqlite" }
