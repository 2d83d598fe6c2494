// Package storage provides the conversation-state backends and the startup
// selector that picks exactly one of them.
package storage

import (
	"context"
	"time"

	"github.com/arc53/tg-bot-docsgpt-extenstion/internal/conversation"
)

// nowFunc stamps LastUpdated for backends without a server-side clock.
var nowFunc = time.Now

// Backend is the per-chat conversation state store. Get never fails: any
// internal error is logged and an empty default returned, so a chat with no
// readable history behaves like a fresh one. Save is best-effort: errors are
// logged at the boundary and never reach the reply path. Every backend trims
// the history to conversation.MaxHistoryTurns on save.
type Backend interface {
	// Get returns the state for the chat, or an empty default. Never nil.
	Get(ctx context.Context, chatID int64) *conversation.State
	// Save upserts the listed fields. A nil user leaves any previously
	// stored identity intact.
	Save(ctx context.Context, chatID int64, history []conversation.Turn, conversationID string, user *conversation.UserInfo)
	// Close releases the backend's resources at process shutdown.
	Close(ctx context.Context) error
	// Kind names the backend for logs.
	Kind() string
}
