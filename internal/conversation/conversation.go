// Package conversation holds the per-chat transcript model shared by the
// storage backends, the history formatter, and the bot workflow.
package conversation

import "time"

// Role values produced by the bot. Stored histories may contain anything
// (including legacy records without a role); only the formatter cares.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MaxHistoryTurns caps the stored transcript at the 20 most recent turns.
// Every backend applies the cap on save so the policy lives in one place.
const MaxHistoryTurns = 20

// Turn is a single message in the transcript.
type Turn struct {
	Role    string `json:"role" bson:"role"`
	Content string `json:"content" bson:"content"`
}

// UserInfo is the identity of the most recent sender. It is overwritten
// wholesale on every turn, never merged field by field.
type UserInfo struct {
	ID           int64  `json:"id" bson:"id"`
	FirstName    string `json:"first_name,omitempty" bson:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty" bson:"last_name,omitempty"`
	Username     string `json:"username,omitempty" bson:"username,omitempty"`
	IsBot        bool   `json:"is_bot,omitempty" bson:"is_bot,omitempty"`
	LanguageCode string `json:"language_code,omitempty" bson:"language_code,omitempty"`
}

// State is the conversation state for one chat. ConversationID is the opaque
// continuation token issued by the answer API; empty means a fresh
// conversation. LastUpdated is store-assigned and informational only.
type State struct {
	History        []Turn    `json:"conversation_history" bson:"conversation_history"`
	ConversationID string    `json:"conversation_id,omitempty" bson:"conversation_id,omitempty"`
	User           *UserInfo `json:"user_info,omitempty" bson:"user_info,omitempty"`
	LastUpdated    time.Time `json:"last_updated,omitempty" bson:"last_updated,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate a store's backing entry.
func (s *State) Clone() *State {
	out := &State{
		ConversationID: s.ConversationID,
		LastUpdated:    s.LastUpdated,
	}
	if len(s.History) > 0 {
		out.History = make([]Turn, len(s.History))
		copy(out.History, s.History)
	}
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	return out
}

// Trim keeps the most recent MaxHistoryTurns turns, oldest discarded first.
func Trim(history []Turn) []Turn {
	if len(history) <= MaxHistoryTurns {
		return history
	}
	return history[len(history)-MaxHistoryTurns:]
}
