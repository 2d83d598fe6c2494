package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/arc53/tg-bot-docsgpt-extenstion/internal/conversation"
)

const (
	redisConnectTimeout = 5 * time.Second
	redisKeyPrefix      = "docsgpt:chat:"
)

// RedisStore keeps the state document as JSON under one key per chat.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore parses the URL, connects, and verifies liveness with a short
// ping, mirroring the durable-store initialization contract.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisStore{client: client}, nil
}

// Get loads and decodes the chat's document; a missing key or any failure
// yields the empty default, failures logged.
func (s *RedisStore) Get(ctx context.Context, chatID int64) *conversation.State {
	raw, err := s.client.Get(ctx, redisKeyPrefix+chatKey(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &conversation.State{}
	}
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("redis read failed, using empty state")
		return &conversation.State{}
	}

	var st conversation.State
	if err := json.Unmarshal(raw, &st); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("redis state decode failed, using empty state")
		return &conversation.State{}
	}
	return &st
}

// Save writes the whole document; SET is the upsert. Identity info is carried
// over from the previous document when the new one is absent.
func (s *RedisStore) Save(ctx context.Context, chatID int64, history []conversation.Turn, conversationID string, user *conversation.UserInfo) {
	if user == nil {
		user = s.Get(ctx, chatID).User
	}
	st := conversation.State{
		History:        conversation.Trim(history),
		ConversationID: conversationID,
		User:           user,
		LastUpdated:    nowFunc(),
	}
	raw, err := json.Marshal(&st)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("redis state encode failed")
		return
	}
	if err := s.client.Set(ctx, redisKeyPrefix+chatKey(chatID), raw, 0).Err(); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("redis save failed")
	}
}

func (s *RedisStore) Close(context.Context) error {
	return s.client.Close()
}

func (s *RedisStore) Kind() string { return "redis" }
