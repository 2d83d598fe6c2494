package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/arc53/tg-bot-docsgpt-extenstion/internal/config"
)

// Open chooses and initializes exactly one backend from configuration.
//
// A durable kind whose connection setting is missing is a fatal condition:
// the explicit intent to persist cannot be honored silently, so an error is
// returned and the process must not start. A durable kind whose connection
// attempt fails falls back to memory for the process lifetime, logged as a
// warning; there is no later reconnect. Unrecognized kinds warn and default
// to memory.
func Open(ctx context.Context, cfg config.Storage) (Backend, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Type))
	switch kind {
	case "mongodb", "mongo", "durable":
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("STORAGE_TYPE=%s requires MONGO_URI", cfg.Type)
		}
		store, err := NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoCollection)
		if err != nil {
			return fallback(kind, err), nil
		}
		log.Info().Str("backend", store.Kind()).Str("database", cfg.MongoDB).Str("collection", cfg.MongoCollection).Msg("storage backend ready")
		return store, nil

	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("STORAGE_TYPE=%s requires REDIS_URL", cfg.Type)
		}
		store, err := NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return fallback(kind, err), nil
		}
		log.Info().Str("backend", store.Kind()).Msg("storage backend ready")
		return store, nil

	case "sqlite":
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("STORAGE_TYPE=%s requires SQLITE_PATH", cfg.Type)
		}
		store, err := NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return fallback(kind, err), nil
		}
		log.Info().Str("backend", store.Kind()).Str("path", cfg.SQLitePath).Msg("storage backend ready")
		return store, nil

	case "memory", "volatile":
		log.Info().Str("backend", "memory").Msg("storage backend ready")
		return NewMemoryStore(), nil

	default:
		log.Warn().Str("storage_type", cfg.Type).Msg("unrecognized storage type, defaulting to memory")
		return NewMemoryStore(), nil
	}
}

func fallback(kind string, err error) Backend {
	log.Warn().Err(err).Str("storage_type", kind).Msg("storage backend unreachable, falling back to memory for this process")
	return NewMemoryStore()
}
