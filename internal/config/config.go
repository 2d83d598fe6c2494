// Package config reads bot configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds configuration for the bot process.
type Config struct {
	TelegramToken   string
	TelegramAPIBase string
	APIBase         string
	APIKey          string

	Storage Storage

	PollTimeout  int
	SleepSeconds int
	LogLevel     string
}

// Storage holds backend selection and connection settings.
type Storage struct {
	Type            string
	MongoURI        string
	MongoDB         string
	MongoCollection string
	RedisURL        string
	SQLitePath      string
}

// Load reads configuration from environment variables. The Telegram token is
// required; storage connection settings are validated by the storage selector
// at startup.
func Load() (Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return Config{}, fmt.Errorf("TELEGRAM_BOT_TOKEN is required in environment")
	}

	return Config{
		TelegramToken:   token,
		TelegramAPIBase: fmt.Sprintf("https://api.telegram.org/bot%s", token),
		APIBase:         envOrDefault("API_BASE", "https://gptcloud.arc53.com"),
		APIKey:          os.Getenv("API_KEY"),
		Storage: Storage{
			Type:            envOrDefault("STORAGE_TYPE", "memory"),
			MongoURI:        os.Getenv("MONGO_URI"),
			MongoDB:         envOrDefault("MONGO_DB", "docsgpt"),
			MongoCollection: envOrDefault("MONGO_COLLECTION", "conversations"),
			RedisURL:        os.Getenv("REDIS_URL"),
			SQLitePath:      os.Getenv("SQLITE_PATH"),
		},
		PollTimeout:  envIntOrDefault("TG_TIMEOUT", 30),
		SleepSeconds: envIntOrDefault("TG_SLEEP_SECONDS", 1),
		LogLevel:     envOrDefault("LOG_LEVEL", "info"),
	}, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
