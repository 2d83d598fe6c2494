package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/arc53/tg-bot-docsgpt-extenstion/internal/bot"
	"github.com/arc53/tg-bot-docsgpt-extenstion/internal/config"
	"github.com/arc53/tg-bot-docsgpt-extenstion/internal/docsgpt"
	"github.com/arc53/tg-bot-docsgpt-extenstion/internal/storage"
	"github.com/arc53/tg-bot-docsgpt-extenstion/internal/telegram"
)

// The answer API call carries its own generous timeout; a question can take
// a while to answer.
const answerTimeout = 120 * time.Second

var rootCmd = &cobra.Command{
	Use:   "tg-bot-docsgpt",
	Short: "Telegram bot that relays questions to the DocsGPT answer API",
	Long: `A Telegram bot that forwards user questions to the DocsGPT answer API,
keeps a bounded conversation transcript per chat in a pluggable storage
backend (mongodb, redis, sqlite, or process memory), and replies with the
API's answer.`,
	RunE: runBot,
}

func Execute() error {
	return rootCmd.Execute()
}

func runBot(_ *cobra.Command, _ []string) error {
	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("failed to close storage backend")
		}
	}()

	tg := telegram.NewClient(cfg.TelegramAPIBase, time.Duration(cfg.PollTimeout+20)*time.Second)
	api := docsgpt.NewClient(cfg.APIBase, cfg.APIKey, answerTimeout)

	log.Info().
		Str("api_base", cfg.APIBase).
		Str("backend", store.Kind()).
		Msg("bot running")

	b := bot.New(tg, api, store, cfg.PollTimeout, time.Duration(cfg.SleepSeconds)*time.Second)
	if err := b.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	log.Info().Msg("bot stopped")
	return nil
}
