// Package bot runs the Telegram polling loop and the per-message
// conversation workflow.
package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/arc53/tg-bot-docsgpt-extenstion/internal/conversation"
	"github.com/arc53/tg-bot-docsgpt-extenstion/internal/docsgpt"
	"github.com/arc53/tg-bot-docsgpt-extenstion/internal/storage"
	"github.com/arc53/tg-bot-docsgpt-extenstion/internal/telegram"
)

const helpReply = "Send me a question and I will ask DocsGPT for you. Use /start to say hi."

// Degraded answers shown when the answer API fails. The bot always replies
// with something; a failure never silences it.
const (
	answerUnavailableHTTP    = "Sorry, the answer service returned an error (HTTP %d). Please try again later."
	answerUnavailableFormat  = "Sorry, the answer service returned a response I could not read. Please try again later."
	answerUnavailableNetwork = "Sorry, I could not reach the answer service (network problem). Please try again later."
)

// Messenger is the chat-platform surface the workflow needs.
type Messenger interface {
	GetUpdates(ctx context.Context, offset int64, timeout int) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chatID int64, text, parseMode string) error
}

// AnswerClient asks the remote question-answering API.
type AnswerClient interface {
	Answer(ctx context.Context, question string, history []conversation.QAPair, conversationID string) (docsgpt.Result, error)
}

// Bot wires the platform client, the answer API, and the storage backend.
// The backend is injected once at construction; the workflow never knows
// which implementation is active.
type Bot struct {
	tg          Messenger
	api         AnswerClient
	store       storage.Backend
	pollTimeout int
	sleep       time.Duration
}

// New creates a Bot. pollTimeout is the getUpdates long-poll window in
// seconds; sleep is the idle/error pause between poll attempts.
func New(tg Messenger, api AnswerClient, store storage.Backend, pollTimeout int, sleep time.Duration) *Bot {
	return &Bot{
		tg:          tg,
		api:         api,
		store:       store,
		pollTimeout: pollTimeout,
		sleep:       sleep,
	}
}

// Run polls for updates until the context is canceled. Poll errors are
// logged and retried after a pause; they never stop the loop.
func (b *Bot) Run(ctx context.Context) error {
	var offset int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		updates, err := b.tg.GetUpdates(ctx, offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Msg("getUpdates failed")
			if !sleepCtx(ctx, b.sleep) {
				return ctx.Err()
			}
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			if update.Message == nil || update.Message.Text == nil || *update.Message.Text == "" {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}

		if len(updates) == 0 && b.pollTimeout == 0 {
			if !sleepCtx(ctx, b.sleep) {
				return ctx.Err()
			}
		}
	}
}

// handleMessage dispatches one inbound text message. Commands get fixed
// replies and never touch conversation state.
func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) {
	text := strings.TrimSpace(*msg.Text)
	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, msg, text)
		return
	}
	b.answer(ctx, msg, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *telegram.Message, text string) {
	command := strings.Fields(text)[0]
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}
	switch command {
	case "/start":
		if err := b.tg.SendMessage(ctx, msg.Chat.ID, startGreeting(msg.From), telegram.ParseModeHTML); err != nil {
			log.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("failed to send /start reply")
		}
	case "/help":
		if err := b.tg.SendMessage(ctx, msg.Chat.ID, helpReply, telegram.ParseModeNone); err != nil {
			log.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("failed to send /help reply")
		}
	default:
		log.Debug().Str("command", command).Int64("chat_id", msg.Chat.ID).Msg("ignoring unknown command")
	}
}

// answer runs the load / append / query / append / persist / reply workflow
// for one question.
func (b *Bot) answer(ctx context.Context, msg *telegram.Message, question string) {
	chatID := msg.Chat.ID
	logger := log.With().
		Str("request_id", uuid.NewString()).
		Int64("chat_id", chatID).
		Str("backend", b.store.Kind()).
		Logger()

	state := b.store.Get(ctx, chatID)
	state.History = append(state.History, conversation.Turn{Role: conversation.RoleUser, Content: question})

	// The formatter runs over history that already includes the new user
	// turn; it surfaces as a trailing unpaired prompt for the API.
	pairs := conversation.FormatHistory(state.History)

	answer, conversationID := b.query(ctx, logger, question, pairs, state.ConversationID)

	state.History = append(state.History, conversation.Turn{Role: conversation.RoleAssistant, Content: answer})
	b.store.Save(ctx, chatID, state.History, conversationID, userInfoFrom(msg.From))

	b.reply(ctx, logger, chatID, answer)
}

// query calls the answer API. Every failure mode maps to a degraded answer
// and keeps the previous conversation id; the workflow always proceeds to
// persist and reply.
func (b *Bot) query(ctx context.Context, logger zerolog.Logger, question string, pairs []conversation.QAPair, previousID string) (answer, conversationID string) {
	result, err := b.api.Answer(ctx, question, pairs, previousID)
	if err == nil {
		conversationID = result.ConversationID
		if conversationID == "" {
			conversationID = previousID
		}
		return result.Answer, conversationID
	}

	logger.Error().Err(err).Msg("answer request failed")
	var statusErr *docsgpt.StatusError
	var formatErr *docsgpt.FormatError
	switch {
	case errors.As(err, &statusErr):
		return fmt.Sprintf(answerUnavailableHTTP, statusErr.Code), previousID
	case errors.As(err, &formatErr):
		return answerUnavailableFormat, previousID
	default:
		return answerUnavailableNetwork, previousID
	}
}

// reply sends the answer with MarkdownV2 escaping; if the platform rejects
// the formatted message, it retries once as plain text. A second failure is
// logged and dropped: state is already saved, so the user can just ask again.
func (b *Bot) reply(ctx context.Context, logger zerolog.Logger, chatID int64, answer string) {
	escaped := telegram.EscapeMarkdown(answer)
	err := b.tg.SendMessage(ctx, chatID, escaped, telegram.ParseModeMarkdownV2)
	if err == nil {
		return
	}
	logger.Warn().Err(err).Msg("formatted reply rejected, retrying as plain text")
	if err := b.tg.SendMessage(ctx, chatID, answer, telegram.ParseModeNone); err != nil {
		logger.Error().Err(err).Msg("plain reply failed, dropping message")
	}
}

func startGreeting(user *telegram.User) string {
	if user == nil || user.FirstName == "" {
		return "Hi!"
	}
	return fmt.Sprintf(`Hi <a href="tg://user?id=%d">%s</a>!`, user.ID, html.EscapeString(user.FirstName))
}

func userInfoFrom(user *telegram.User) *conversation.UserInfo {
	if user == nil {
		return nil
	}
	return &conversation.UserInfo{
		ID:           user.ID,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Username:     user.Username,
		IsBot:        user.IsBot,
		LanguageCode: user.LanguageCode,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
