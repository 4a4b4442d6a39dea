package bot

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"pdfsum/internal/pipeline"
	"pdfsum/internal/ratelimiter"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	maxBackoffSeconds         = 60
	initialBackoffSeconds     = 3
	backoffGrowthFactor       = 2
	resetOffsetBackoffSeconds = 30
	downloadTimeout           = time.Minute

	BotUpdateTimeout = 60
)

// fileLocator resolves a Telegram file ID to a download URL.
type fileLocator interface {
	GetFileDirectURL(fileID string) (string, error)
}

// Bot is the Telegram frontend: users send a PDF document and get its
// summary back.
type Bot struct {
	api            *tgbotapi.BotAPI
	files          fileLocator
	rateLimiter    *ratelimiter.RateLimiter
	pipeline       *pipeline.Pipeline
	httpClient     *http.Client
	maxUploadBytes int64
	// updateTimeout bounds one document round trip including summarization.
	updateTimeout time.Duration
	allowedUsers  []int64
	log           *slog.Logger
}

func New(
	token string,
	p *pipeline.Pipeline,
	maxUploadBytes int64,
	summarizerTimeout time.Duration,
	allowedUsers []int64,
	log *slog.Logger,
) (*Bot, error) {
	token = strings.TrimSpace(token)

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}

	return &Bot{
		api:            api,
		files:          api,
		rateLimiter:    ratelimiter.New(api, log),
		pipeline:       p,
		httpClient:     &http.Client{Timeout: downloadTimeout},
		maxUploadBytes: maxUploadBytes,
		updateTimeout:  downloadTimeout + summarizerTimeout,
		allowedUsers:   allowedUsers,
		log:            log,
	}, nil
}

func (b *Bot) Username() string {
	return b.api.Self.UserName
}

func (b *Bot) Start(ctx context.Context) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = BotUpdateTimeout
	updateConfig.AllowedUpdates = []string{"message"}

	backoffSeconds := initialBackoffSeconds

	for {
		select {
		case <-ctx.Done():
			b.log.InfoContext(ctx, "Bot context is done",
				"error", ctx.Err())
			return
		default:
		}

		updates := b.api.GetUpdatesChan(updateConfig)
		updatesClosed := false

		for !updatesClosed {
			select {
			case <-ctx.Done():
				b.api.StopReceivingUpdates()
				b.log.InfoContext(ctx, "Bot context is done",
					"error", ctx.Err())
				return

			case update, ok := <-updates:
				if !ok {
					updatesClosed = true
					continue
				}
				updateConfig.Offset = update.UpdateID + 1

				b.handleUpdate(ctx, &update)
			}
		}

		if ctx.Err() != nil {
			return
		}

		b.log.WarnContext(ctx, "Update channel is closed, reconnecting...",
			"offset", updateConfig.Offset,
			"backoffSeconds", backoffSeconds)

		select {
		case <-time.After(time.Duration(backoffSeconds) * time.Second):
		case <-ctx.Done():
			return
		}

		backoffSeconds = updateBackoffSeconds(backoffSeconds)

		if backoffSeconds >= resetOffsetBackoffSeconds {
			updateConfig.Offset = 0
		}
	}
}

func (b *Bot) Stop() {
	if b.rateLimiter != nil {
		b.rateLimiter.Stop()
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	message := update.Message
	if message == nil || message.From == nil || message.Chat == nil {
		return
	}

	updateCtx, cancel := context.WithTimeout(ctx, b.updateTimeout)
	defer cancel()

	userID := message.From.ID
	if !b.userAllowed(userID) {
		b.log.DebugContext(updateCtx, "User is not allowed",
			"userID", userID,
			"chatID", message.Chat.ID,
			"username", message.From.UserName)

		return
	}

	if err := b.handleMessage(updateCtx, message); err != nil {
		b.log.ErrorContext(updateCtx, "Failed to handle message",
			"error", err,
			"chatID", message.Chat.ID,
			"userID", userID,
			"chatType", message.Chat.Type,
			"messageID", message.MessageID)
	}
}

func (b *Bot) userAllowed(userID int64) bool {
	return len(b.allowedUsers) == 0 || slices.Contains(b.allowedUsers, userID)
}

func updateBackoffSeconds(backoffSeconds int) int {
	if backoffSeconds < maxBackoffSeconds {
		backoffSeconds *= backoffGrowthFactor
		if backoffSeconds > maxBackoffSeconds {
			backoffSeconds = maxBackoffSeconds
		}
	}
	return backoffSeconds
}
