package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const sendSpinnerInterval = 3 * time.Second

func (b *Bot) sendTyping(ctx context.Context, chatID int64) {
	config := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	_, err := b.rateLimiter.Request(config)
	if err != nil {
		b.log.ErrorContext(ctx, "Failed to send chat action",
			"error", err)
	}
}

func (b *Bot) withSpinner(ctx context.Context, chatID int64, fn func() error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		b.sendTyping(ctx, chatID)

		t := time.NewTicker(sendSpinnerInterval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				b.sendTyping(ctx, chatID)
			}
		}
	}()

	return fn()
}

// sendMessages sends already escaped MarkdownV2 texts as replies in order.
func (b *Bot) sendMessages(ctx context.Context, chatID int64, replyTo int, texts ...string) error {
	for i, text := range texts {
		normalizedText := strings.ToValidUTF8(text, "?")
		if normalizedText != text {
			b.log.WarnContext(ctx, "Message text had invalid UTF-8 and was normalized",
				"chatID", chatID,
				"originalLen", len(text),
				"normalizedLen", len(normalizedText))
		}

		message := tgbotapi.NewMessage(chatID, normalizedText)

		// See https://core.telegram.org/bots/api#markdownv2-style.
		message.ParseMode = tgbotapi.ModeMarkdownV2
		message.DisableWebPagePreview = true
		if i == 0 {
			message.ReplyToMessageID = replyTo
		}

		if _, err := b.rateLimiter.Send(ctx, message); err != nil {
			return fmt.Errorf("send message %d of %d: %w", i+1, len(texts), err)
		}
	}

	return nil
}
