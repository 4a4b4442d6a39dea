package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"pdfsum/internal/domain"
	"pdfsum/internal/extractor"
	"pdfsum/internal/markdown"
	"pdfsum/internal/pipeline"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const pdfMimeType = "application/pdf"

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	if !isPDFDocument(message.Document) {
		return b.sendMessages(ctx, message.Chat.ID, message.MessageID, usageText(b.pipeline.Instruction()))
	}

	return b.withSpinner(ctx, message.Chat.ID, func() error {
		return b.handleDocument(ctx, message)
	})
}

func (b *Bot) handleDocument(ctx context.Context, message *tgbotapi.Message) error {
	summary, err := b.summarizeDocument(ctx, message.Document)
	if err != nil {
		b.log.WarnContext(ctx, "Failed to summarize document",
			"error", err,
			"kind", pipeline.KindOf(err),
			"chatID", message.Chat.ID,
			"fileName", message.Document.FileName)

		sendErr := b.sendMessages(ctx, message.Chat.ID, message.MessageID,
			"✖️ "+markdown.EscapeV2(pipeline.UserMessage(err)))
		if sendErr != nil {
			return errors.Join(err, fmt.Errorf("send error message: %w", sendErr))
		}

		return nil
	}

	if err = b.sendMessages(ctx, message.Chat.ID, message.MessageID, formatSummary(summary)...); err != nil {
		return fmt.Errorf("send summary: %w", err)
	}

	return nil
}

func (b *Bot) summarizeDocument(ctx context.Context, document *tgbotapi.Document) (domain.Summary, error) {
	if int64(document.FileSize) > b.maxUploadBytes {
		return domain.Summary{}, fmt.Errorf("%w (size = %d, limit = %d)",
			extractor.ErrTooLarge, document.FileSize, b.maxUploadBytes)
	}

	data, err := b.downloadDocument(ctx, document.FileID)
	if err != nil {
		return domain.Summary{}, err
	}

	doc, err := b.pipeline.Extract(ctx, domain.Upload{Name: document.FileName, Data: data})
	if err != nil {
		return domain.Summary{}, err
	}

	return b.pipeline.Summarize(ctx, doc)
}

func (b *Bot) downloadDocument(ctx context.Context, fileID string) ([]byte, error) {
	fileURL, err := b.files.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			b.log.WarnContext(ctx, "Failed to close download body",
				"error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, b.maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	if int64(len(data)) > b.maxUploadBytes {
		return nil, fmt.Errorf("%w (limit = %d)", extractor.ErrTooLarge, b.maxUploadBytes)
	}

	return data, nil
}

func isPDFDocument(document *tgbotapi.Document) bool {
	if document == nil {
		return false
	}

	if strings.EqualFold(document.MimeType, pdfMimeType) {
		return true
	}

	return strings.EqualFold(path.Ext(document.FileName), ".pdf")
}
