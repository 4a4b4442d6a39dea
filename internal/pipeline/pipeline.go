package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pdfsum/internal/domain"
	"pdfsum/internal/summarizer"
)

const Disclaimer = "AI-generated content can sometimes contain errors or inaccuracies. " +
	"Always manually verify any critical information before acting on it."

// ErrEmptyContent marks readable PDFs without any extractable text.
var ErrEmptyContent = errors.New("no extractable text")

// Extractor turns uploaded PDF bytes into per-page text.
type Extractor interface {
	ExtractPages(ctx context.Context, upload []byte) ([]string, error)
}

// Pipeline runs upload -> extract -> summarize for every frontend.
type Pipeline struct {
	extractor   Extractor
	summarizer  summarizer.Summarizer
	instruction string
	model       string
	log         *slog.Logger
}

func New(
	extractor Extractor,
	s summarizer.Summarizer,
	instruction string,
	log *slog.Logger,
) *Pipeline {
	var model string
	if m, ok := s.(interface{ Model() string }); ok {
		model = m.Model()
	}

	return &Pipeline{
		extractor:   extractor,
		summarizer:  s,
		instruction: instruction,
		model:       model,
		log:         log,
	}
}

func (p *Pipeline) Instruction() string {
	return p.instruction
}

// Extract returns ErrEmptyContent when the document has no text besides whitespace.
func (p *Pipeline) Extract(ctx context.Context, upload domain.Upload) (domain.Document, error) {
	start := time.Now()

	pages, err := p.extractor.ExtractPages(ctx, upload.Data)
	if err != nil {
		return domain.Document{}, fmt.Errorf("extract %q: %w", upload.Name, err)
	}

	doc := domain.Document{
		Name:  upload.Name,
		Text:  strings.Join(pages, ""),
		Pages: len(pages),
	}

	p.log.InfoContext(ctx, "Document is extracted",
		"fileName", upload.Name,
		"sizeBytes", len(upload.Data),
		"pageCount", doc.Pages,
		"textLength", len(doc.Text),
		"durationSeconds", time.Since(start).Seconds())

	if strings.TrimSpace(doc.Text) == "" {
		return doc, fmt.Errorf("extract %q: %w", upload.Name, ErrEmptyContent)
	}

	return doc, nil
}

func (p *Pipeline) Summarize(ctx context.Context, doc domain.Document) (domain.Summary, error) {
	start := time.Now()

	text, err := p.summarizer.Summarize(ctx, summarizer.Input{
		Text:        doc.Text,
		Instruction: p.instruction,
	})
	if err != nil {
		return domain.Summary{}, fmt.Errorf("summarize %q: %w", doc.Name, err)
	}

	p.log.InfoContext(ctx, "Document is summarized",
		"fileName", doc.Name,
		"model", p.model,
		"summaryLength", len(text),
		"durationSeconds", time.Since(start).Seconds())

	return domain.Summary{
		Text:        text,
		Instruction: p.instruction,
		Model:       p.model,
		Disclaimer:  Disclaimer,
		Pages:       doc.Pages,
	}, nil
}

// Run extracts the upload and, when it has text, summarizes it. The
// summarizer is never called for an empty document.
func (p *Pipeline) Run(ctx context.Context, upload domain.Upload) (domain.Summary, error) {
	doc, err := p.Extract(ctx, upload)
	if err != nil {
		return domain.Summary{}, err
	}

	return p.Summarize(ctx, doc)
}
