package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
)

const (
	scratchFilePrefix = "upload-"
	scratchFileSuffix = ".pdf"
	scratchDirPerm    = 0o700
	scratchFilePerm   = 0o600
)

var (
	// ErrExtraction marks uploads that could not be saved, opened or read as a PDF.
	ErrExtraction = errors.New("extract PDF text")
	// ErrTooLarge marks uploads above the configured size limit.
	ErrTooLarge = errors.New("upload is too large")
)

// Extractor turns uploaded PDF bytes into plain text. Every call owns a
// uniquely named scratch file, so calls are safe to run concurrently.
type Extractor struct {
	scratchDir string
	maxBytes   int64
	log        *slog.Logger
}

func New(scratchDir string, maxBytes int64, log *slog.Logger) *Extractor {
	return &Extractor{
		scratchDir: scratchDir,
		maxBytes:   maxBytes,
		log:        log,
	}
}

func (e *Extractor) MaxBytes() int64 {
	return e.maxBytes
}

func (e *Extractor) ScratchDir() string {
	return e.scratchDir
}

// Extract returns the text of all pages concatenated in page order. An empty
// string with a nil error means the document has no text layer.
func (e *Extractor) Extract(ctx context.Context, upload []byte) (string, error) {
	pages, err := e.ExtractPages(ctx, upload)
	if err != nil {
		return "", err
	}

	return strings.Join(pages, ""), nil
}

// ExtractPages returns the plain text of each page, index 0 being page 1.
func (e *Extractor) ExtractPages(ctx context.Context, upload []byte) ([]string, error) {
	if len(upload) == 0 {
		return nil, fmt.Errorf("%w: upload is empty", ErrExtraction)
	}

	if e.maxBytes > 0 && int64(len(upload)) > e.maxBytes {
		return nil, fmt.Errorf("%w (size = %d, limit = %d)", ErrTooLarge, len(upload), e.maxBytes)
	}

	path, err := e.writeScratchFile(upload)
	if err != nil {
		e.log.ErrorContext(ctx, "Failed to write scratch file",
			"error", err,
			"scratchDir", e.scratchDir,
			"sizeBytes", len(upload))

		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	defer e.removeScratchFile(ctx, path)

	pages, err := readPages(ctx, path)
	if err != nil {
		// Cancellation says nothing about the document itself.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("read PDF pages: %w", err)
		}

		e.log.ErrorContext(ctx, "Failed to extract PDF text",
			"error", err,
			"scratchPath", path,
			"sizeBytes", len(upload))

		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	e.log.DebugContext(ctx, "PDF text is extracted",
		"pageCount", len(pages),
		"sizeBytes", len(upload))

	return pages, nil
}

func (e *Extractor) writeScratchFile(upload []byte) (string, error) {
	if err := os.MkdirAll(e.scratchDir, scratchDirPerm); err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}

	path := filepath.Join(e.scratchDir, scratchFilePrefix+uuid.NewString()+scratchFileSuffix)

	// O_EXCL keeps two calls from ever sharing a file, even on a uuid collision.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, scratchFilePerm)
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}

	_, writeErr := f.Write(upload)
	closeErr := f.Close()
	if err = errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(path)

		return "", fmt.Errorf("write scratch file: %w", err)
	}

	return path, nil
}

func (e *Extractor) removeScratchFile(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		e.log.ErrorContext(ctx, "Failed to remove scratch file",
			"error", err,
			"scratchPath", path)
	}
}

func readPages(ctx context.Context, path string) (pages []string, err error) {
	// The PDF reader panics on some malformed object graphs.
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = fmt.Errorf("malformed PDF: %v", rec)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	defer f.Close()

	pageCount := r.NumPage()
	pages = make([]string, 0, pageCount)

	for i := 1; i <= pageCount; i++ {
		if err = ctx.Err(); err != nil {
			return nil, err
		}

		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			return nil, fmt.Errorf("extract page %d text: %w", i, pageErr)
		}

		pages = append(pages, text)
	}

	return pages, nil
}
