package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"pdfsum/internal/domain"
	"pdfsum/internal/extractor"
	"pdfsum/internal/pdftest"
	"pdfsum/internal/pipeline"
	"pdfsum/internal/summarizer"
)

const testInstruction = "Summarize the given regulation."

type stubSummarizer struct {
	mu      sync.Mutex
	inputs  []summarizer.Input
	summary string
	err     error
}

func (s *stubSummarizer) Summarize(_ context.Context, input summarizer.Input) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = append(s.inputs, input)

	return s.summary, s.err
}

func (s *stubSummarizer) Model() string {
	return "stub-model"
}

func (s *stubSummarizer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.inputs)
}

func newPipeline(t *testing.T, s summarizer.Summarizer) (*pipeline.Pipeline, string) {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "scratch")
	ext := extractor.New(dir, 1<<20, slog.Default())

	return pipeline.New(ext, s, testInstruction, slog.Default()), dir
}

func TestRunSummarizesExtractedText(t *testing.T) {
	stub := &stubSummarizer{summary: "- bullet"}
	p, dir := newPipeline(t, stub)

	summary, err := p.Run(context.Background(), domain.Upload{
		Name: "reg.pdf",
		Data: pdftest.Build("Article 1", "Article 2"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Text != "- bullet" {
		t.Fatalf("unexpected summary: %q", summary.Text)
	}

	if summary.Instruction != testInstruction || summary.Model != "stub-model" || summary.Pages != 2 {
		t.Fatalf("unexpected summary metadata: %+v", summary)
	}

	if summary.Disclaimer != pipeline.Disclaimer {
		t.Fatalf("unexpected disclaimer: %q", summary.Disclaimer)
	}

	if stub.callCount() != 1 {
		t.Fatalf("expected one summarizer call, got %d", stub.callCount())
	}

	input := stub.inputs[0]
	if input.Instruction != testInstruction {
		t.Fatalf("unexpected instruction: %q", input.Instruction)
	}
	if !strings.Contains(input.Text, "Article 1") || !strings.Contains(input.Text, "Article 2") {
		t.Fatalf("expected extracted text to be sent, got %q", input.Text)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read scratch dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected scratch dir to be empty, found %d entries", len(entries))
	}
}

func TestRunHaltsOnEmptyContent(t *testing.T) {
	stub := &stubSummarizer{summary: "should not be used"}
	p, _ := newPipeline(t, stub)

	_, err := p.Run(context.Background(), domain.Upload{Name: "scan.pdf", Data: pdftest.Build("")})
	if !errors.Is(err, pipeline.ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}

	if stub.callCount() != 0 {
		t.Fatalf("expected no summarizer call, got %d", stub.callCount())
	}

	if msg := pipeline.UserMessage(err); msg != "No extractable text found in the PDF." {
		t.Fatalf("unexpected user message: %q", msg)
	}
}

func TestRunDistinguishesCorruptFromEmpty(t *testing.T) {
	stub := &stubSummarizer{}
	p, _ := newPipeline(t, stub)

	_, err := p.Run(context.Background(), domain.Upload{Name: "broken.pdf", Data: []byte("garbage bytes")})
	if pipeline.KindOf(err) != pipeline.KindExtraction {
		t.Fatalf("expected extraction failure, got %q (%v)", pipeline.KindOf(err), err)
	}

	if errors.Is(err, pipeline.ErrEmptyContent) {
		t.Fatalf("corrupt document must not be reported as empty")
	}

	if stub.callCount() != 0 {
		t.Fatalf("expected no summarizer call, got %d", stub.callCount())
	}
}

func TestRunPropagatesSummarizerErrors(t *testing.T) {
	stub := &stubSummarizer{err: &summarizer.StatusError{StatusCode: http.StatusBadGateway}}
	p, _ := newPipeline(t, stub)

	_, err := p.Run(context.Background(), domain.Upload{Name: "reg.pdf", Data: pdftest.Build("text")})
	if pipeline.KindOf(err) != pipeline.KindNonSuccess {
		t.Fatalf("expected non-success kind, got %q (%v)", pipeline.KindOf(err), err)
	}

	if msg := pipeline.UserMessage(err); msg != "Request failed with status code: 502" {
		t.Fatalf("unexpected user message: %q", msg)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want pipeline.Kind
	}{
		{"Nil", nil, ""},
		{"Empty", fmt.Errorf("x: %w", pipeline.ErrEmptyContent), pipeline.KindEmptyContent},
		{"Extraction", fmt.Errorf("x: %w", extractor.ErrExtraction), pipeline.KindExtraction},
		{"Too large", fmt.Errorf("x: %w", extractor.ErrTooLarge), pipeline.KindTooLarge},
		{"Max bytes", &http.MaxBytesError{Limit: 10}, pipeline.KindTooLarge},
		{"Status", &summarizer.StatusError{StatusCode: 500}, pipeline.KindNonSuccess},
		{"Transport", &summarizer.TransportError{Err: errors.New("refused")}, pipeline.KindTransport},
		{"Deadline", context.DeadlineExceeded, pipeline.KindTransport},
		{"Malformed", fmt.Errorf("x: %w", summarizer.ErrMalformedResponse), pipeline.KindMalformedResponse},
		{"Other", errors.New("other"), pipeline.KindUnknown},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := pipeline.KindOf(test.err); got != test.want {
				t.Fatalf("unexpected kind: got %q want %q", got, test.want)
			}

			if test.err != nil && pipeline.UserMessage(test.err) == "" {
				t.Fatalf("expected a user message for %v", test.err)
			}
		})
	}
}
