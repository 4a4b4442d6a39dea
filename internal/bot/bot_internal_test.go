package bot

import (
	"strings"
	"testing"
	"unicode/utf8"

	"pdfsum/internal/domain"
	"pdfsum/internal/pipeline"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestIsPDFDocument(t *testing.T) {
	tests := []struct {
		name     string
		document *tgbotapi.Document
		want     bool
	}{
		{"No document", nil, false},
		{"PDF MIME type", &tgbotapi.Document{MimeType: "application/pdf", FileName: "scan"}, true},
		{"PDF extension", &tgbotapi.Document{MimeType: "application/octet-stream", FileName: "Reg.PDF"}, true},
		{"Other document", &tgbotapi.Document{MimeType: "text/plain", FileName: "notes.txt"}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := isPDFDocument(test.document); got != test.want {
				t.Fatalf("unexpected result: got %v want %v", got, test.want)
			}
		})
	}
}

func TestUserAllowed(t *testing.T) {
	open := &Bot{}
	if !open.userAllowed(42) {
		t.Fatalf("expected every user to be allowed without a list")
	}

	restricted := &Bot{allowedUsers: []int64{1, 2}}
	if !restricted.userAllowed(2) {
		t.Fatalf("expected listed user to be allowed")
	}
	if restricted.userAllowed(3) {
		t.Fatalf("expected unlisted user to be rejected")
	}
}

func TestUpdateBackoffSeconds(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{3, 6},
		{40, 60},
		{60, 60},
	}

	for _, test := range tests {
		if got := updateBackoffSeconds(test.in); got != test.want {
			t.Fatalf("updateBackoffSeconds(%d) = %d, want %d", test.in, got, test.want)
		}
	}
}

func TestFormatSummary(t *testing.T) {
	messages := formatSummary(domain.Summary{
		Text:        "- Point one.\n- Point two!",
		Instruction: "Summarize the regulation.",
		Disclaimer:  pipeline.Disclaimer,
	})

	if len(messages) != 2 {
		t.Fatalf("expected header and one chunk, got %d messages", len(messages))
	}

	header := messages[0]
	for _, want := range []string{"AI Summarization:", "⚠️ *Important Note:*", `Summarize the regulation\.`} {
		if !strings.Contains(header, want) {
			t.Fatalf("header %q does not contain %q", header, want)
		}
	}

	if want := `\- Point one\.` + "\n" + `\- Point two\!`; messages[1] != want {
		t.Fatalf("unexpected body: got %q want %q", messages[1], want)
	}
}

func TestFormatSummaryChunksLongText(t *testing.T) {
	line := strings.Repeat("word ", 100) + "\n"
	text := strings.Repeat(line, 30)

	messages := formatSummary(domain.Summary{Text: text, Disclaimer: pipeline.Disclaimer})
	if len(messages) < 3 {
		t.Fatalf("expected the body to be chunked, got %d messages", len(messages))
	}

	for i, message := range messages {
		if n := utf8.RuneCountInString(message); n > 4096 {
			t.Fatalf("message %d is too long: %d runes", i, n)
		}
	}
}

func TestFormatSummaryEmptyText(t *testing.T) {
	messages := formatSummary(domain.Summary{Text: "  "})
	if len(messages) != 2 || !strings.Contains(messages[1], "empty summary") {
		t.Fatalf("unexpected messages: %q", messages)
	}
}

func TestUsageTextIncludesInstruction(t *testing.T) {
	got := usageText("Summarize (briefly).")
	if !strings.Contains(got, `Summarize \(briefly\)\.`) {
		t.Fatalf("unexpected usage text: %q", got)
	}
}
