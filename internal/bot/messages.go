package bot

import (
	"strings"

	"pdfsum/internal/domain"
	"pdfsum/internal/markdown"
)

// Escaping can at most double the length, which keeps every chunk under
// the 4096 characters Telegram accepts.
const summaryChunkRunes = 2000

func usageText(instruction string) string {
	var b strings.Builder

	b.WriteString("📄 *PDF Summarization*\n\n")
	b.WriteString(markdown.EscapeV2("Send me a PDF document and I will reply with its summary."))
	b.WriteString("\n\n_")
	b.WriteString(markdown.EscapeV2(instruction))
	b.WriteString("_")

	return b.String()
}

// formatSummary renders the summary header and the chunked summary body.
func formatSummary(summary domain.Summary) []string {
	var header strings.Builder

	header.WriteString("_")
	header.WriteString(markdown.EscapeV2(summary.Instruction))
	header.WriteString("_\n\n")
	header.WriteString("*AI Summarization:*\n\n")
	header.WriteString("⚠️ *Important Note:* ")
	header.WriteString(markdown.EscapeV2(summary.Disclaimer))

	messages := []string{header.String()}

	chunks := markdown.Split(summary.Text, summaryChunkRunes)
	if len(chunks) == 0 {
		return append(messages, markdown.EscapeV2("(The model returned an empty summary.)"))
	}

	for _, chunk := range chunks {
		messages = append(messages, markdown.EscapeV2(chunk))
	}

	return messages
}
