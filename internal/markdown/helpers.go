package markdown

import (
	"strings"
	"unicode/utf8"
)

// Taken from https://core.telegram.org/bots/api#markdownv2-style.
const mdV2SpecialChars = `\_*[]()~` + "`" + `>#+-=|{}.!`

//nolint:gochecknoglobals // Lookup table meant to be immutable.
var mdV2Lookup = func() [256]bool {
	var m [256]bool
	for i := range len(mdV2SpecialChars) {
		m[mdV2SpecialChars[i]] = true
	}
	return m
}()

// EscapeV2 escapes every MarkdownV2 special character so text renders literally.
func EscapeV2(input string) string {
	charsToEscape := 0
	for i := range len(input) {
		if mdV2Lookup[input[i]] {
			charsToEscape++
		}
	}
	if charsToEscape == 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input) + charsToEscape)

	for i := range len(input) {
		c := input[i]
		if mdV2Lookup[c] {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}

	return b.String()
}

// Split cuts text into chunks of at most maxRunes runes, preferring line
// breaks, then spaces, as cut points.
func Split(text string, maxRunes int) []string {
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	var chunks []string
	rest := text

	for utf8.RuneCountInString(rest) > maxRunes {
		limit := byteOffset(rest, maxRunes)
		cut := strings.LastIndexByte(rest[:limit], '\n')
		if cut <= 0 {
			cut = strings.LastIndexByte(rest[:limit], ' ')
		}
		if cut <= 0 {
			cut = limit
		}

		if chunk := strings.TrimRight(rest[:cut], " \n"); chunk != "" {
			chunks = append(chunks, chunk)
		}
		rest = strings.TrimLeft(rest[cut:], " \n")
	}

	if strings.TrimSpace(rest) != "" {
		chunks = append(chunks, rest)
	}

	return chunks
}

func byteOffset(s string, runes int) int {
	i := 0
	for pos := range s {
		if i == runes {
			return pos
		}
		i++
	}
	return len(s)
}
