package web

import (
	"html/template"
	"strings"

	"mvdan.cc/xurls/v2"
)

var summaryURLRe = xurls.Strict()

// linkify escapes text and turns the URLs it contains into anchors.
func linkify(text string) template.HTML {
	matches := summaryURLRe.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return template.HTML(template.HTMLEscapeString(text))
	}

	var b strings.Builder
	last := 0

	for _, m := range matches {
		u := text[m[0]:m[1]]
		b.WriteString(template.HTMLEscapeString(text[last:m[0]]))

		if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
			escaped := template.HTMLEscapeString(u)
			b.WriteString(`<a href="` + escaped + `" rel="noopener noreferrer" target="_blank">` + escaped + `</a>`)
		} else {
			b.WriteString(template.HTMLEscapeString(u))
		}

		last = m[1]
	}
	b.WriteString(template.HTMLEscapeString(text[last:]))

	return template.HTML(b.String())
}
