package tui

import (
	"strings"

	"golang.org/x/net/html"
)

// StripHTML converts backend product descriptions (which arrive as HTML
// fragments) to plain text suitable for a terminal.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}

	var out strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(s))

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return normalizeLines(out.String())

		case html.TextToken:
			out.Write(tokenizer.Text())

		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			tag, _ := tokenizer.TagName()
			switch string(tag) {
			case "p", "div", "br", "li", "ul", "ol", "h1", "h2", "h3", "h4", "h5", "h6":
				out.WriteString("\n")
			}
		}
	}
}

// normalizeLines trims each line, drops blanks, and decodes the handful of
// entities the backend actually emits.
func normalizeLines(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&apos;", "'",
		"&nbsp;", " ",
	)
	return replacer.Replace(strings.Join(lines, "\n"))
}
