package local

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
	blankLines      = regexp.MustCompile(`\s*\n\s*`)
)

// blockTags end a line when they close
var blockTags = map[string]bool{
	"p":   true,
	"br":  true,
	"li":  true,
	"div": true,
	"tr":  true,
}

// NormalizeBody converts an HTML body to text. Bodies without markup are only trimmed.
func NormalizeBody(body string) string {
	if strings.Contains(body, "<") && strings.Contains(body, ">") {
		return HTMLToText(body)
	}
	return strings.TrimSpace(body)
}

// HTMLToText extracts readable text from an HTML document.
// Script and style content is dropped, block elements become line breaks
// and whitespace runs collapse to one character.
func HTMLToText(body string) string {
	z := html.NewTokenizer(strings.NewReader(body))
	var b strings.Builder
	skip := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return collapseWhitespace(b.String())
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				skip++
			default:
				if blockTags[string(name)] {
					b.WriteByte('\n')
				}
			}
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if blockTags[string(name)] {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && skip > 0 {
				skip--
				continue
			}
			if blockTags[tag] {
				b.WriteByte('\n')
			}
		}
	}
}

func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = horizontalSpace.ReplaceAllString(s, " ")
	s = blankLines.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
