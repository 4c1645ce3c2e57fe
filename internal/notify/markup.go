package notify

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Markup is a Telegram parse mode. Text placed in a message must be escaped
// for it, or Telegram rejects the whole message.
type Markup string

const (
	MarkupPlain      Markup = ""
	MarkupMarkdown   Markup = tgbotapi.ModeMarkdown
	MarkupMarkdownV2 Markup = tgbotapi.ModeMarkdownV2
	MarkupHTML       Markup = tgbotapi.ModeHTML
)

// ParseMarkup resolves a configured parse mode. Empty and "none" mean plain text.
func ParseMarkup(s string) (Markup, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return MarkupPlain, nil
	case "markdown":
		return MarkupMarkdown, nil
	case "markdownv2":
		return MarkupMarkdownV2, nil
	case "html":
		return MarkupHTML, nil
	}
	return "", fmt.Errorf("unknown parse mode %q (valid: Markdown, MarkdownV2, HTML, none)", s)
}

// Escape makes text safe to place literally in a message.
func (m Markup) Escape(text string) string {
	if m == MarkupPlain {
		return text
	}
	return tgbotapi.EscapeText(string(m), text)
}

// Bold escapes text and marks it bold.
func (m Markup) Bold(text string) string {
	switch m {
	case MarkupMarkdown, MarkupMarkdownV2:
		return "*" + m.Escape(text) + "*"
	case MarkupHTML:
		return "<b>" + m.Escape(text) + "</b>"
	default:
		return text
	}
}

var htmlPlain = strings.NewReplacer("<b>", "", "</b>", "", "&lt;", "<", "&gt;", ">", "&amp;", "&")

// Plain undoes Bold and Escape, for channels that print the raw text.
func (m Markup) Plain(text string) string {
	switch m {
	case MarkupMarkdown, MarkupMarkdownV2:
		var b strings.Builder
		escaped := false
		for _, r := range text {
			switch {
			case escaped:
				b.WriteRune(r)
				escaped = false
			case r == '\\':
				escaped = true
			case r == '*':
			default:
				b.WriteRune(r)
			}
		}
		return b.String()
	case MarkupHTML:
		return htmlPlain.Replace(text)
	default:
		return text
	}
}
