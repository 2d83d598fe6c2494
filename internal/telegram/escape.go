package telegram

import "strings"

// markdownEscapeChars are the MarkdownV2 markup symbols that must be
// backslash-escaped in regular text before sending.
const markdownEscapeChars = "*_[]()~>#+-=|{}.!"

// EscapeMarkdown escapes Telegram MarkdownV2 markup symbols in text.
func EscapeMarkdown(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r < 128 && strings.ContainsRune(markdownEscapeChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
