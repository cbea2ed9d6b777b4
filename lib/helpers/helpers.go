package helpers

import (
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func EscapeMarkdownV2(text string) string {
	charactersToEscape := []string{".", "-", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "=", "|", "{", "}", "!"}

	for _, char := range charactersToEscape {
		text = strings.ReplaceAll(text, char, "\\"+char)
	}
	return text
}

// FormatXRP renders an XRP amount with precision fitted to its magnitude.
// Launch prices sit far below one drop's worth of display units, so small
// values keep 12 decimals.
func FormatXRP(amount float64, escapeMarkdown bool) string {
	decimals := 2
	if amount < 0.01 {
		decimals = 12
	} else if amount < 1000 {
		decimals = 4
	}

	p := message.NewPrinter(language.English)
	formatted := p.Sprintf("%.*f", decimals, amount)

	if escapeMarkdown {
		return EscapeMarkdownV2(formatted)
	}
	return formatted
}

// FormatCount renders holder counts and similar integers with thousand
// separators, markdown-escaped.
func FormatCount(n int64) string {
	return EscapeMarkdownV2(humanize.Comma(n))
}
