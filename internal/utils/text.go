package utils

import (
	"regexp"
	"strings"
)

var (
	emailRegex   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

	htmlEntityReplacer = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)
)

// IsValidEmail reports whether email has the local@domain.tld shape.
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// StripHTML removes tags and decodes the handful of entities the catalog
// uses in free-text fields.
func StripHTML(html string) string {
	return strings.TrimSpace(htmlEntityReplacer.Replace(htmlTagRegex.ReplaceAllString(html, "")))
}

// TruncateText cuts text to maxLength runes and appends an ellipsis.
func TruncateText(text string, maxLength int) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	return string(runes[:maxLength]) + "..."
}
