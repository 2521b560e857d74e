package services

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var stripMarkup = bluemonday.StrictPolicy()

// plainText reduces member supplied text to trimmed plain text: markup is removed
// and entities are decoded back to characters.
func plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(stripMarkup.Sanitize(s)))
}
