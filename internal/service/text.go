package service

import "strings"

// normalizeText trims surrounding whitespace. Text is otherwise stored as
// written; clients escape it when rendering.
func normalizeText(s string) string {
	return strings.TrimSpace(s)
}
