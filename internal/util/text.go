package util

import (
	"strings"
	"unicode"
)

// SanitizeText removes bytes and control characters that Postgres text columns
// reject (especially NUL / 0x00 from some PDF extractors).
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	// NUL bytes are not valid in PostgreSQL text.
	s = strings.ReplaceAll(s, "\x00", "")

	// Drop other non-printing controls except common whitespace. Form feeds
	// survive because the PDF adapter uses them as page-break markers.
	r := make([]rune, 0, len(s))
	for _, ch := range s {
		if ch == '\n' || ch == '\r' || ch == '\t' || ch == '\f' {
			r = append(r, ch)
			continue
		}
		if ch < 0x20 {
			continue
		}
		r = append(r, ch)
	}
	return strings.TrimSpace(string(r))
}

// NormalizeSpace collapses all runs of whitespace to single spaces and trims
// the ends. Two texts that differ only in spacing normalize identically.
func NormalizeSpace(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		} else {
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimRight(sb.String(), " ")
}
