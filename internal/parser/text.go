package parser

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"quizsmith/internal/util"
)

// TextAdapter decodes plain text. UTF-8 first, Latin-1 as fallback; decoding
// never fails, so the only failure mode is upstream validation.
type TextAdapter struct{}

func (TextAdapter) Extract(raw []byte) (Extraction, error) {
	if utf8.Valid(raw) {
		return Extraction{
			Text:     util.SanitizeText(string(raw)),
			Encoding: "utf-8",
		}, nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		// Latin-1 maps every byte; decode errors cannot actually occur.
		decoded = raw
	}
	return Extraction{
		Text:     util.SanitizeText(string(decoded)),
		Encoding: "latin-1",
	}, nil
}
