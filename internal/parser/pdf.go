package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"quizsmith/internal/util"
)

// PageBreak separates pages in PDF-extracted text.
const PageBreak = "\f"

// PDFAdapter extracts text page by page. A page that yields nothing (scanned
// image, broken stream) contributes an empty string instead of failing the
// document; only a document with no text on any page fails.
type PDFAdapter struct{}

func (PDFAdapter) Extract(raw []byte) (Extraction, error) {
	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return Extraction{}, fmt.Errorf("open pdf: %w", err)
	}

	total := r.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		pages = append(pages, extractPage(r, i))
	}

	text := util.SanitizeText(strings.Join(pages, PageBreak))
	if strings.TrimSpace(strings.ReplaceAll(text, PageBreak, "")) == "" {
		return Extraction{}, fmt.Errorf("%w: %d pages", ErrNoExtractableText, total)
	}
	return Extraction{Text: text, Encoding: "utf-8", Pages: total}, nil
}

func extractPage(r *pdf.Reader, n int) (text string) {
	// Some malformed PDFs panic inside the decoder; treat that page as empty.
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	p := r.Page(n)
	if p.V.IsNull() {
		return ""
	}
	s, err := p.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
