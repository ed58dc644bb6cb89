package parser

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// buildPDF assembles a minimal but well-formed PDF fixture. Each entry is one
// page: a string draws that text, an empty string gives the page an empty
// content stream, nil omits the content stream entirely.
func buildPDF(t *testing.T, pages []*string) []byte {
	t.Helper()
	var body bytes.Buffer
	body.WriteString("%PDF-1.4\n")
	offsets := map[int]int{}
	writeObj := func(num int, content string) {
		offsets[num] = body.Len()
		fmt.Fprintf(&body, "%d 0 obj\n%s\nendobj\n", num, content)
	}

	type pageObjs struct {
		page, content int
		hasContent    bool
		stream        string
	}
	next := 4
	var specs []pageObjs
	var kids []string
	for _, p := range pages {
		po := pageObjs{page: next}
		next++
		if p != nil {
			po.hasContent = true
			po.content = next
			next++
			if *p != "" {
				po.stream = fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", *p)
			}
		}
		kids = append(kids, fmt.Sprintf("%d 0 R", po.page))
		specs = append(specs, po)
	}

	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	writeObj(3, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	for _, po := range specs {
		dict := "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> >>"
		if po.hasContent {
			dict = strings.TrimSuffix(dict, " >>") + fmt.Sprintf(" /Contents %d 0 R >>", po.content)
		}
		writeObj(po.page, dict)
		if po.hasContent {
			writeObj(po.content, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(po.stream), po.stream))
		}
	}

	xrefPos := body.Len()
	fmt.Fprintf(&body, "xref\n0 %d\n", next)
	body.WriteString("0000000000 65535 f \n")
	for i := 1; i < next; i++ {
		fmt.Fprintf(&body, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&body, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", next, xrefPos)
	return body.Bytes()
}

func strPtr(s string) *string { return &s }

func TestPDFAdapterExtractsPages(t *testing.T) {
	raw := buildPDF(t, []*string{strPtr("FirstPageWords"), strPtr("SecondPageWords")})

	var a PDFAdapter
	ext, err := a.Extract(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ext.Pages != 2 {
		t.Fatalf("expected 2 pages, got %d", ext.Pages)
	}
	if ext.Encoding != "utf-8" {
		t.Fatalf("expected utf-8, got %s", ext.Encoding)
	}
	first := strings.Index(ext.Text, "FirstPageWords")
	second := strings.Index(ext.Text, "SecondPageWords")
	if first < 0 || second < 0 {
		t.Fatalf("page text missing: %q", ext.Text)
	}
	if first > second {
		t.Fatalf("pages out of order: %q", ext.Text)
	}
	if !strings.Contains(ext.Text, PageBreak) {
		t.Fatalf("page break marker missing: %q", ext.Text)
	}
}

func TestPDFAdapterAllPagesEmpty(t *testing.T) {
	// One page with an empty content stream, one with no content stream at
	// all (the shape of a scanned or broken page).
	raw := buildPDF(t, []*string{strPtr(""), nil})

	var a PDFAdapter
	_, err := a.Extract(raw)
	if !errors.Is(err, ErrNoExtractableText) {
		t.Fatalf("expected ErrNoExtractableText, got %v", err)
	}
}

func TestPDFAdapterNotAPDF(t *testing.T) {
	var a PDFAdapter
	if _, err := a.Extract([]byte("definitely not a pdf")); err == nil {
		t.Fatal("expected error for non-pdf input")
	}
}
