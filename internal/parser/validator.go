package parser

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

type ContentType string

const (
	TypeText ContentType = "text/plain"
	TypePDF  ContentType = "application/pdf"
	TypeDocx ContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	TypeJSON ContentType = "application/json"
)

var extTypes = map[string]ContentType{
	".txt":  TypeText,
	".text": TypeText,
	".md":   TypeText,
	".pdf":  TypePDF,
	".docx": TypeDocx,
	".json": TypeJSON,
}

// Detection is the validator's verdict on one upload.
type Detection struct {
	Type    ContentType
	Sniffed ContentType
	// Mismatch flags a declared type that disagrees with the content sniff.
	// Non-fatal by default; strict callers turn it into ErrTypeMismatch.
	Mismatch bool
}

// Validate checks an upload against the supported-type allow-list and size
// limits, and cross-checks the declared type against the first bytes of
// content. Pure function, no I/O.
func Validate(filename, declaredType string, size int64, peek []byte, maxBytes int64) (Detection, error) {
	if size == 0 {
		return Detection{}, fmt.Errorf("%w: %s", ErrEmpty, filename)
	}
	if maxBytes > 0 && size > maxBytes {
		return Detection{}, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, size, maxBytes)
	}

	ct, ok := resolveType(filename, declaredType)
	if !ok {
		return Detection{}, fmt.Errorf("%w: %q (%s)", ErrUnsupportedType, declaredType, filename)
	}

	d := Detection{Type: ct, Sniffed: sniff(peek)}
	if d.Sniffed != "" && d.Sniffed != ct {
		// JSON is still plain text; only flag the reverse direction.
		if !(ct == TypeText && d.Sniffed == TypeJSON) {
			d.Mismatch = true
		}
	}
	return d, nil
}

func resolveType(filename, declaredType string) (ContentType, bool) {
	mime := declaredType
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch ContentType(mime) {
	case TypeText, TypePDF, TypeDocx, TypeJSON:
		return ContentType(mime), true
	}
	switch mime {
	case "text/json":
		return TypeJSON, true
	case "application/msword":
		return TypeDocx, true
	}
	if ct, ok := extTypes[strings.ToLower(filepath.Ext(filename))]; ok && (mime == "" || mime == "application/octet-stream") {
		return ct, true
	}
	return "", false
}

// sniff classifies content by magic numbers and structure. Returns "" when
// the bytes are not recognizably any supported format.
func sniff(peek []byte) ContentType {
	if len(peek) == 0 {
		return ""
	}
	if bytes.HasPrefix(peek, []byte("%PDF-")) {
		return TypePDF
	}
	if bytes.HasPrefix(peek, []byte("PK\x03\x04")) {
		return TypeDocx
	}
	t := bytes.TrimLeft(peek, " \t\r\n")
	if len(t) > 0 && (t[0] == '{' || t[0] == '[') {
		return TypeJSON
	}
	if looksTextual(peek) {
		return TypeText
	}
	return ""
}

// looksTextual rules out text only on embedded NULs; invalid UTF-8 could
// still be Latin-1, which the text adapter handles.
func looksTextual(peek []byte) bool {
	return !bytes.ContainsRune(peek, 0)
}
