package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"quizsmith/internal/util"
)

// DocxAdapter reads word/document.xml out of the .docx ZIP archive and walks
// its XML. Paragraphs come out in document order with blank paragraphs
// preserved as boundaries; tables are flattened to tab-separated rows
// appended after the narrative text.
type DocxAdapter struct{}

func (DocxAdapter) Extract(raw []byte) (Extraction, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return Extraction{}, fmt.Errorf("open docx archive: %w", err)
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return Extraction{}, fmt.Errorf("%w: word/document.xml not in archive", ErrNoExtractableText)
	}

	rc, err := docFile.Open()
	if err != nil {
		return Extraction{}, fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	var (
		paragraphs []string
		tableRows  []string
		cellParts  []string
		rowCells   []string
		current    strings.Builder
		inPara     bool
		tableDepth int
	)

	decoder := xml.NewDecoder(rc)
	for {
		tok, err := decoder.Token()
		if err != nil {
			// EOF, or a malformed tail; keep whatever was read.
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
			case "p":
				inPara = true
				current.Reset()
			case "tab":
				if inPara {
					current.WriteByte('\t')
				}
			case "br":
				if inPara {
					current.WriteByte('\n')
				}
			}
		case xml.CharData:
			if inPara {
				current.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if !inPara {
					continue
				}
				inPara = false
				text := strings.TrimSpace(current.String())
				if tableDepth > 0 {
					cellParts = append(cellParts, text)
				} else {
					paragraphs = append(paragraphs, text)
				}
			case "tc":
				if tableDepth > 0 {
					rowCells = append(rowCells, strings.TrimSpace(strings.Join(cellParts, " ")))
					cellParts = nil
				}
			case "tr":
				if tableDepth > 0 && len(rowCells) > 0 {
					tableRows = append(tableRows, strings.Join(rowCells, "\t"))
					rowCells = nil
				}
			case "tbl":
				tableDepth--
			}
		}
	}

	text := strings.Join(paragraphs, "\n")
	if len(tableRows) > 0 {
		text = strings.TrimRight(text, "\n") + "\n\n" + strings.Join(tableRows, "\n")
	}
	text = util.SanitizeText(text)
	if text == "" {
		return Extraction{}, fmt.Errorf("%w: document has no paragraph text", ErrNoExtractableText)
	}
	return Extraction{Text: text, Encoding: "utf-8"}, nil
}
