package parser

import "fmt"

// Extraction is the output of one format adapter: best-effort plain text plus
// whatever the adapter learned along the way.
type Extraction struct {
	Text     string
	Encoding string
	Pages    int
}

// Adapter converts raw file bytes to plain text. Implementations are pure
// over their input and perform no I/O.
type Adapter interface {
	Extract(raw []byte) (Extraction, error)
}

var adapters = map[ContentType]Adapter{
	TypeText: TextAdapter{},
	TypePDF:  PDFAdapter{},
	TypeDocx: DocxAdapter{},
	TypeJSON: JSONAdapter{},
}

// AdapterFor selects the adapter for a validated content type.
func AdapterFor(ct ContentType) (Adapter, error) {
	a, ok := adapters[ct]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter for %q", ErrUnsupportedType, ct)
	}
	return a, nil
}
