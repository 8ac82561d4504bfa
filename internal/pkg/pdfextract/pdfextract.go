package pdfextract

import (
	"bytes"
	"io"

	"github.com/ledongthuc/pdf"
)

// Page holds the plain text of one PDF page. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// ExtractPages reads the entire content of r and extracts plain text per
// page. Pages without extractable text are returned with empty Text so page
// numbering stays aligned with the document.
func ExtractPages(r io.Reader) ([]Page, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, nil
	}

	pdfReader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, err
	}

	pages := make([]Page, 0, pdfReader.NumPage())
	for i := 1; i <= pdfReader.NumPage(); i++ {
		p := pdfReader.Page(i)
		if p.V.IsNull() {
			pages = append(pages, Page{Number: i})
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			// A single broken page should not sink the document.
			pages = append(pages, Page{Number: i})
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	return pages, nil
}
