// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/docflip/pkg/types"
)

// ErrNoPages is returned for PDFs whose page tree is empty.
var ErrNoPages = errors.New("pdf has no pages")

// PageExtractor reads the text layer of a PDF, one string per page. Pages
// without text yield empty strings; scanned pages are not OCRed.
type PageExtractor interface {
	Extract(ctx context.Context, data []byte) (types.PlainPages, error)
}

// NewPageExtractor returns the extractor for the configured backend.
func NewPageExtractor(backend types.PDFBackend) (PageExtractor, error) {
	switch backend {
	case types.PDFLedongthuc, "":
		return LedongthucExtractor{}, nil
	case types.PDFFitz:
		return FitzExtractor{}, nil
	}
	return nil, fmt.Errorf("unknown pdf backend %q", backend)
}

// LedongthucExtractor is the pure-Go backend.
type LedongthucExtractor struct{}

// Extract implements PageExtractor.
func (LedongthucExtractor) Extract(ctx context.Context, data []byte) (pages types.PlainPages, err error) {
	// The parser panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("parsing pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}

	n := r.NumPage()
	if n == 0 {
		return nil, ErrNoPages
	}

	fonts := make(map[string]*pdf.Font)
	pages = make(types.PlainPages, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := p.Font(name)
				fonts[name] = &f
			}
		}

		text, err := p.GetPlainText(fonts)
		if err != nil {
			return nil, fmt.Errorf("reading page %d: %w", i, err)
		}
		pages = append(pages, norm.NFC.String(text))
	}
	return pages, nil
}

// FitzExtractor uses MuPDF, which copes better with unusual font encodings.
type FitzExtractor struct{}

// Extract implements PageExtractor.
func (FitzExtractor) Extract(ctx context.Context, data []byte) (types.PlainPages, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if n == 0 {
		return nil, ErrNoPages
	}

	pages := make(types.PlainPages, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := doc.Text(i)
		if err != nil {
			return nil, fmt.Errorf("reading page %d: %w", i+1, err)
		}
		pages = append(pages, norm.NFC.String(text))
	}
	return pages, nil
}
