// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package wordml serializes a ParagraphSet as a minimal WordprocessingML
// package: one body paragraph per entry, default style, no images.
package wordml

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pdiddy/docflip/pkg/types"
)

const (
	contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
</Types>`

	packageRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

	documentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`

	// 12pt body text with 10pt spacing after each paragraph.
	styles = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:docDefaults>
<w:rPrDefault><w:rPr><w:rFonts w:ascii="Calibri" w:hAnsi="Calibri" w:eastAsia="Noto Sans SC" w:cs="Calibri"/><w:sz w:val="24"/><w:szCs w:val="24"/></w:rPr></w:rPrDefault>
<w:pPrDefault><w:pPr><w:spacing w:after="200" w:line="276" w:lineRule="auto"/></w:pPr></w:pPrDefault>
</w:docDefaults>
<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:qFormat/></w:style>
</w:styles>`

	documentHead = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`

	// A4 with 20mm margins, in twentieths of a point.
	documentTail = `<w:sectPr><w:pgSz w:w="11906" w:h="16838"/><w:pgMar w:top="1134" w:right="1134" w:bottom="1134" w:left="1134" w:header="708" w:footer="708" w:gutter="0"/></w:sectPr></w:body></w:document>`
)

// Write streams a .docx package holding paras to w. An empty set yields a
// valid document with an empty body.
func Write(w io.Writer, paras types.ParagraphSet) error {
	zw := zip.NewWriter(w)

	parts := []struct {
		name string
		body func(io.Writer) error
	}{
		{"[Content_Types].xml", literal(contentTypes)},
		{"_rels/.rels", literal(packageRels)},
		{"word/_rels/document.xml.rels", literal(documentRels)},
		{"word/styles.xml", literal(styles)},
		{"word/document.xml", func(pw io.Writer) error { return writeDocument(pw, paras) }},
	}
	for _, p := range parts {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     p.name,
			Method:   zip.Deflate,
			Modified: time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			return fmt.Errorf("creating %s: %w", p.name, err)
		}
		if err := p.body(fw); err != nil {
			return fmt.Errorf("writing %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing package: %w", err)
	}
	return nil
}

// Bytes is Write into memory.
func Bytes(paras types.ParagraphSet) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, paras); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func literal(s string) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	}
}

func writeDocument(w io.Writer, paras types.ParagraphSet) error {
	var b strings.Builder
	b.WriteString(documentHead)
	for _, p := range paras {
		writeParagraph(&b, p)
	}
	b.WriteString(documentTail)
	_, err := io.WriteString(w, b.String())
	return err
}

// writeParagraph emits one w:p. Line breaks inside a paragraph become w:br
// and tabs become w:tab so the visual layout of the page text survives.
func writeParagraph(b *strings.Builder, text string) {
	b.WriteString("<w:p><w:r>")
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteString("<w:br/>")
		}
		for j, chunk := range strings.Split(line, "\t") {
			if j > 0 {
				b.WriteString("<w:tab/>")
			}
			if chunk == "" {
				continue
			}
			b.WriteString(`<w:t xml:space="preserve">`)
			// EscapeText replaces characters XML cannot carry with U+FFFD.
			_ = xml.EscapeText(b, []byte(chunk))
			b.WriteString("</w:t>")
		}
	}
	b.WriteString("</w:r></w:p>")
}
