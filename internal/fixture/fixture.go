// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fixture builds small but well-formed DOCX and PDF files for tests,
// so no binary test data has to be checked in.
package fixture

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"strings"
)

// PNG is the signature and header of a 1x1 PNG; enough for content sniffing.
var PNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing" ` +
	`xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
	`xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture"`

const relsNS = "http://schemas.openxmlformats.org/package/2006/relationships"

const (
	relImage     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	relHyperlink = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
	relStyles    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	relNumbering = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering"
)

type rel struct {
	id, typ, target, mode string
}

// DOCX accumulates body XML and package parts.
type DOCX struct {
	body  strings.Builder
	rels  []rel
	parts map[string][]byte
}

// NewDOCX returns an empty document with heading styles and a bullet/decimal
// numbering definition (numId 1 is bullets, numId 2 is decimal).
func NewDOCX() *DOCX {
	d := &DOCX{parts: map[string][]byte{}}
	d.parts["word/styles.xml"] = []byte(stylesXML)
	d.parts["word/numbering.xml"] = []byte(numberingXML)
	d.rels = append(d.rels,
		rel{id: "rIdStyles", typ: relStyles, target: "styles.xml"},
		rel{id: "rIdNumbering", typ: relNumbering, target: "numbering.xml"},
	)
	return d
}

// Paragraph appends a plain paragraph.
func (d *DOCX) Paragraph(text string) *DOCX {
	fmt.Fprintf(&d.body, `<w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, html.EscapeString(text))
	return d
}

// Heading appends a paragraph using the HeadingN style.
func (d *DOCX) Heading(level int, text string) *DOCX {
	fmt.Fprintf(&d.body, `<w:p><w:pPr><w:pStyle w:val="Heading%d"/></w:pPr><w:r><w:t>%s</w:t></w:r></w:p>`, level, html.EscapeString(text))
	return d
}

// ListItem appends a numbered paragraph.
func (d *DOCX) ListItem(numID int, text string) *DOCX {
	fmt.Fprintf(&d.body, `<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="%d"/></w:numPr></w:pPr><w:r><w:t>%s</w:t></w:r></w:p>`, numID, html.EscapeString(text))
	return d
}

// Link appends a paragraph holding a single external hyperlink.
func (d *DOCX) Link(relID, url, text string) *DOCX {
	d.rels = append(d.rels, rel{id: relID, typ: relHyperlink, target: url, mode: "External"})
	fmt.Fprintf(&d.body, `<w:p><w:hyperlink r:id="%s"><w:r><w:t>%s</w:t></w:r></w:hyperlink></w:p>`, relID, html.EscapeString(text))
	return d
}

// Raw appends body XML verbatim.
func (d *DOCX) Raw(xml string) *DOCX {
	d.body.WriteString(xml)
	return d
}

// Image embeds data as word/media/name and appends a paragraph drawing it.
func (d *DOCX) Image(relID, name string, data []byte) *DOCX {
	d.parts["word/media/"+name] = data
	d.rels = append(d.rels, rel{id: relID, typ: relImage, target: "media/" + name})
	d.body.WriteString(Drawing(relID, name))
	return d
}

// MissingImage appends a drawing whose relationship targets a part that is
// not in the package.
func (d *DOCX) MissingImage(relID string) *DOCX {
	d.rels = append(d.rels, rel{id: relID, typ: relImage, target: "media/missing.png"})
	d.body.WriteString(Drawing(relID, "missing"))
	return d
}

// Drawing returns a paragraph containing one inline picture.
func Drawing(relID, descr string) string {
	return `<w:p><w:r><w:drawing><wp:inline><wp:extent cx="952500" cy="952500"/>` +
		`<wp:docPr id="1" name="Picture 1" descr="` + html.EscapeString(descr) + `"/>` +
		`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">` +
		`<pic:pic><pic:blipFill><a:blip r:embed="` + relID + `"/></pic:blipFill></pic:pic>` +
		`</a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`
}

// Bytes serializes the package.
func (d *DOCX) Bytes() []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	write := func(name, content string) {
		f, err := zw.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			panic(err)
		}
	}

	write("[Content_Types].xml", contentTypesXML)
	write("_rels/.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+
		`<Relationships xmlns="`+relsNS+`">`+
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>`+
		`</Relationships>`)

	var rels strings.Builder
	rels.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?><Relationships xmlns="` + relsNS + `">`)
	for _, r := range d.rels {
		mode := ""
		if r.mode != "" {
			mode = ` TargetMode="` + r.mode + `"`
		}
		fmt.Fprintf(&rels, `<Relationship Id="%s" Type="%s" Target="%s"%s/>`, r.id, r.typ, html.EscapeString(r.target), mode)
	}
	rels.WriteString(`</Relationships>`)
	write("word/_rels/document.xml.rels", rels.String())

	write("word/document.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+
		`<w:document `+wordNS+`><w:body>`+d.body.String()+`<w:sectPr/></w:body></w:document>`)

	for name, data := range d.parts {
		f, err := zw.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := f.Write(data); err != nil {
			panic(err)
		}
	}

	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Default Extension="png" ContentType="image/png"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const stylesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
	`<w:style w:type="paragraph" w:styleId="Normal"><w:name w:val="Normal"/></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading2"><w:name w:val="heading 2"/></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading3"><w:name w:val="heading 3"/></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Title"><w:name w:val="Title"/></w:style>` +
	`</w:styles>`

const numberingXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<w:numbering xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
	`<w:abstractNum w:abstractNumId="0"><w:lvl w:ilvl="0"><w:numFmt w:val="bullet"/></w:lvl></w:abstractNum>` +
	`<w:abstractNum w:abstractNumId="1"><w:lvl w:ilvl="0"><w:numFmt w:val="decimal"/></w:lvl></w:abstractNum>` +
	`<w:num w:numId="1"><w:abstractNumId w:val="0"/></w:num>` +
	`<w:num w:numId="2"><w:abstractNumId w:val="1"/></w:num>` +
	`</w:numbering>`

// PDF returns a PDF with one page per entry, each showing its text in
// Helvetica. An empty entry produces a page with an empty content stream.
func PDF(pages ...string) []byte {
	var objs []string
	n := len(pages)
	fontObj := 3 + 2*n

	kids := make([]string, n)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 3+2*i)
	}
	objs = append(objs,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n),
	)
	for i, text := range pages {
		objs = append(objs, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
			fontObj, 4+2*i))
		content := ""
		if text != "" {
			content = fmt.Sprintf("BT /F1 24 Tf 72 720 Td (%s) Tj ET", escapePDFString(text))
		}
		objs = append(objs, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}
	objs = append(objs, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func escapePDFString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
