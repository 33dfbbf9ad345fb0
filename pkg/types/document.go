// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the documents, intermediate content, and configuration
// shared by the docflip conversion pipelines.
package types

import "strings"

// MediaType is a MIME type understood by the pipeline.
type MediaType string

const (
	MediaPDF     MediaType = "application/pdf"
	MediaDOCX    MediaType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaLegacy  MediaType = "application/msword"
	MediaUnknown MediaType = "application/octet-stream"
)

// Extension returns the canonical file extension (with the leading dot) for
// the media type, or an empty string when there is none.
func (m MediaType) Extension() string {
	switch m {
	case MediaPDF:
		return ".pdf"
	case MediaDOCX:
		return ".docx"
	case MediaLegacy:
		return ".doc"
	}
	return ""
}

// Direction names one of the two conversion pipelines.
type Direction string

const (
	DirectionToPDF  Direction = "docx-to-pdf"
	DirectionToDOCX Direction = "pdf-to-docx"
)

// Target returns the media type a pipeline produces.
func (d Direction) Target() MediaType {
	if d == DirectionToPDF {
		return MediaPDF
	}
	return MediaDOCX
}

// SourceDocument is an uploaded file as received by a single request.
// It is never shared between requests.
type SourceDocument struct {
	// Data holds the complete payload.
	Data []byte

	// MediaType is the declared type, which may be empty.
	MediaType MediaType

	// Filename is the original client-side filename.
	Filename string
}

// Empty reports whether the document carries no payload.
func (s SourceDocument) Empty() bool {
	return len(s.Data) == 0
}

// ConvertedDocument is the output of a successful conversion. The filename
// extension always agrees with MediaType.
type ConvertedDocument struct {
	Data      []byte
	MediaType MediaType
	Filename  string
}

// NodeKind classifies a ContentNode.
type NodeKind string

const (
	NodeHeading   NodeKind = "heading"
	NodeParagraph NodeKind = "paragraph"
	NodeList      NodeKind = "list"
	NodeTable     NodeKind = "table"
	NodeImage     NodeKind = "image"
)

// ContentNode is one block extracted from a Word document, already rendered
// to HTML. Images are inline data URIs; nothing refers to external files.
type ContentNode struct {
	Kind NodeKind

	// Level is the heading level (1-6) for NodeHeading, zero otherwise.
	Level int

	// HTML is the serialized markup for the node.
	HTML string
}

// RichContent is the ordered content of a Word document in reading order.
type RichContent struct {
	Nodes []ContentNode

	// DroppedImages counts images that could not be resolved and were omitted.
	DroppedImages int
}

// HTML concatenates the markup of every node in order.
func (r RichContent) HTML() string {
	var b strings.Builder
	for _, n := range r.Nodes {
		b.WriteString(n.HTML)
		b.WriteByte('\n')
	}
	return b.String()
}

// PlainPages holds the text of each PDF page; index i is page i+1.
// Pages without extractable text are empty strings.
type PlainPages []string

// ParagraphSet is an ordered list of trimmed, non-empty paragraphs.
type ParagraphSet []string

// Watermark is optional text overlaid on every rendered page.
type Watermark string

// NewWatermark trims s; an empty result means no watermark.
func NewWatermark(s string) Watermark {
	return Watermark(strings.TrimSpace(s))
}

// Present reports whether a watermark should be drawn.
func (w Watermark) Present() bool {
	return strings.TrimSpace(string(w)) != ""
}
