// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package segment splits extracted PDF text into paragraphs.
package segment

import (
	"regexp"
	"strings"

	"github.com/pdiddy/docflip/pkg/types"
)

// PageSeparator joins consecutive pages, so every page break is also a
// paragraph boundary.
const PageSeparator = "\n\n"

var boundary = regexp.MustCompile(`\n{2,}`)

// Paragraphs joins the pages with PageSeparator, splits the result on every
// run of two or more newlines, trims each piece, and drops empty ones. The
// result never contains an empty string and keeps the source order.
func Paragraphs(pages types.PlainPages) types.ParagraphSet {
	joined := strings.Join(pages, PageSeparator)
	if joined == "" {
		return types.ParagraphSet{}
	}

	parts := boundary.Split(normalizeNewlines(joined), -1)
	out := make(types.ParagraphSet, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Join renders a paragraph set back into text with blank lines between
// paragraphs. Paragraphs(PlainPages{Join(ps)}) reproduces ps.
func Join(ps types.ParagraphSet) string {
	return strings.Join(ps, PageSeparator)
}

// normalizeNewlines folds CRLF and lone CR into LF so Windows-style line
// endings still produce paragraph boundaries.
func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
