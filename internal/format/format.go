// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package format identifies uploaded payloads and derives output filenames.
package format

import (
	"bytes"
	"io"
	"path"
	"strings"

	"github.com/richardlehane/mscfb"

	"github.com/pdiddy/docflip/pkg/types"
)

const fallbackBase = "document"

var (
	magicZIP = []byte("PK\x03\x04")
	magicPDF = []byte("%PDF-")
	magicCFB = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Detect sniffs the payload and returns its media type. ZIP archives are
// reported as DOCX; the extractor verifies the package layout. OLE compound
// files are reported as legacy Word documents only when they contain a
// WordDocument stream.
func Detect(data []byte) types.MediaType {
	switch {
	case bytes.HasPrefix(data, magicPDF):
		return types.MediaPDF
	case bytes.HasPrefix(data, magicZIP):
		return types.MediaDOCX
	case bytes.HasPrefix(data, magicCFB):
		if isLegacyWord(bytes.NewReader(data)) {
			return types.MediaLegacy
		}
	}
	// Some producers prepend junk before the PDF header; readers accept
	// the header anywhere in the first kilobyte.
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	if bytes.Contains(head, magicPDF) {
		return types.MediaPDF
	}
	return types.MediaUnknown
}

func isLegacyWord(ra io.ReaderAt) bool {
	doc, err := mscfb.New(ra)
	if err != nil {
		return false
	}
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if entry.Name == "WordDocument" {
			return true
		}
	}
	return false
}

// DeriveFilename swaps the extension of the client-supplied name for the
// target's canonical one. Directory components (either separator) are
// dropped, the final extension is removed regardless of case, and an empty
// base becomes "document".
func DeriveFilename(name string, target types.MediaType) string {
	name = strings.ReplaceAll(name, `\`, "/")
	base := path.Base(strings.TrimSpace(name))
	if base == "." || base == "/" {
		base = ""
	}
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" {
		base = fallbackBase
	}
	return base + target.Extension()
}
