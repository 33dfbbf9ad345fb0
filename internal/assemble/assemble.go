// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assemble wraps extracted Word content in the print template that
// the renderer turns into PDF.
package assemble

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/pdiddy/docflip/pkg/types"
)

// WatermarkClass is the class of the overlay element.
const WatermarkClass = "watermark"

// documentTemplate fixes A4 pages with 20mm margins, a CJK-capable font
// stack, 12pt text, and 1.6 line height. The watermark layer is position:
// fixed, which print engines repeat on every page.
const documentTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
@import url('https://fonts.googleapis.com/css2?family=Noto+Sans+SC:wght@400;700&family=Noto+Serif+SC:wght@400;700&display=swap');

@page {
  size: A4;
  margin: 20mm;
}

body {
  font-family: 'Noto Sans SC', 'Microsoft YaHei', 'PingFang SC', 'Noto Serif SC', 'SimSun', sans-serif, serif;
  font-size: 12pt;
  line-height: 1.6;
  margin: 0;
  position: relative;
}

p {
  margin-bottom: 12px;
}

h1, h2, h3, h4, h5, h6 {
  margin-top: 24px;
  margin-bottom: 12px;
}

img {
  max-width: 100%;
  height: auto;
}

table {
  border-collapse: collapse;
  width: 100%;
}

td {
  border: 1px solid #999;
  padding: 4px 6px;
  vertical-align: top;
}
{{if .Watermark}}
.watermark {
  position: fixed;
  top: 0;
  left: 0;
  width: 100%;
  height: 100%;
  pointer-events: none;
  z-index: 9999;
  display: flex;
  align-items: center;
  justify-content: center;
}

.watermark span {
  font-size: 60px;
  font-weight: bold;
  color: rgba(0, 0, 0, 0.08);
  transform: rotate(-45deg);
  white-space: nowrap;
}

@media print {
  .watermark { display: flex !important; }
}
{{end}}
</style>
</head>
<body>
{{if .Watermark}}<div class="watermark"><span>{{.Watermark}}</span></div>
{{end}}{{.Content}}
</body>
</html>
`

var page = template.Must(template.New("document").Parse(documentTemplate))

type pageData struct {
	Watermark string
	Content   template.HTML
}

// Document returns a self-contained HTML document holding content after the
// optional watermark overlay. The watermark text is escaped; the content is
// trusted markup produced by the extractor and is embedded verbatim.
func Document(content types.RichContent, wm types.Watermark) (string, error) {
	data := pageData{Content: template.HTML(content.HTML())}
	if wm.Present() {
		data.Watermark = string(types.NewWatermark(string(wm)))
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing document template: %w", err)
	}
	return buf.String(), nil
}
