// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docflip/internal/assemble"
	"github.com/pdiddy/docflip/pkg/types"
)

func TestPrintOptions(t *testing.T) {
	opts := printOptions()
	margin := 20 / 25.4

	tests := []struct {
		name string
		got  *float64
		want float64
	}{
		{name: "paper width", got: opts.PaperWidth, want: 8.27},
		{name: "paper height", got: opts.PaperHeight, want: 11.69},
		{name: "margin top", got: opts.MarginTop, want: margin},
		{name: "margin bottom", got: opts.MarginBottom, want: margin},
		{name: "margin left", got: opts.MarginLeft, want: margin},
		{name: "margin right", got: opts.MarginRight, want: margin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.got)
			assert.InDelta(t, tt.want, *tt.got, 0.01)
		})
	}

	assert.True(t, opts.PrintBackground)
	assert.False(t, opts.Landscape)
}

func TestPrintOptions_FreshValues(t *testing.T) {
	a := printOptions()
	*a.MarginTop = 0
	assert.InDelta(t, 20/25.4, *printOptions().MarginTop, 0.0001)
}

func TestChromeEngine_RendersAssembledDocument(t *testing.T) {
	if testing.Short() {
		t.Skip("launches a browser")
	}
	bin, ok := launcher.LookPath()
	if !ok {
		t.Skip("no Chrome or Chromium installed")
	}

	markup, err := assemble.Document(types.RichContent{Nodes: []types.ContentNode{
		{Kind: types.NodeParagraph, HTML: "<p>Hello from docflip</p>"},
	}}, types.NewWatermark("DRAFT"))
	require.NoError(t, err)

	cfg := types.RenderConfig{
		Backend:    types.RenderChrome,
		BrowserBin: bin,
		// The sandbox cannot start as root.
		NoSandbox: os.Geteuid() == 0,
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pdf, err := Use(ctx, NewChromeEngine(cfg, zerolog.Nop()), markup, zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")), "output starts %q", pdf[:min(len(pdf), 8)])
	assert.Greater(t, len(pdf), 1000)
}
