// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docflip/internal/convert"
	"github.com/pdiddy/docflip/internal/extract"
	"github.com/pdiddy/docflip/internal/journal"
	"github.com/pdiddy/docflip/internal/render"
	"github.com/pdiddy/docflip/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a single document",
	Long: `Convert runs one conversion and writes the result next to the input,
or to --out. The output name is the input name with its extension swapped.`,
}

var convertPDFCmd = &cobra.Command{
	Use:   "pdf FILE.docx",
	Short: "Render a Word document as an A4 PDF",
	Long: `Render a .docx file as a paginated A4 PDF with 20mm margins. With
--watermark, the text is drawn diagonally at low opacity on every page.

Rendering uses a headless Chrome launched for this conversion, or a
container image when render.backend is "container".`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert(types.DirectionToPDF),
}

var convertDOCXCmd = &cobra.Command{
	Use:   "docx FILE.pdf",
	Short: "Extract the text of a PDF into a Word document",
	Long: `Extract the text layer of a PDF and write it as a .docx file with one
paragraph per block of text. Layout, fonts, and images are not kept, and
scanned pages without a text layer produce no paragraphs.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert(types.DirectionToDOCX),
}

func init() {
	convertCmd.PersistentFlags().StringP("out", "o", "", "output file or directory (default: next to the input)")
	convertPDFCmd.Flags().String("watermark", "", "text drawn diagonally on every page")
	convertPDFCmd.Flags().String("backend", "", "render backend: chrome or container")
	convertDOCXCmd.Flags().String("pdf-backend", "", "PDF text backend: ledongthuc or fitz")

	_ = viper.BindPFlag("render.backend", convertPDFCmd.Flags().Lookup("backend"))
	_ = viper.BindPFlag("extract.pdf_backend", convertDOCXCmd.Flags().Lookup("pdf-backend"))

	convertCmd.AddCommand(convertPDFCmd)
	convertCmd.AddCommand(convertDOCXCmd)
	rootCmd.AddCommand(convertCmd)
}

func runConvert(dir types.Direction) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		in := args[0]
		data, err := os.ReadFile(in)
		if err != nil {
			return fmt.Errorf("reading %s: %w", in, err)
		}
		src := types.SourceDocument{Data: data, Filename: filepath.Base(in)}

		p, closeFn, err := newPipeline(appConfig, dir == types.DirectionToPDF)
		if err != nil {
			return err
		}
		defer closeFn()

		var doc types.ConvertedDocument
		if dir == types.DirectionToPDF {
			wm, _ := cmd.Flags().GetString("watermark")
			doc, err = p.ToPDF(ctx, src, types.NewWatermark(wm))
		} else {
			doc, err = p.ToDOCX(ctx, src)
		}
		if err != nil {
			var ce *convert.Error
			if errors.As(err, &ce) && ce.Detail != "" {
				return fmt.Errorf("%s: %s", ce.Summary, ce.Detail)
			}
			return err
		}

		out, _ := cmd.Flags().GetString("out")
		path, err := outputPath(out, filepath.Dir(in), doc.Filename)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "converted: %s -> %s\n", in, path)
		return nil
	}
}

// outputPath resolves --out: empty means next to the input, an existing
// directory receives the derived name, anything else is used as given.
func outputPath(out, inputDir, derived string) (string, error) {
	if out == "" {
		return filepath.Join(inputDir, derived), nil
	}
	info, err := os.Stat(out)
	switch {
	case err == nil && info.IsDir():
		return filepath.Join(out, derived), nil
	case err == nil || errors.Is(err, os.ErrNotExist):
		return out, nil
	}
	return "", fmt.Errorf("checking output path %s: %w", out, err)
}

// newPipeline wires the configured extractors, renderer, and journal. The
// renderer is only built when withRender is set, so PDF-to-Word conversions
// work on hosts without Chrome or a container runtime.
func newPipeline(cfg types.AppConfig, withRender bool) (*convert.Pipeline, func(), error) {
	pages, err := extract.NewPageExtractor(cfg.Extract.PDFBackend)
	if err != nil {
		return nil, nil, err
	}

	var engine render.Engine
	if withRender {
		if engine, err = render.NewEngine(cfg.Render, logger); err != nil {
			return nil, nil, fmt.Errorf("render backend %s: %w", cfg.Render.Backend, err)
		}
	}

	opts := []convert.Option{convert.WithRenderTimeout(cfg.Render.Timeout)}
	closeFn := func() {}
	if cfg.Journal.Enabled {
		store, err := journal.NewStore(cfg.Journal)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, convert.WithRecorder(store))
		closeFn = func() { store.Close() }
	}

	return convert.New(extract.NewDOCXExtractor(logger), pages, engine, logger, opts...), closeFn, nil
}
