// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert sequences the two conversion pipelines, Word to PDF and
// PDF to Word, and maps every failure onto a single error shape.
//
// Each call handles exactly one document: ingest, extract, transform,
// render or serialize, emit. Nothing is retained between calls.
package convert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/docflip/internal/assemble"
	"github.com/pdiddy/docflip/internal/extract"
	"github.com/pdiddy/docflip/internal/format"
	"github.com/pdiddy/docflip/internal/render"
	"github.com/pdiddy/docflip/internal/segment"
	"github.com/pdiddy/docflip/internal/wordml"
	"github.com/pdiddy/docflip/pkg/types"
)

// Stage names used in log events.
const (
	StageIngest    = "ingest"
	StageExtract   = "extract"
	StageTransform = "transform"
	StageRender    = "render"
	StageSerialize = "serialize"
	StageEmit      = "emit"
)

// Outcome describes one finished conversion. It never carries document
// bytes.
type Outcome struct {
	ID          string
	Direction   types.Direction
	SourceName  string
	OutputName  string
	SourceBytes int
	OutputBytes int
	Duration    time.Duration
	Kind        Kind // empty on success
	Detail      string
	At          time.Time
}

// Succeeded reports whether the conversion produced a document.
func (o Outcome) Succeeded() bool { return o.Kind == "" }

// Recorder receives an Outcome after every conversion. Recording failures
// are logged and never fail the conversion.
type Recorder interface {
	Record(ctx context.Context, o Outcome) error
}

// Pipeline runs conversions. It is safe for concurrent use as long as its
// collaborators are; every call gets its own rendering session.
type Pipeline struct {
	docx          extract.RichExtractor
	pdf           extract.PageExtractor
	engine        render.Engine
	log           zerolog.Logger
	recorder      Recorder
	renderTimeout time.Duration
	now           func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecorder attaches a Recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithRenderTimeout bounds the render stage, including session startup.
func WithRenderTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.renderTimeout = d }
}

// New returns a pipeline. engine may be nil when only ToDOCX is used.
func New(docx extract.RichExtractor, pdf extract.PageExtractor, engine render.Engine, log zerolog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		docx:   docx,
		pdf:    pdf,
		engine: engine,
		log:    log,
		now:    time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

type requestIDKey struct{}

// WithRequestID attaches an id that conversions started with ctx use in
// logs and outcomes. Without one, a random id is generated.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id attached by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// ToPDF converts a Word document to PDF, overlaying wm on every page when
// it is present.
func (p *Pipeline) ToPDF(ctx context.Context, src types.SourceDocument, wm types.Watermark) (doc types.ConvertedDocument, err error) {
	r := p.begin(ctx, types.DirectionToPDF, src)
	defer func() { r.finish(doc, err) }()
	defer r.recover(&doc, &err)
	ctx = r.log.WithContext(ctx)

	if err := r.ingest(); err != nil {
		return types.ConvertedDocument{}, err
	}

	var content types.RichContent
	err = r.stage(StageExtract, func() (int, error) {
		var xerr error
		content, xerr = p.docx.Extract(ctx, src.Data)
		if xerr != nil {
			return 0, ExtractionFailed(xerr)
		}
		return len(content.Nodes), nil
	})
	if err != nil {
		return types.ConvertedDocument{}, err
	}
	if content.DroppedImages > 0 {
		r.log.Warn().Int("dropped_images", content.DroppedImages).Msg("images omitted from output")
	}

	var markup string
	err = r.stage(StageTransform, func() (int, error) {
		var aerr error
		markup, aerr = assemble.Document(content, wm)
		if aerr != nil {
			return 0, Unknown(aerr)
		}
		return len(markup), nil
	})
	if err != nil {
		return types.ConvertedDocument{}, err
	}

	var out []byte
	err = r.stage(StageRender, func() (int, error) {
		if p.engine == nil {
			return 0, RenderFailed(errors.New("no render engine configured"))
		}
		rctx := ctx
		if p.renderTimeout > 0 {
			var cancel context.CancelFunc
			rctx, cancel = context.WithTimeout(ctx, p.renderTimeout)
			defer cancel()
		}
		var rerr error
		out, rerr = render.Use(rctx, p.engine, markup, r.log)
		if rerr != nil {
			return 0, RenderFailed(rerr)
		}
		return len(out), nil
	})
	if err != nil {
		return types.ConvertedDocument{}, err
	}

	return r.emit(out, types.MediaPDF), nil
}

// ToDOCX converts a PDF to a Word document with one paragraph per block of
// text. Layout, fonts and images are not carried over.
func (p *Pipeline) ToDOCX(ctx context.Context, src types.SourceDocument) (doc types.ConvertedDocument, err error) {
	r := p.begin(ctx, types.DirectionToDOCX, src)
	defer func() { r.finish(doc, err) }()
	defer r.recover(&doc, &err)
	ctx = r.log.WithContext(ctx)

	if err := r.ingest(); err != nil {
		return types.ConvertedDocument{}, err
	}

	var pages types.PlainPages
	err = r.stage(StageExtract, func() (int, error) {
		var xerr error
		pages, xerr = p.pdf.Extract(ctx, src.Data)
		if xerr != nil {
			return 0, ExtractionFailed(xerr)
		}
		return len(pages), nil
	})
	if err != nil {
		return types.ConvertedDocument{}, err
	}

	var paras types.ParagraphSet
	_ = r.stage(StageTransform, func() (int, error) {
		paras = segment.Paragraphs(pages)
		return len(paras), nil
	})

	var out []byte
	err = r.stage(StageSerialize, func() (int, error) {
		var werr error
		out, werr = wordml.Bytes(paras)
		if werr != nil {
			return 0, SerializationFailed(werr)
		}
		return len(out), nil
	})
	if err != nil {
		return types.ConvertedDocument{}, err
	}

	return r.emit(out, types.MediaDOCX), nil
}

// recover turns a panic in any stage into an Unknown error. Rendering
// sessions have already been released by render.Use.
func (r *run) recover(doc *types.ConvertedDocument, err *error) {
	if v := recover(); v != nil {
		*doc = types.ConvertedDocument{}
		*err = Unknown(fmt.Errorf("panic: %v", v))
		r.log.Error().Str("kind", string(KindUnknown)).Err(*err).Msg("conversion panicked")
	}
}

// run carries per-call state through the stages.
type run struct {
	p     *Pipeline
	ctx   context.Context
	id    string
	dir   types.Direction
	src   types.SourceDocument
	log   zerolog.Logger
	start time.Time
}

func (p *Pipeline) begin(ctx context.Context, dir types.Direction, src types.SourceDocument) *run {
	id := RequestID(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	return &run{
		p:     p,
		ctx:   ctx,
		id:    id,
		dir:   dir,
		src:   src,
		start: p.now(),
		log: p.log.With().
			Str("request_id", id).
			Str("direction", string(dir)).
			Logger(),
	}
}

func (r *run) ingest() error {
	return r.stage(StageIngest, func() (int, error) {
		if r.src.Empty() {
			return 0, MissingInput()
		}
		if err := r.ctx.Err(); err != nil {
			return 0, Unknown(err)
		}
		return len(r.src.Data), nil
	})
}

// stage runs fn and logs one event for it. fn returns the size of what it
// produced.
func (r *run) stage(name string, fn func() (int, error)) error {
	t0 := r.p.now()
	size, err := fn()
	elapsed := r.p.now().Sub(t0)
	if err != nil {
		r.log.Error().
			Str("stage", name).
			Str("kind", string(KindOf(err))).
			Dur("elapsed", elapsed).
			Err(err).
			Msg("stage failed")
		return err
	}
	r.log.Debug().
		Str("stage", name).
		Int("size", size).
		Dur("elapsed", elapsed).
		Msg("stage done")
	return nil
}

func (r *run) emit(data []byte, mt types.MediaType) types.ConvertedDocument {
	doc := types.ConvertedDocument{
		Data:      data,
		MediaType: mt,
		Filename:  format.DeriveFilename(r.src.Filename, mt),
	}
	r.log.Info().
		Str("stage", StageEmit).
		Str("source", r.src.Filename).
		Str("output", doc.Filename).
		Int("source_bytes", len(r.src.Data)).
		Int("output_bytes", len(data)).
		Dur("elapsed", r.p.now().Sub(r.start)).
		Msg("conversion complete")
	return doc
}

func (r *run) finish(doc types.ConvertedDocument, err error) {
	if r.p.recorder == nil {
		return
	}
	o := Outcome{
		ID:          r.id,
		Direction:   r.dir,
		SourceName:  r.src.Filename,
		OutputName:  doc.Filename,
		SourceBytes: len(r.src.Data),
		OutputBytes: len(doc.Data),
		Duration:    r.p.now().Sub(r.start),
		At:          r.start.UTC(),
	}
	if err != nil {
		o.Kind = KindOf(err)
		o.Detail = err.Error()
		var ce *Error
		if errors.As(err, &ce) {
			o.Detail = ce.Detail
		}
	}
	// The caller may have gone away; the record should still land.
	if rerr := r.p.recorder.Record(context.WithoutCancel(r.ctx), o); rerr != nil {
		r.log.Warn().Err(rerr).Msg("recording outcome failed")
	}
}
