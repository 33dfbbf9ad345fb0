// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render rasterizes assembled HTML into PDF through an external
// engine. Every request acquires its own session and releases it on every
// exit path; sessions are never pooled.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pdiddy/docflip/internal/container"
	"github.com/pdiddy/docflip/pkg/types"
)

// ErrInvalidOutput is returned when an engine produces something that is
// not a PDF.
var ErrInvalidOutput = errors.New("engine output is not a PDF")

// Page geometry shared by all backends.
const (
	pageWidthMM  = 210.0
	pageHeightMM = 297.0
	marginMM     = 20.0
)

var pdfMagic = []byte("%PDF-")

// Engine hands out isolated rendering sessions.
type Engine interface {
	// Name identifies the backend in logs.
	Name() string

	// Acquire starts a fresh session for one document.
	Acquire(ctx context.Context) (Session, error)
}

// Session is one isolated engine instance.
type Session interface {
	// Render turns a complete HTML document into PDF bytes.
	Render(ctx context.Context, markup string) ([]byte, error)

	// Release tears the session down. It is safe to call more than once.
	Release() error
}

// Use acquires a session from e, renders markup, and releases the session
// before returning, whether rendering succeeded, failed, or panicked. A
// release failure after a successful render is logged, not returned.
func Use(ctx context.Context, e Engine, markup string, log zerolog.Logger) (pdf []byte, err error) {
	sess, err := e.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting %s session: %w", e.Name(), err)
	}
	defer func() {
		if rerr := sess.Release(); rerr != nil {
			log.Warn().Err(rerr).Str("engine", e.Name()).Msg("session release failed")
			if err == nil {
				return
			}
			err = errors.Join(err, rerr)
		}
	}()

	out, err := sess.Render(ctx, markup)
	if err != nil {
		return nil, fmt.Errorf("rendering with %s: %w", e.Name(), err)
	}
	if !bytes.HasPrefix(out, pdfMagic) {
		return nil, ErrInvalidOutput
	}
	return out, nil
}

// NewEngine builds the engine selected by cfg.
func NewEngine(cfg types.RenderConfig, log zerolog.Logger) (Engine, error) {
	switch cfg.Backend {
	case types.RenderChrome, "":
		return NewChromeEngine(cfg, log), nil
	case types.RenderContainer:
		rt, err := container.DetectRuntime()
		if err != nil {
			return nil, err
		}
		return NewContainerEngine(rt, cfg.ContainerImage)
	}
	return nil, fmt.Errorf("unknown render backend %q", cfg.Backend)
}
