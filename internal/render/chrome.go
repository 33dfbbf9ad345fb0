// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"github.com/pdiddy/docflip/pkg/types"
)

const (
	// networkIdle is how long the page must go without requests before it
	// counts as settled.
	networkIdle = 500 * time.Millisecond

	closeTimeout = 5 * time.Second
)

// ChromeEngine launches a dedicated headless Chrome for every session, with
// its own temporary profile.
type ChromeEngine struct {
	cfg types.RenderConfig
	log zerolog.Logger
}

// NewChromeEngine returns an engine that launches Chrome per session.
func NewChromeEngine(cfg types.RenderConfig, log zerolog.Logger) *ChromeEngine {
	return &ChromeEngine{cfg: cfg, log: log}
}

// Name implements Engine.
func (e *ChromeEngine) Name() string { return string(types.RenderChrome) }

// Acquire implements Engine.
func (e *ChromeEngine) Acquire(ctx context.Context) (Session, error) {
	l := launcher.New().
		Context(ctx).
		Headless(true).
		Leakless(true)
	if e.cfg.NoSandbox {
		l = l.NoSandbox(true)
	}
	if e.cfg.BrowserBin != "" {
		l = l.Bin(e.cfg.BrowserBin)
	}

	u, err := l.Launch()
	if err != nil {
		// Cleanup waits for the process to exit, so only call it when one
		// was started.
		if l.PID() != 0 {
			l.Kill()
			l.Cleanup()
		}
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	e.log.Debug().Int("pid", l.PID()).Msg("browser session started")
	return &chromeSession{launcher: l, browser: b, log: e.log}, nil
}

type chromeSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	log      zerolog.Logger

	once       sync.Once
	releaseErr error
}

// Render loads markup into a blank page, waits for the network to go idle
// and web fonts to finish loading, then prints A4 with 20mm margins and
// background graphics.
func (s *chromeSession) Render(ctx context.Context, markup string) ([]byte, error) {
	page, err := s.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("opening page: %w", err)
	}

	idle := page.WaitRequestIdle(networkIdle, nil, nil, nil)
	if err := page.SetDocumentContent(markup); err != nil {
		return nil, fmt.Errorf("loading document: %w", err)
	}
	idle()

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("waiting for load: %w", err)
	}
	if _, err := page.Eval(`() => document.fonts.ready.then(() => document.fonts.size)`); err != nil {
		return nil, fmt.Errorf("waiting for fonts: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stream, err := page.PDF(printOptions())
	if err != nil {
		return nil, fmt.Errorf("printing pdf: %w", err)
	}

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("reading pdf stream: %w", err)
	}
	return data, nil
}

// Release closes the browser, then kills the process and deletes its
// profile directory. The close uses its own timeout so a cancelled request
// still tears the browser down.
func (s *chromeSession) Release() error {
	s.once.Do(func() {
		if err := s.browser.Timeout(closeTimeout).Close(); err != nil {
			s.releaseErr = fmt.Errorf("closing browser: %w", err)
		}
		s.launcher.Kill()
		s.launcher.Cleanup()
		s.log.Debug().Msg("browser session released")
	})
	return s.releaseErr
}

// printOptions is A4 with 20mm margins on every side and background
// graphics enabled.
func printOptions() *proto.PagePrintToPDF {
	return &proto.PagePrintToPDF{
		PaperWidth:      inches(pageWidthMM),
		PaperHeight:     inches(pageHeightMM),
		MarginTop:       inches(marginMM),
		MarginBottom:    inches(marginMM),
		MarginLeft:      inches(marginMM),
		MarginRight:     inches(marginMM),
		PrintBackground: true,
	}
}

func inches(mm float64) *float64 {
	v := mm / 25.4
	return &v
}
