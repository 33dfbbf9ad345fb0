// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the conversion pipelines over HTTP.
//
//	POST /api/convert    multipart "file" (+ optional "watermark") -> PDF
//	POST /api/pdf2word   multipart "file" -> DOCX
//	GET  /health
//
// Failures are JSON {"error": summary, "details": detail}: 400 when no file
// was provided, 413 when the upload exceeds the limit, 500 otherwise.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/pdiddy/docflip/internal/convert"
	"github.com/pdiddy/docflip/internal/httputil"
	"github.com/pdiddy/docflip/internal/secrets"
	"github.com/pdiddy/docflip/pkg/types"
)

const (
	fieldFile      = "file"
	fieldWatermark = "watermark"

	// Multipart parts beyond this size spill to temporary files, which
	// net/http removes when the request ends.
	multipartMemory = 32 << 20

	shutdownGrace = 30 * time.Second
)

// Converter runs one conversion per call. *convert.Pipeline implements it.
type Converter interface {
	ToPDF(ctx context.Context, src types.SourceDocument, wm types.Watermark) (types.ConvertedDocument, error)
	ToDOCX(ctx context.Context, src types.SourceDocument) (types.ConvertedDocument, error)
}

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	conv  Converter
	cfg   types.ServerConfig
	token secrets.Token
	log   zerolog.Logger
}

// New returns a server. A zero token disables authentication.
func New(conv Converter, cfg types.ServerConfig, token secrets.Token, log zerolog.Logger) *Server {
	return &Server{conv: conv, cfg: cfg, token: token, log: log}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(hlog.NewHandler(s.log))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Int("status", status).
			Int("size", size).
			Dur("elapsed", d).
			Msg("request")
	}))
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "docflip"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireToken)
		r.Post("/convert", s.handleToPDF)
		r.Post("/pdf2word", s.handleToDOCX)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Bool("auth", s.token.Required()).Msg("HTTP server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.token.Required() {
			next.ServeHTTP(w, r)
			return
		}
		scheme, tok, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || !s.token.Matches(strings.TrimSpace(tok)) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="docflip"`)
			_ = httputil.WriteError(w, http.StatusUnauthorized, "Unauthorized", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleToPDF(w http.ResponseWriter, r *http.Request) {
	src, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.conversionContext(r)
	defer cancel()

	doc, err := s.conv.ToPDF(ctx, src, types.NewWatermark(r.FormValue(fieldWatermark)))
	s.respond(w, r, doc, err)
}

func (s *Server) handleToDOCX(w http.ResponseWriter, r *http.Request) {
	src, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.conversionContext(r)
	defer cancel()

	doc, err := s.conv.ToDOCX(ctx, src)
	s.respond(w, r, doc, err)
}

// readUpload reads the "file" part fully into memory. A request without one
// yields an empty SourceDocument so that the pipeline reports the missing
// input itself.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (types.SourceDocument, bool) {
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = httputil.WriteError(w, http.StatusRequestEntityTooLarge, "File too large", err.Error())
			return types.SourceDocument{}, false
		}
		// Anything else is treated as no file at all.
		return types.SourceDocument{}, true
	}

	f, hdr, err := r.FormFile(fieldFile)
	if err != nil {
		return types.SourceDocument{}, true
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		_ = httputil.WriteError(w, http.StatusBadRequest, "Upload interrupted", err.Error())
		return types.SourceDocument{}, false
	}
	return types.SourceDocument{
		Data:      data,
		MediaType: types.MediaType(hdr.Header.Get("Content-Type")),
		Filename:  hdr.Filename,
	}, true
}

// conversionContext bounds the pipeline call. The request id set by chi is
// carried into pipeline logs and journal records.
func (s *Server) conversionContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx := convert.WithRequestID(r.Context(), chimiddleware.GetReqID(r.Context()))
	if s.cfg.RequestTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, doc types.ConvertedDocument, err error) {
	if err == nil {
		if werr := httputil.Attachment(w, doc.Filename, string(doc.MediaType), doc.Data); werr != nil {
			hlog.FromRequest(r).Warn().Err(werr).Msg("writing response failed")
		}
		return
	}

	var ce *convert.Error
	if !errors.As(err, &ce) {
		ce = convert.Unknown(err)
	}
	status := http.StatusInternalServerError
	if ce.Kind == convert.KindMissingInput {
		status = http.StatusBadRequest
	}
	_ = httputil.WriteError(w, status, ce.Summary, ce.Detail)
}
