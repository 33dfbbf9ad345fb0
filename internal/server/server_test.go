// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docflip/internal/convert"
	"github.com/pdiddy/docflip/internal/httputil"
	"github.com/pdiddy/docflip/internal/secrets"
	"github.com/pdiddy/docflip/pkg/types"
)

// fakeConverter records the last call and returns canned results.
type fakeConverter struct {
	doc types.ConvertedDocument
	err error

	src         types.SourceDocument
	wm          types.Watermark
	requestID   string
	hasDeadline bool
	calls       int
}

func (f *fakeConverter) record(ctx context.Context, src types.SourceDocument) error {
	f.calls++
	f.src = src
	f.requestID = convert.RequestID(ctx)
	_, f.hasDeadline = ctx.Deadline()
	if src.Empty() {
		return convert.MissingInput()
	}
	return nil
}

func (f *fakeConverter) ToPDF(ctx context.Context, src types.SourceDocument, wm types.Watermark) (types.ConvertedDocument, error) {
	f.wm = wm
	if err := f.record(ctx, src); err != nil {
		return types.ConvertedDocument{}, err
	}
	return f.doc, f.err
}

func (f *fakeConverter) ToDOCX(ctx context.Context, src types.SourceDocument) (types.ConvertedDocument, error) {
	if err := f.record(ctx, src); err != nil {
		return types.ConvertedDocument{}, err
	}
	return f.doc, f.err
}

func defaultConfig() types.ServerConfig {
	return types.ServerConfig{MaxUploadBytes: 1 << 20, RequestTimeout: time.Minute}
}

func newTestServer(t *testing.T, conv Converter, cfg types.ServerConfig, token secrets.Token) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(New(conv, cfg, token, zerolog.Nop()).Routes())
	t.Cleanup(ts.Close)
	return ts
}

// upload builds a multipart request body. An empty filename omits the file part.
func upload(t *testing.T, filename string, data []byte, fields map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile(fieldFile, filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func post(t *testing.T, url string, body io.Reader, contentType string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeError(t *testing.T, resp *http.Response) httputil.ErrorBody {
	t.Helper()
	var body httputil.ErrorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &fakeConverter{}, defaultConfig(), "")

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestConvertToPDF(t *testing.T) {
	conv := &fakeConverter{doc: types.ConvertedDocument{
		Data: []byte("%PDF-1.7 out"), MediaType: types.MediaPDF, Filename: "季度报告.pdf",
	}}
	ts := newTestServer(t, conv, defaultConfig(), "")

	body, ct := upload(t, "季度报告.docx", []byte("PK\x03\x04docx"), map[string]string{"watermark": "  DRAFT  "})
	resp := post(t, ts.URL+"/api/convert", body, ct, nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "filename*=UTF-8''%E5%AD%A3%E5%BA%A6%E6%8A%A5%E5%91%8A.pdf")
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 out", string(out))

	assert.Equal(t, "季度报告.docx", conv.src.Filename)
	assert.Equal(t, "PK\x03\x04docx", string(conv.src.Data))
	assert.Equal(t, types.Watermark("DRAFT"), conv.wm)
	assert.NotEmpty(t, conv.requestID)
	assert.True(t, conv.hasDeadline)
}

func TestConvertToDOCX(t *testing.T) {
	conv := &fakeConverter{doc: types.ConvertedDocument{
		Data: []byte("PK docx"), MediaType: types.MediaDOCX, Filename: "scan.docx",
	}}
	ts := newTestServer(t, conv, defaultConfig(), "")

	body, ct := upload(t, "scan.pdf", []byte("%PDF-1.4"), nil)
	resp := post(t, ts.URL+"/api/pdf2word", body, ct, nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(types.MediaDOCX), resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="scan.docx"; filename*=UTF-8''scan.docx`, resp.Header.Get("Content-Disposition"))
}

func TestMissingFile(t *testing.T) {
	tests := []struct {
		name string
		path string
		body func(t *testing.T) (io.Reader, string)
	}{
		{
			name: "no file part",
			path: "/api/convert",
			body: func(t *testing.T) (io.Reader, string) { return upload(t, "", nil, map[string]string{"watermark": "x"}) },
		},
		{
			name: "empty file",
			path: "/api/pdf2word",
			body: func(t *testing.T) (io.Reader, string) { return upload(t, "empty.pdf", nil, nil) },
		},
		{
			name: "not multipart",
			path: "/api/pdf2word",
			body: func(t *testing.T) (io.Reader, string) { return strings.NewReader("{}"), "application/json" },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, &fakeConverter{}, defaultConfig(), "")
			body, ct := tt.body(t)
			resp := post(t, ts.URL+tt.path, body, ct, nil)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, httputil.ErrorBody{Error: "No file provided"}, decodeError(t, resp))
		})
	}
}

func TestConversionFailure(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantDetails string
	}{
		{name: "typed", err: convert.RenderFailed(errors.New("chrome crashed")), wantDetails: "chrome crashed"},
		{name: "untyped", err: errors.New("disk full"), wantDetails: "disk full"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, &fakeConverter{err: tt.err}, defaultConfig(), "")
			body, ct := upload(t, "a.docx", []byte("PK"), nil)
			resp := post(t, ts.URL+"/api/convert", body, ct, nil)

			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assert.Equal(t, httputil.ErrorBody{Error: "Conversion failed", Details: tt.wantDetails}, decodeError(t, resp))
		})
	}
}

func TestUploadTooLarge(t *testing.T) {
	conv := &fakeConverter{}
	cfg := defaultConfig()
	cfg.MaxUploadBytes = 1024
	ts := newTestServer(t, conv, cfg, "")

	body, ct := upload(t, "big.pdf", bytes.Repeat([]byte("x"), 8<<10), nil)
	resp := post(t, ts.URL+"/api/pdf2word", body, ct, nil)

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, "File too large", decodeError(t, resp).Error)
	assert.Zero(t, conv.calls)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "wrong", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic s3cret", want: http.StatusUnauthorized},
		{name: "valid", header: "Bearer s3cret", want: http.StatusOK},
		{name: "case insensitive scheme", header: "bearer s3cret", want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := &fakeConverter{doc: types.ConvertedDocument{Data: []byte("x"), MediaType: types.MediaDOCX, Filename: "a.docx"}}
			ts := newTestServer(t, conv, defaultConfig(), secrets.Token("s3cret"))

			body, ct := upload(t, "a.pdf", []byte("%PDF"), nil)
			h := http.Header{}
			if tt.header != "" {
				h.Set("Authorization", tt.header)
			}
			resp := post(t, ts.URL+"/api/pdf2word", body, ct, h)
			assert.Equal(t, tt.want, resp.StatusCode)
			if tt.want == http.StatusUnauthorized {
				assert.Zero(t, conv.calls)
			}
		})
	}
}

func TestHealthSkipsToken(t *testing.T) {
	ts := newTestServer(t, &fakeConverter{}, defaultConfig(), secrets.Token("s3cret"))

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNoTimeoutConfigured(t *testing.T) {
	conv := &fakeConverter{doc: types.ConvertedDocument{Data: []byte("x"), MediaType: types.MediaDOCX, Filename: "a.docx"}}
	cfg := defaultConfig()
	cfg.RequestTimeout = 0
	ts := newTestServer(t, conv, cfg, "")

	body, ct := upload(t, "a.pdf", []byte("%PDF"), nil)
	resp := post(t, ts.URL+"/api/pdf2word", body, ct, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, conv.hasDeadline)
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	cfg := defaultConfig()
	cfg.Addr = "127.0.0.1:0"
	s := New(&fakeConverter{}, cfg, "", zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
