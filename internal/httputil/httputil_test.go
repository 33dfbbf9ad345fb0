// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentDisposition(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "ascii",
			in:   "report.pdf",
			want: `attachment; filename="report.pdf"; filename*=UTF-8''report.pdf`,
		},
		{
			name: "spaces and quotes",
			in:   `my "final" doc.docx`,
			want: `attachment; filename="my _final_ doc.docx"; filename*=UTF-8''my%20%22final%22%20doc.docx`,
		},
		{
			name: "cjk",
			in:   "报告.pdf",
			want: `attachment; filename="__.pdf"; filename*=UTF-8''%E6%8A%A5%E5%91%8A.pdf`,
		},
		{
			name: "reserved characters",
			in:   "a+b=c;d.pdf",
			want: `attachment; filename="a+b=c;d.pdf"; filename*=UTF-8''a%2Bb%3Dc%3Bd.pdf`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContentDisposition(tt.in))
		})
	}
}

func TestAttachment(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, Attachment(rec, "out.pdf", "application/pdf", []byte("%PDF-1.7")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "8", rec.Header().Get("Content-Length"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "filename*=UTF-8''out.pdf")
	assert.Equal(t, "%PDF-1.7", rec.Body.String())
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteError(rec, http.StatusInternalServerError, "Conversion failed", "zip: not a valid zip file"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"error": "Conversion failed", "details": "zip: not a valid zip file"}, body)
}

func TestWriteError_OmitsEmptyDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteError(rec, http.StatusBadRequest, "No file provided", ""))
	assert.JSONEq(t, `{"error":"No file provided"}`, rec.Body.String())
}
