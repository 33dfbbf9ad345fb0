// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP response helpers shared by the handlers.
package httputil

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ErrorBody is the JSON shape of every failed response.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// WriteError writes an ErrorBody.
func WriteError(w http.ResponseWriter, status int, summary, details string) error {
	return WriteJSON(w, status, ErrorBody{Error: summary, Details: details})
}

// ContentDisposition builds an attachment header value that carries the
// name both as an ASCII fallback and as RFC 5987 UTF-8.
func ContentDisposition(filename string) string {
	return `attachment; filename="` + asciiFallback(filename) + `"; filename*=UTF-8''` + encodeRFC5987(filename)
}

// Attachment writes data as a downloadable file.
func Attachment(w http.ResponseWriter, filename, mediaType string, data []byte) error {
	h := w.Header()
	h.Set("Content-Type", mediaType)
	h.Set("Content-Disposition", ContentDisposition(filename))
	h.Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(data)
	return err
}

// encodeRFC5987 percent-encodes everything outside the unreserved set.
func encodeRFC5987(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func asciiFallback(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '"' || r == '\\' || r < 0x20 || r == 0x7f:
			b.WriteByte('_')
		case r > 0x7e:
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
