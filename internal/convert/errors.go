// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"errors"
	"fmt"
)

// Kind classifies a conversion failure.
type Kind string

const (
	KindMissingInput        Kind = "missing_input"
	KindExtractionFailed    Kind = "extraction_failed"
	KindRenderFailed        Kind = "render_failed"
	KindSerializationFailed Kind = "serialization_failed"
	KindUnknown             Kind = "unknown"
)

// Client-facing summaries.
const (
	summaryMissingInput = "No file provided"
	summaryFailed       = "Conversion failed"
)

// Error is the uniform failure shape returned by the pipelines. Summary is
// short and safe to show to clients; Detail carries the underlying message.
type Error struct {
	Kind    Kind
	Summary string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Summary, e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Summary)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, summary string, err error) *Error {
	e := &Error{Kind: kind, Summary: summary, Err: err}
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}

// MissingInput reports a request without a payload.
func MissingInput() *Error {
	return newError(KindMissingInput, summaryMissingInput, nil)
}

// ExtractionFailed wraps a parser failure.
func ExtractionFailed(err error) *Error {
	return newError(KindExtractionFailed, summaryFailed, err)
}

// RenderFailed wraps a rendering engine failure.
func RenderFailed(err error) *Error {
	return newError(KindRenderFailed, summaryFailed, err)
}

// SerializationFailed wraps a failure to build the output container.
func SerializationFailed(err error) *Error {
	return newError(KindSerializationFailed, summaryFailed, err)
}

// Unknown wraps anything else.
func Unknown(err error) *Error {
	return newError(KindUnknown, summaryFailed, err)
}

// KindOf returns the kind of err, or KindUnknown if err is not an *Error.
// A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}
