// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/docflip/internal/convert"
)

// ExportEntry is the serialized form of a recorded conversion.
type ExportEntry struct {
	ID          string `json:"id" yaml:"id"`
	Direction   string `json:"direction" yaml:"direction"`
	Source      string `json:"source" yaml:"source"`
	Output      string `json:"output,omitempty" yaml:"output,omitempty"`
	SourceBytes int    `json:"source_bytes" yaml:"source_bytes"`
	OutputBytes int    `json:"output_bytes,omitempty" yaml:"output_bytes,omitempty"`
	DurationMS  int64  `json:"duration_ms" yaml:"duration_ms"`
	Status      string `json:"status" yaml:"status"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
	At          string `json:"at" yaml:"at"`
}

// ExportYAML writes the entries matching opts to w as a YAML sequence.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer, opts QueryOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// ExportJSON writes the entries matching opts to w as a JSON array.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer, opts QueryOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}

func (s *Store) exportEntries(ctx context.Context, opts QueryOptions) ([]ExportEntry, error) {
	outcomes, err := s.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	entries := make([]ExportEntry, len(outcomes))
	for i, o := range outcomes {
		entries[i] = toEntry(o)
	}
	return entries, nil
}

func toEntry(o convert.Outcome) ExportEntry {
	e := ExportEntry{
		ID:          o.ID,
		Direction:   string(o.Direction),
		Source:      o.SourceName,
		Output:      o.OutputName,
		SourceBytes: o.SourceBytes,
		OutputBytes: o.OutputBytes,
		DurationMS:  o.Duration.Milliseconds(),
		Status:      "ok",
		At:          o.At.UTC().Format(time.RFC3339),
	}
	if !o.Succeeded() {
		e.Status = string(o.Kind)
		e.Error = o.Detail
	}
	return e
}
