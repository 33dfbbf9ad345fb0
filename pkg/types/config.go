// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is a zerolog level name: trace, debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format selects "console" (human readable) or "json" output.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// RenderBackend identifies the engine that rasterizes HTML into PDF.
type RenderBackend string

const (
	RenderChrome    RenderBackend = "chrome"
	RenderContainer RenderBackend = "container"
)

// RenderConfig holds settings for the DOCX-to-PDF renderer.
type RenderConfig struct {
	// Backend selects chrome (headless browser launched per request) or
	// container (one container run per request).
	Backend RenderBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Timeout bounds a single render, including session startup. Zero disables it.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// NoSandbox disables the Chrome sandbox. Needed when running as root in
	// some containers; off by default.
	NoSandbox bool `json:"no_sandbox" yaml:"no_sandbox" mapstructure:"no_sandbox"`

	// BrowserBin is an explicit Chrome/Chromium binary. Empty means look it up.
	BrowserBin string `json:"browser_bin,omitempty" yaml:"browser_bin,omitempty" mapstructure:"browser_bin"`

	// ContainerImage is the image used by the container backend. It must read
	// HTML on stdin and write PDF on stdout.
	ContainerImage string `json:"container_image" yaml:"container_image" mapstructure:"container_image"`
}

// PDFBackend identifies the PDF text extraction library.
type PDFBackend string

const (
	PDFLedongthuc PDFBackend = "ledongthuc"
	PDFFitz       PDFBackend = "fitz"
)

// ExtractConfig holds settings for content extraction.
type ExtractConfig struct {
	PDFBackend PDFBackend `json:"pdf_backend" yaml:"pdf_backend" mapstructure:"pdf_backend"`
}

// ServerConfig holds settings for the HTTP service.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// MaxUploadBytes caps the request body. Zero means no limit.
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`

	// RequestTimeout bounds a whole conversion request. Zero disables it.
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout" mapstructure:"request_timeout"`

	// SecretsDir is scanned for an "api-token" file. When present, requests
	// must carry it as a bearer token.
	SecretsDir string `json:"secrets_dir" yaml:"secrets_dir" mapstructure:"secrets_dir"`
}

// JournalConfig holds settings for the conversion journal.
type JournalConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" yaml:"path" mapstructure:"path"`
}

// AppConfig groups every section of the docflip configuration file.
type AppConfig struct {
	Log     LogConfig     `json:"log" yaml:"log" mapstructure:"log"`
	Render  RenderConfig  `json:"render" yaml:"render" mapstructure:"render"`
	Extract ExtractConfig `json:"extract" yaml:"extract" mapstructure:"extract"`
	Server  ServerConfig  `json:"server" yaml:"server" mapstructure:"server"`
	Journal JournalConfig `json:"journal" yaml:"journal" mapstructure:"journal"`
}

// DefaultAppConfig returns the configuration used when nothing is set.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Log: LogConfig{Level: "info", Format: "console"},
		Render: RenderConfig{
			Backend:        RenderChrome,
			Timeout:        2 * time.Minute,
			ContainerImage: "docflip-weasyprint:latest",
		},
		Extract: ExtractConfig{PDFBackend: PDFLedongthuc},
		Server: ServerConfig{
			Addr:           ":8080",
			MaxUploadBytes: 50 << 20,
			RequestTimeout: 3 * time.Minute,
			SecretsDir:     ".secrets/",
		},
		Journal: JournalConfig{Path: "docflip.db"},
	}
}

// Normalize replaces zero values with defaults so partially filled
// configuration files remain usable.
func (c *AppConfig) Normalize() {
	d := DefaultAppConfig()
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Render.Backend == "" {
		c.Render.Backend = d.Render.Backend
	}
	if c.Render.ContainerImage == "" {
		c.Render.ContainerImage = d.Render.ContainerImage
	}
	if c.Extract.PDFBackend == "" {
		c.Extract.PDFBackend = d.Extract.PDFBackend
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Journal.Path == "" {
		c.Journal.Path = d.Journal.Path
	}
}
