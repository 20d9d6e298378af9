// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by commands that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "pdf2pages/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// RendererBackend identifies the rasterization engine.
type RendererBackend string

const (
	RendererPoppler   RendererBackend = "poppler"
	RendererMuPDF     RendererBackend = "mupdf"
	RendererPDFium    RendererBackend = "pdfium"
	RendererContainer RendererBackend = "container"
)

// ReportFormat selects how the convert command prints its result.
type ReportFormat string

const (
	ReportText ReportFormat = "text"
	ReportYAML ReportFormat = "yaml"
)

// ConversionConfig holds the front-end settings that surround a
// ConversionRequest: which renderer to build and what to do with the result.
type ConversionConfig struct {
	// Renderer selects the rasterization engine (default poppler).
	Renderer RendererBackend `json:"renderer" yaml:"renderer"`

	// PopplerPath is an explicit directory containing pdftoppm. Empty means
	// search the local provisioning layout and then PATH.
	PopplerPath string `json:"poppler_path,omitempty" yaml:"poppler_path,omitempty"`

	// ContainerImage is the poppler image used by the container renderer.
	ContainerImage string `json:"container_image,omitempty" yaml:"container_image,omitempty"`

	// KeepExisting disables clearing previous page images before a run.
	KeepExisting bool `json:"keep_existing" yaml:"keep_existing"`

	// HistoryDB is the sqlite file recording past runs. Empty disables history.
	HistoryDB string `json:"history_db,omitempty" yaml:"history_db,omitempty"`

	// Report selects the result output: text or yaml.
	Report ReportFormat `json:"report" yaml:"report"`
}

// ProvisionConfig holds settings for downloading a local poppler build.
type ProvisionConfig struct {
	HTTPConfig `yaml:",inline"`

	// ReleaseURL is the zip archive to download.
	ReleaseURL string `json:"release_url" yaml:"release_url"`

	// InstallDir is the directory under which poppler/ is created.
	InstallDir string `json:"install_dir" yaml:"install_dir"`

	// Token is an optional GitHub token sent as a bearer credential.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// MaxRetries bounds retries on 429/503 responses (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}
