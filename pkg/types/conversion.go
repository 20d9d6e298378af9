// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
	"time"
)

// ImageFormat identifies the container a rendered page is encoded into.
type ImageFormat string

const (
	FormatPNG  ImageFormat = "PNG"
	FormatJPEG ImageFormat = "JPEG"
	FormatTIFF ImageFormat = "TIFF"
)

// SupportedFormats lists every ImageFormat the encoder accepts, in the order
// they are offered to users.
var SupportedFormats = []ImageFormat{FormatPNG, FormatJPEG, FormatTIFF}

const (
	// DefaultDPI is the rasterization resolution used when none is given.
	DefaultDPI = 200

	// DefaultPrefix is the filename prefix used when none is given.
	DefaultPrefix = "page"

	// DefaultJPEGQuality is the fixed JPEG quality for page images.
	DefaultJPEGQuality = 95
)

// ParseImageFormat maps a user-supplied name ("png", "Jpeg", "TIFF") to an
// ImageFormat. The second return value is false for unknown names; "jpg" is
// accepted as an alias of JPEG.
func ParseImageFormat(s string) (ImageFormat, bool) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "JPG" {
		name = string(FormatJPEG)
	}
	f := ImageFormat(name)
	return f, f.Valid()
}

// Valid reports whether f is one of SupportedFormats.
func (f ImageFormat) Valid() bool {
	for _, s := range SupportedFormats {
		if f == s {
			return true
		}
	}
	return false
}

// Extension returns the lowercase file extension for f, without the dot.
func (f ImageFormat) Extension() string {
	return strings.ToLower(string(f))
}

// ConversionRequest describes one PDF-to-images run. Build it with
// NewConversionRequest and pass it by value; the pipeline never mutates it.
type ConversionRequest struct {
	// SourcePath is the PDF to rasterize.
	SourcePath string `json:"source_path" yaml:"source_path"`

	// OutputDirectory receives one image per page. Created if absent.
	OutputDirectory string `json:"output_directory" yaml:"output_directory"`

	// ResolutionDPI is the rasterization resolution; must be positive.
	ResolutionDPI int `json:"resolution_dpi" yaml:"resolution_dpi"`

	// ImageFormat selects the output container.
	ImageFormat ImageFormat `json:"image_format" yaml:"image_format"`

	// FilenamePrefix is the stem shared by every output file.
	FilenamePrefix string `json:"filename_prefix" yaml:"filename_prefix"`

	// QualityForJPEG is the JPEG quality in [0,100]; 0 encodes as 1, the
	// lowest quality the encoder supports. Ignored for other formats.
	QualityForJPEG int `json:"quality_for_jpeg" yaml:"quality_for_jpeg"`
}

// NewConversionRequest returns a request for sourcePath writing into
// outputDir with the default DPI, format, prefix and JPEG quality.
func NewConversionRequest(sourcePath, outputDir string) ConversionRequest {
	return ConversionRequest{
		SourcePath:      sourcePath,
		OutputDirectory: outputDir,
		ResolutionDPI:   DefaultDPI,
		ImageFormat:     FormatPNG,
		FilenamePrefix:  DefaultPrefix,
		QualityForJPEG:  DefaultJPEGQuality,
	}
}

// PageFilename returns the output filename for the 1-based page index,
// e.g. "page_007.png".
func (r ConversionRequest) PageFilename(index int) string {
	return fmt.Sprintf("%s_%03d.%s", r.FilenamePrefix, index, r.ImageFormat.Extension())
}

// SavedFile is one image written by a successful conversion.
type SavedFile struct {
	Filename  string `json:"filename" yaml:"filename"`
	SizeBytes int64  `json:"size_bytes" yaml:"size_bytes"`
}

// ConversionResult is the outcome of a conversion. On failure SavedFiles is
// empty and ErrorDetail describes the cause.
type ConversionResult struct {
	TotalPages  int         `json:"total_pages" yaml:"total_pages"`
	SavedFiles  []SavedFile `json:"saved_files" yaml:"saved_files"`
	Succeeded   bool        `json:"succeeded" yaml:"succeeded"`
	ErrorDetail string      `json:"error_detail,omitempty" yaml:"error_detail,omitempty"`

	// Elapsed is the wall time of the conversion.
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}

// TotalBytes sums the sizes of all saved files.
func (r ConversionResult) TotalBytes() int64 {
	var n int64
	for _, f := range r.SavedFiles {
		n += f.SizeBytes
	}
	return n
}
