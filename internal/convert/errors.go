// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"errors"
	"fmt"

	"github.com/pdiddy/pdf2pages/internal/render"
)

var (
	// ErrSourceNotFound means the source PDF does not exist or cannot be read.
	ErrSourceNotFound = errors.New("source PDF not found")

	// ErrUnsupportedFormat means the requested image format is not supported.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrInvalidRequest covers out-of-range DPI, quality or an empty prefix.
	ErrInvalidRequest = errors.New("invalid conversion request")

	// ErrEmptyDocument means the renderer succeeded but the PDF has no pages.
	ErrEmptyDocument = errors.New("document has no pages")
)

// RenderError wraps a renderer failure. Page is 0 when the document could
// not be opened at all, otherwise the 1-based page that failed.
type RenderError struct {
	Path string
	Page int
	Err  error
}

func (e *RenderError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("rendering page %d of %s: %v", e.Page, e.Path, e.Err)
	}
	return fmt.Sprintf("rendering %s: %v", e.Path, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// MissingDependency reports whether the renderer failed because its native
// tool is not installed.
func (e *RenderError) MissingDependency() bool {
	return render.IsMissingDependency(e.Err)
}

// EncodeError reports the 1-based page whose image could not be encoded or
// written.
type EncodeError struct {
	Page     int
	Filename string
	Err      error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encoding page %d (%s): %v", e.Page, e.Filename, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// OutputWriteError reports a failure to create, clear or inspect the output
// directory.
type OutputWriteError struct {
	Dir string
	Op  string
	Err error
}

func (e *OutputWriteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Dir, e.Err)
}

func (e *OutputWriteError) Unwrap() error { return e.Err }

// RemediationHint returns advice for errors caused by a missing native
// renderer, or "" for every other error.
func RemediationHint(err error) string {
	if !render.IsMissingDependency(err) {
		return ""
	}
	return `pdftoppm (poppler) is required by the default renderer and was not found.
  - run: pdf2pages install-poppler (Windows builds, installed under ./poppler)
  - Linux: sudo apt-get install poppler-utils
  - macOS: brew install poppler
  - Windows: https://github.com/oschwartz10612/poppler-windows/releases
  - or pass --poppler-path DIR, use --renderer pdfium which needs no native tools,
    or --renderer container to run pdftoppm under docker or podman`
}
