// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render rasterizes PDF pages into images. Four backends implement
// Renderer: poppler (the pdftoppm binary), mupdf (go-fitz), pdfium
// (go-pdfium on WebAssembly), and container (pdftoppm in docker or
// podman). A Renderer opens a Document, which is a render session over one
// PDF that must be closed when the caller is done with it.
package render

import (
	"errors"
	"fmt"
	"image"
	"os/exec"
	"strings"

	"github.com/pdiddy/pdf2pages/pkg/types"
)

// ErrMissingDependency marks failures caused by a native rasterization tool
// or library that is not installed.
var ErrMissingDependency = errors.New("native rasterization tool not installed")

// Renderer opens PDF documents for rasterization.
type Renderer interface {
	// Name returns the backend name ("poppler", "mupdf", "pdfium",
	// "container").
	Name() string

	// Open starts a render session over the PDF at path. Pages are rendered
	// at dpi dots per inch.
	Open(path string, dpi int) (Document, error)

	// Close releases resources held by the renderer itself.
	Close() error
}

// Document is an ordered, 0-indexed sequence of rendered pages.
type Document interface {
	// NumPages returns the number of pages in the document.
	NumPages() int

	// Page renders the page at index. The returned image is owned by the
	// caller.
	Page(index int) (image.Image, error)

	// Close releases the session: temp files, library handles, buffers.
	Close() error
}

// Options configures backend construction.
type Options struct {
	// PopplerPath is an explicit directory holding pdftoppm.
	PopplerPath string

	// SearchDirs are checked for pdftoppm, in order, before PATH.
	SearchDirs []string

	// ContainerImage is the image the container backend runs pdftoppm in.
	ContainerImage string
}

// New builds the Renderer for backend. Construction fails with an error
// wrapping ErrMissingDependency when the backend's native tool is absent.
func New(backend types.RendererBackend, opts Options) (Renderer, error) {
	switch backend {
	case types.RendererPoppler, "":
		return NewPopplerRenderer(opts.PopplerPath, opts.SearchDirs)
	case types.RendererMuPDF:
		return NewFitzRenderer()
	case types.RendererPDFium:
		return NewPDFiumRenderer()
	case types.RendererContainer:
		return NewContainerRenderer(opts.ContainerImage)
	default:
		return nil, fmt.Errorf("unknown renderer %q (want poppler, mupdf, pdfium, or container)", backend)
	}
}

// dependencySignatures are fragments of error text produced by a shell,
// the dynamic loader, or a wrapper library when a native tool is absent.
var dependencySignatures = []string{
	"executable file not found",
	"command not found",
	"is poppler installed",
	"cannot open shared object file",
	"library not loaded",
	"could not load libmupdf",
}

// IsMissingDependency reports whether err was caused by an absent native
// renderer: it wraps ErrMissingDependency or exec.ErrNotFound, or its text
// matches a known dependency-absence signature.
func IsMissingDependency(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMissingDependency) || errors.Is(err, exec.ErrNotFound) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range dependencySignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
