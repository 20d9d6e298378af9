// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"

	"github.com/pdiddy/pdf2pages/pkg/types"
)

// FitzRenderer renders pages with MuPDF through go-fitz. Pages are rendered
// lazily, one per Page call.
type FitzRenderer struct{}

// NewFitzRenderer creates a MuPDF-backed renderer.
func NewFitzRenderer() (*FitzRenderer, error) {
	return &FitzRenderer{}, nil
}

func (r *FitzRenderer) Name() string { return string(types.RendererMuPDF) }

// Open opens the document with MuPDF. The handle stays open until the
// Document is closed.
func (r *FitzRenderer) Open(path string, dpi int) (Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		if IsMissingDependency(err) {
			return nil, fmt.Errorf("%w: opening %s with mupdf: %w", ErrMissingDependency, path, err)
		}
		return nil, fmt.Errorf("opening %s with mupdf: %w", path, err)
	}
	return &fitzDocument{doc: doc, dpi: float64(dpi)}, nil
}

// Close is a no-op; documents are closed individually.
func (r *FitzRenderer) Close() error { return nil }

type fitzDocument struct {
	doc *fitz.Document
	dpi float64
}

func (d *fitzDocument) NumPages() int { return d.doc.NumPage() }

func (d *fitzDocument) Page(index int) (image.Image, error) {
	img, err := d.doc.ImageDPI(index, d.dpi)
	if err != nil {
		return nil, fmt.Errorf("rendering page %d: %w", index+1, err)
	}
	return img, nil
}

func (d *fitzDocument) Close() error {
	if d.doc == nil {
		return nil
	}
	err := d.doc.Close()
	d.doc = nil
	return err
}
