// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"fmt"
	"image"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"

	"github.com/pdiddy/pdf2pages/pkg/types"
)

const pdfiumInstanceTimeout = 30 * time.Second

// PDFiumRenderer renders pages with PDFium compiled to WebAssembly, so it
// needs neither CGo nor a native library.
type PDFiumRenderer struct {
	pool     pdfium.Pool
	instance pdfium.Pdfium
}

// NewPDFiumRenderer starts a single-worker WebAssembly pool and takes one
// instance from it.
func NewPDFiumRenderer() (*PDFiumRenderer, error) {
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  1,
		MaxTotal: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing PDFium WebAssembly: %w", err)
	}

	instance, err := pool.GetInstance(pdfiumInstanceTimeout)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("getting PDFium instance: %w", err)
	}

	return &PDFiumRenderer{pool: pool, instance: instance}, nil
}

func (r *PDFiumRenderer) Name() string { return string(types.RendererPDFium) }

// Open loads the whole file into the PDFium instance.
func (r *PDFiumRenderer) Open(path string, dpi int) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	doc, err := r.instance.OpenDocument(&requests.OpenDocument{File: &data})
	if err != nil {
		return nil, fmt.Errorf("opening %s with pdfium: %w", path, err)
	}

	count, err := r.instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{Document: doc.Document})
	if err != nil {
		r.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document})
		return nil, fmt.Errorf("reading page count: %w", err)
	}

	return &pdfiumDocument{
		instance: r.instance,
		doc:      doc.Document,
		pages:    count.PageCount,
		dpi:      dpi,
		open:     true,
	}, nil
}

// Close shuts down the WebAssembly pool.
func (r *PDFiumRenderer) Close() error {
	if r.pool != nil {
		r.pool.Close()
		r.pool = nil
	}
	r.instance = nil
	return nil
}

type pdfiumDocument struct {
	instance pdfium.Pdfium
	doc      references.FPDF_DOCUMENT
	pages    int
	dpi      int
	open     bool
}

func (d *pdfiumDocument) NumPages() int { return d.pages }

// Page renders one page and copies it out of WebAssembly memory before the
// render buffer is released.
func (d *pdfiumDocument) Page(index int) (image.Image, error) {
	rendered, err := d.instance.RenderPageInDPI(&requests.RenderPageInDPI{
		DPI: d.dpi,
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{
				Document: d.doc,
				Index:    index,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("rendering page %d: %w", index+1, err)
	}
	defer rendered.Cleanup()

	return imaging.Clone(rendered.Result.Image), nil
}

func (d *pdfiumDocument) Close() error {
	if !d.open {
		return nil
	}
	d.open = false
	_, err := d.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: d.doc})
	return err
}
