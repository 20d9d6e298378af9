// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package encode serializes rendered page images into PNG, JPEG or TIFF.
package encode

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
	"golang.org/x/image/tiff"

	"github.com/pdiddy/pdf2pages/pkg/types"
)

// ErrUnsupportedFormat is returned for formats outside types.SupportedFormats.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ImageEncoder writes images in the formats listed by types.SupportedFormats.
// PNG is written at best compression, TIFF losslessly with Deflate, and JPEG
// at the quality passed to Encode.
type ImageEncoder struct{}

// New returns an ImageEncoder.
func New() *ImageEncoder {
	return &ImageEncoder{}
}

// Encode writes img to w in format. quality applies to JPEG only and is
// clamped to [1,100], so 0 encodes like 1.
func (e *ImageEncoder) Encode(w io.Writer, img image.Image, format types.ImageFormat, quality int) error {
	switch format {
	case types.FormatPNG:
		return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	case types.FormatJPEG:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(clampQuality(quality)))
	case types.FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func clampQuality(q int) int {
	switch {
	case q < 1:
		return 1
	case q > 100:
		return 100
	}
	return q
}
