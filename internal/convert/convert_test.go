// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdf2pages/internal/render"
	"github.com/pdiddy/pdf2pages/pkg/types"
)

// fakeRenderer implements Renderer with a fixed page count or an error.
type fakeRenderer struct {
	pages   int
	openErr error
	pageErr map[int]error // 0-based page index -> error

	calls   int
	gotPath string
	gotDPI  int
	doc     *fakeDocument
}

func (f *fakeRenderer) Open(path string, dpi int) (render.Document, error) {
	f.calls++
	f.gotPath, f.gotDPI = path, dpi
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.doc = &fakeDocument{pages: f.pages, pageErr: f.pageErr}
	return f.doc, nil
}

type fakeDocument struct {
	pages   int
	pageErr map[int]error
	closed  bool
}

func (d *fakeDocument) NumPages() int { return d.pages }

func (d *fakeDocument) Page(index int) (image.Image, error) {
	if err, ok := d.pageErr[index]; ok {
		return nil, err
	}
	return image.NewGray(image.Rect(0, 0, index+1, 1)), nil
}

func (d *fakeDocument) Close() error {
	d.closed = true
	return nil
}

// fakeEncoder writes a short marker and can fail on the n-th call (1-based).
type fakeEncoder struct {
	failOn     int
	calls      int
	gotFormats []types.ImageFormat
	gotQuality []int
}

func (e *fakeEncoder) Encode(w io.Writer, img image.Image, format types.ImageFormat, quality int) error {
	e.calls++
	e.gotFormats = append(e.gotFormats, format)
	e.gotQuality = append(e.gotQuality, quality)
	if e.calls == e.failOn {
		return errors.New("no space left on device")
	}
	_, err := fmt.Fprintf(w, "%s width=%d", format, img.Bounds().Dx())
	return err
}

// setupPDF creates a placeholder source file and returns it with a fresh
// output directory path (not yet created).
func setupPDF(t *testing.T) (pdfPath, outDir string) {
	t.Helper()
	tmp := t.TempDir()
	pdfPath = filepath.Join(tmp, "auction.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.7"), 0o644))
	return pdfPath, filepath.Join(tmp, "out", "images")
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestConvertThreePageJPEG(t *testing.T) {
	pdfPath, outDir := setupPDF(t)
	req := types.NewConversionRequest(pdfPath, outDir)
	req.ImageFormat = types.FormatJPEG
	req.FilenamePrefix = "x"
	req.ResolutionDPI = 150

	rend := &fakeRenderer{pages: 3}
	enc := &fakeEncoder{}
	type progress struct {
		current, total int
		name           string
	}
	var seen []progress
	p := NewPipeline(rend, enc, WithProgress(func(c, n int, name string) {
		seen = append(seen, progress{c, n, name})
	}))

	result, err := p.Convert(req)
	require.NoError(t, err)

	assert.True(t, result.Succeeded)
	assert.Empty(t, result.ErrorDetail)
	assert.Equal(t, 3, result.TotalPages)
	assert.Equal(t, []string{"x_001.jpeg", "x_002.jpeg", "x_003.jpeg"}, listDir(t, outDir))

	require.Len(t, result.SavedFiles, 3)
	for i, f := range result.SavedFiles {
		assert.Equal(t, fmt.Sprintf("x_%03d.jpeg", i+1), f.Filename)
		info, err := os.Stat(filepath.Join(outDir, f.Filename))
		require.NoError(t, err)
		assert.Equal(t, info.Size(), f.SizeBytes)
	}
	assert.Equal(t, result.SavedFiles[0].SizeBytes*3, result.TotalBytes())

	assert.Equal(t, pdfPath, rend.gotPath)
	assert.Equal(t, 150, rend.gotDPI)
	assert.True(t, rend.doc.closed, "render session must be closed")
	assert.Equal(t, []int{95, 95, 95}, enc.gotQuality)
	assert.Equal(t, []progress{{1, 3, "x_001.jpeg"}, {2, 3, "x_002.jpeg"}, {3, 3, "x_003.jpeg"}}, seen)
}

func TestConvertRerunIsIdempotent(t *testing.T) {
	pdfPath, outDir := setupPDF(t)
	req := types.NewConversionRequest(pdfPath, outDir)

	// A previous, longer run left page_004 behind; unrelated files must survive.
	require.NoError(t, os.MkdirAll(outDir, 0o755))
	for _, name := range []string{"page_004.png", "page_001.tiff", "notes.txt", "cover_001.png", "page_1.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(outDir, name), []byte("old"), 0o644))
	}

	p := NewPipeline(&fakeRenderer{pages: 2}, &fakeEncoder{})
	first, err := p.Convert(req)
	require.NoError(t, err)
	afterFirst := listDir(t, outDir)

	second, err := p.Convert(req)
	require.NoError(t, err)

	assert.Equal(t, []string{"cover_001.png", "notes.txt", "page_001.png", "page_002.png", "page_1.png"}, afterFirst)
	assert.Equal(t, afterFirst, listDir(t, outDir))
	assert.Equal(t, first.SavedFiles, second.SavedFiles)
}

func TestConvertKeepExisting(t *testing.T) {
	pdfPath, outDir := setupPDF(t)
	require.NoError(t, os.MkdirAll(outDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "page_009.png"), []byte("old"), 0o644))

	p := NewPipeline(&fakeRenderer{pages: 1}, &fakeEncoder{}, WithKeepExisting())
	_, err := p.Convert(types.NewConversionRequest(pdfPath, outDir))
	require.NoError(t, err)

	assert.Equal(t, []string{"page_001.png", "page_009.png"}, listDir(t, outDir))
}

func TestConvertSourceNotFound(t *testing.T) {
	tmp := t.TempDir()
	outDir := filepath.Join(tmp, "out")
	rend := &fakeRenderer{pages: 3}

	result, err := NewPipeline(rend, &fakeEncoder{}).Convert(
		types.NewConversionRequest(filepath.Join(tmp, "missing.pdf"), outDir))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceNotFound)
	assert.False(t, result.Succeeded)
	assert.Contains(t, result.ErrorDetail, "missing.pdf")
	assert.Zero(t, rend.calls)
	_, statErr := os.Stat(outDir)
	assert.True(t, os.IsNotExist(statErr), "output directory must not be created")
}

func TestConvertUnsupportedFormat(t *testing.T) {
	pdfPath, outDir := setupPDF(t)
	req := types.NewConversionRequest(pdfPath, outDir)
	req.ImageFormat = "GIF"
	rend := &fakeRenderer{pages: 3}

	result, err := NewPipeline(rend, &fakeEncoder{}).Convert(req)

	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.False(t, result.Succeeded)
	assert.Zero(t, rend.calls, "renderer must not be called")
}

func TestConvertInvalidRequest(t *testing.T) {
	pdfPath, outDir := setupPDF(t)

	tests := []struct {
		name   string
		mutate func(*types.ConversionRequest)
	}{
		{"zero dpi", func(r *types.ConversionRequest) { r.ResolutionDPI = 0 }},
		{"negative dpi", func(r *types.ConversionRequest) { r.ResolutionDPI = -72 }},
		{"quality above range", func(r *types.ConversionRequest) { r.QualityForJPEG = 101 }},
		{"empty prefix", func(r *types.ConversionRequest) { r.FilenamePrefix = "" }},
		{"prefix with separator", func(r *types.ConversionRequest) { r.FilenamePrefix = "../page" }},
		{"no output dir", func(r *types.ConversionRequest) { r.OutputDirectory = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := types.NewConversionRequest(pdfPath, outDir)
			tt.mutate(&req)
			rend := &fakeRenderer{pages: 1}

			_, err := NewPipeline(rend, &fakeEncoder{}).Convert(req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.Zero(t, rend.calls)
		})
	}
}

func TestConvertEmptyDocument(t *testing.T) {
	pdfPath, outDir := setupPDF(t)
	require.NoError(t, os.MkdirAll(outDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "page_001.png"), []byte("stale"), 0o644))
	rend := &fakeRenderer{pages: 0}

	result, err := NewPipeline(rend, &fakeEncoder{}).Convert(types.NewConversionRequest(pdfPath, outDir))

	assert.ErrorIs(t, err, ErrEmptyDocument)
	var renderErr *RenderError
	assert.False(t, errors.As(err, &renderErr), "empty document is not a render error")
	assert.False(t, result.Succeeded)
	assert.Empty(t, listDir(t, outDir), "no image files may remain")
	assert.True(t, rend.doc.closed)
}

func TestConvertEncodeFailureAborts(t *testing.T) {
	pdfPath, outDir := setupPDF(t)
	enc := &fakeEncoder{failOn: 2}
	rend := &fakeRenderer{pages: 3}
	var progressed []int

	result, err := NewPipeline(rend, enc, WithProgress(func(c, _ int, _ string) {
		progressed = append(progressed, c)
	})).Convert(types.NewConversionRequest(pdfPath, outDir))

	var encErr *EncodeError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, 2, encErr.Page)
	assert.Equal(t, "page_002.png", encErr.Filename)

	assert.False(t, result.Succeeded)
	assert.Contains(t, result.ErrorDetail, "page 2")
	assert.Empty(t, result.SavedFiles)
	assert.Zero(t, result.TotalPages)

	assert.Equal(t, 2, enc.calls, "page 3 must not be attempted")
	assert.Equal(t, []int{1}, progressed)
	assert.Empty(t, listDir(t, outDir), "no partial page set may remain")
	assert.True(t, rend.doc.closed, "render session must be closed on failure")
}

func TestConvertRenderFailures(t *testing.T) {
	pdfPath, outDir := setupPDF(t)

	tests := []struct {
		name        string
		renderer    *fakeRenderer
		wantPage    int
		wantMissing bool
	}{
		{
			name:        "native tool missing",
			renderer:    &fakeRenderer{openErr: fmt.Errorf("%w: pdftoppm not found on PATH", render.ErrMissingDependency)},
			wantMissing: true,
		},
		{
			name:     "corrupt document",
			renderer: &fakeRenderer{openErr: errors.New("pdftoppm failed: exit status 1: Syntax Error")},
		},
		{
			name:     "page fails mid-document",
			renderer: &fakeRenderer{pages: 3, pageErr: map[int]error{1: errors.New("bad content stream")}},
			wantPage: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NewPipeline(tt.renderer, &fakeEncoder{}).Convert(types.NewConversionRequest(pdfPath, outDir))

			var renderErr *RenderError
			require.ErrorAs(t, err, &renderErr)
			assert.Equal(t, tt.wantPage, renderErr.Page)
			assert.Equal(t, tt.wantMissing, renderErr.MissingDependency())
			assert.Equal(t, tt.wantMissing, RemediationHint(err) != "")
			assert.False(t, result.Succeeded)
			assert.Empty(t, listDir(t, outDir))
		})
	}
}

func TestConvertOutputNotWritable(t *testing.T) {
	pdfPath, _ := setupPDF(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	rend := &fakeRenderer{pages: 1}
	_, err := NewPipeline(rend, &fakeEncoder{}).Convert(
		types.NewConversionRequest(pdfPath, filepath.Join(blocker, "images")))

	var outErr *OutputWriteError
	require.ErrorAs(t, err, &outErr)
	assert.Equal(t, "creating", outErr.Op)
	assert.Zero(t, rend.calls)
}

func TestOutputPattern(t *testing.T) {
	pattern := OutputPattern("lot.v2")
	tests := map[string]bool{
		"lot.v2_001.png":     true,
		"lot.v2_120.jpeg":    true,
		"lot.v2_1000.tiff":   true,
		"lot.v2_01.png":      false,
		"lot.v2_001.jpg":     false,
		"lotXv2_001.png":     false,
		"lot.v2_001.png.bak": false,
		"other_001.png":      false,
	}
	for name, want := range tests {
		assert.Equal(t, want, pattern.MatchString(name), name)
	}
}

func TestRequestPageFilename(t *testing.T) {
	req := types.NewConversionRequest("a.pdf", "out")
	assert.Equal(t, "page_001.png", req.PageFilename(1))
	req.ImageFormat = types.FormatTIFF
	req.FilenamePrefix = "auction_page"
	assert.Equal(t, "auction_page_042.tiff", req.PageFilename(42))
	assert.Equal(t, "auction_page_1234.tiff", req.PageFilename(1234))
}
