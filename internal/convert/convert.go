// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns one PDF into a directory of page images. The
// Pipeline validates a request, prepares the output directory, opens a
// render session, encodes every page in order and reports what it wrote.
// Any failure aborts the run; no partial result is reported.
package convert

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pdf2pages/internal/logging"
	"github.com/pdiddy/pdf2pages/internal/render"
	"github.com/pdiddy/pdf2pages/pkg/types"
)

// Renderer opens a render session over a PDF. render.Renderer satisfies it.
type Renderer interface {
	Open(path string, dpi int) (render.Document, error)
}

// Encoder serializes one page image. encode.ImageEncoder satisfies it.
type Encoder interface {
	Encode(w io.Writer, img image.Image, format types.ImageFormat, quality int) error
}

// ProgressFunc is called after each page is written with the 1-based page
// index, the page total and the filename. It cannot influence the run.
type ProgressFunc func(current, total int, filename string)

// Pipeline converts PDFs with an injected renderer and encoder. A Pipeline
// holds no per-run state; concurrent runs must not share an output directory.
type Pipeline struct {
	renderer Renderer
	encoder  Encoder
	progress ProgressFunc
	refresh  bool
	log      zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithProgress installs a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// WithKeepExisting disables removal of earlier page images before a run.
func WithKeepExisting() Option {
	return func(p *Pipeline) { p.refresh = false }
}

// WithLogger replaces the process logger for this pipeline.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// NewPipeline returns a Pipeline using r and e.
func NewPipeline(r Renderer, e Encoder, opts ...Option) *Pipeline {
	p := &Pipeline{
		renderer: r,
		encoder:  e,
		progress: func(int, int, string) {},
		refresh:  true,
		log:      logging.Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Convert runs the whole pipeline for req. On success the result lists every
// file written, in page order. On failure the returned result has
// Succeeded false and ErrorDetail set, and err is one of ErrSourceNotFound,
// ErrUnsupportedFormat, ErrInvalidRequest, ErrEmptyDocument (matched with
// errors.Is) or a *RenderError, *EncodeError or *OutputWriteError.
func (p *Pipeline) Convert(req types.ConversionRequest) (types.ConversionResult, error) {
	start := time.Now()
	files, err := p.run(req)
	elapsed := time.Since(start)
	if err != nil {
		p.log.Debug().Err(err).Str("source", req.SourcePath).Msg("conversion failed")
		return types.ConversionResult{ErrorDetail: err.Error(), Elapsed: elapsed}, err
	}

	p.log.Info().
		Str("source", req.SourcePath).
		Str("output", req.OutputDirectory).
		Int("pages", len(files)).
		Dur("elapsed", elapsed).
		Msg("conversion complete")
	return types.ConversionResult{
		TotalPages: len(files),
		SavedFiles: files,
		Succeeded:  true,
		Elapsed:    elapsed,
	}, nil
}

func (p *Pipeline) run(req types.ConversionRequest) ([]types.SavedFile, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	if err := p.prepareOutput(req); err != nil {
		return nil, err
	}

	p.log.Debug().Str("source", req.SourcePath).Int("dpi", req.ResolutionDPI).Msg("rendering")
	doc, err := p.renderer.Open(req.SourcePath, req.ResolutionDPI)
	if err != nil {
		return nil, &RenderError{Path: req.SourcePath, Err: err}
	}
	defer func() {
		if err := doc.Close(); err != nil {
			p.log.Warn().Err(err).Msg("closing render session")
		}
	}()

	total := doc.NumPages()
	if total == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, req.SourcePath)
	}
	p.log.Debug().Int("pages", total).Msg("document opened")

	written := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		name, err := p.convertPage(doc, req, i)
		if err != nil {
			removeAll(written)
			return nil, err
		}
		written = append(written, filepath.Join(req.OutputDirectory, name))
		p.progress(i, total, name)
	}

	return summarize(req.OutputDirectory, written)
}

// convertPage renders and writes the 1-based page index. The page image is
// released when this returns.
func (p *Pipeline) convertPage(doc render.Document, req types.ConversionRequest, index int) (string, error) {
	img, err := doc.Page(index - 1)
	if err != nil {
		return "", &RenderError{Path: req.SourcePath, Page: index, Err: err}
	}

	name := req.PageFilename(index)
	if err := p.writePage(filepath.Join(req.OutputDirectory, name), img, req); err != nil {
		return "", &EncodeError{Page: index, Filename: name, Err: err}
	}
	p.log.Debug().Int("page", index).Str("file", name).Msg("page saved")
	return name, nil
}

// writePage encodes into a temp file beside dest and renames it into place,
// so dest is either complete or absent.
func (p *Pipeline) writePage(dest string, img image.Image, req types.ConversionRequest) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".pdf2pages-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	encErr := p.encoder.Encode(tmp, img, req.ImageFormat, req.QualityForJPEG)
	closeErr := tmp.Close()
	if encErr != nil {
		os.Remove(tmpPath)
		return encErr
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Validate checks req without touching the output directory.
func Validate(req types.ConversionRequest) error {
	if err := checkSource(req.SourcePath); err != nil {
		return err
	}
	if !req.ImageFormat.Valid() {
		return fmt.Errorf("%w: %q (want one of PNG, JPEG, TIFF)", ErrUnsupportedFormat, req.ImageFormat)
	}
	if req.ResolutionDPI <= 0 {
		return fmt.Errorf("%w: dpi must be positive, got %d", ErrInvalidRequest, req.ResolutionDPI)
	}
	if req.QualityForJPEG < 0 || req.QualityForJPEG > 100 {
		return fmt.Errorf("%w: jpeg quality must be in [0,100], got %d", ErrInvalidRequest, req.QualityForJPEG)
	}
	if req.FilenamePrefix == "" || strings.ContainsAny(req.FilenamePrefix, `/\`) {
		return fmt.Errorf("%w: prefix %q must be a non-empty plain name", ErrInvalidRequest, req.FilenamePrefix)
	}
	if req.OutputDirectory == "" {
		return fmt.Errorf("%w: output directory is required", ErrInvalidRequest)
	}
	return nil
}

func checkSource(path string) error {
	if path == "" {
		return fmt.Errorf("%w: no path given", ErrSourceNotFound)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSourceNotFound, path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSourceNotFound, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrSourceNotFound, path)
	}
	return nil
}

// prepareOutput creates the output directory and, unless disabled, removes
// page images left by an earlier run with the same prefix.
func (p *Pipeline) prepareOutput(req types.ConversionRequest) error {
	dir := req.OutputDirectory
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &OutputWriteError{Dir: dir, Op: "creating", Err: err}
	}
	if !p.refresh {
		return nil
	}

	removed, err := ClearPrevious(dir, req.FilenamePrefix)
	if err != nil {
		return &OutputWriteError{Dir: dir, Op: "clearing", Err: err}
	}
	if removed > 0 {
		p.log.Info().Int("files", removed).Str("dir", dir).Msg("cleared previous output")
	}
	return nil
}

// OutputPattern matches the files a run with prefix produces, in any
// supported format.
func OutputPattern(prefix string) *regexp.Regexp {
	exts := make([]string, len(types.SupportedFormats))
	for i, f := range types.SupportedFormats {
		exts[i] = f.Extension()
	}
	return regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `_\d{3,}\.(` + strings.Join(exts, "|") + `)$`)
}

// ClearPrevious removes regular files in dir matching OutputPattern(prefix)
// and returns how many were removed. Other files are left alone.
func ClearPrevious(dir, prefix string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	pattern := OutputPattern(prefix)
	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() || !pattern.MatchString(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// summarize stats every written file in order.
func summarize(dir string, paths []string) ([]types.SavedFile, error) {
	files := make([]types.SavedFile, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			removeAll(paths)
			return nil, &OutputWriteError{Dir: dir, Op: "inspecting", Err: err}
		}
		files = append(files, types.SavedFile{Filename: filepath.Base(path), SizeBytes: info.Size()})
	}
	return files, nil
}

// removeAll deletes files written by a failed run so a failure never leaves
// a partial page set behind.
func removeAll(paths []string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.Warn("removing partial output", "file", path, "error", err.Error())
		}
	}
}
