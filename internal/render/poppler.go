// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/pdiddy/pdf2pages/internal/logging"
	"github.com/pdiddy/pdf2pages/pkg/types"
)

const (
	binPdftoppm  = "pdftoppm"
	renderedRoot = "page"
)

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	CombinedOutput(name string, args ...string) ([]byte, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) CombinedOutput(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

var defaultExec = &osExecutor{}

// PopplerRenderer rasterizes documents by running pdftoppm once per
// document into a private temp directory and decoding the PNG pages it
// leaves behind.
type PopplerRenderer struct {
	bin     string
	exec    executor
	tempDir string // parent of session dirs; empty means os.TempDir
}

// NewPopplerRenderer locates pdftoppm and returns a renderer that uses it.
// When binDir is set only that directory is considered. Otherwise each of
// searchDirs is tried in order, then PATH. The error wraps
// ErrMissingDependency when pdftoppm cannot be found.
func NewPopplerRenderer(binDir string, searchDirs []string) (*PopplerRenderer, error) {
	return newPopplerRenderer(defaultExec, binDir, searchDirs)
}

func newPopplerRenderer(exec executor, binDir string, searchDirs []string) (*PopplerRenderer, error) {
	bin, err := locatePdftoppm(exec, binDir, searchDirs)
	if err != nil {
		return nil, err
	}
	logging.Debug("using pdftoppm", "path", bin)
	return &PopplerRenderer{bin: bin, exec: exec}, nil
}

// PdftoppmName is the pdftoppm executable name on this platform.
func PdftoppmName() string {
	if runtime.GOOS == "windows" {
		return binPdftoppm + ".exe"
	}
	return binPdftoppm
}

func locatePdftoppm(exec executor, binDir string, searchDirs []string) (string, error) {
	if binDir != "" {
		candidate := filepath.Join(binDir, PdftoppmName())
		if isFile(candidate) {
			return candidate, nil
		}
		return "", fmt.Errorf("%w: %s not found in %s", ErrMissingDependency, PdftoppmName(), binDir)
	}

	for _, dir := range searchDirs {
		candidate := filepath.Join(dir, PdftoppmName())
		if isFile(candidate) {
			return candidate, nil
		}
	}

	path, err := exec.LookPath(binPdftoppm)
	if err != nil {
		return "", fmt.Errorf("%w: %s not found on PATH (%w)", ErrMissingDependency, binPdftoppm, err)
	}
	return path, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (r *PopplerRenderer) Name() string { return string(types.RendererPoppler) }

// Open runs pdftoppm over the whole document. The rendered pages stay on disk
// in a session directory until the Document is closed.
func (r *PopplerRenderer) Open(path string, dpi int) (Document, error) {
	dir, err := os.MkdirTemp(r.tempDir, "pdf2pages-render-*")
	if err != nil {
		return nil, fmt.Errorf("creating render directory: %w", err)
	}

	args := []string{"-r", strconv.Itoa(dpi), "-png", path, filepath.Join(dir, renderedRoot)}
	out, err := r.exec.CombinedOutput(r.bin, args...)
	if err != nil {
		os.RemoveAll(dir)
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: running %s: %w", ErrMissingDependency, r.bin, err)
		}
		return nil, fmt.Errorf("pdftoppm failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	pages, err := collectPages(dir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	if n, err := CountPages(path); err == nil && n != len(pages) {
		logging.Warn("pdftoppm page count differs from document structure",
			"rendered", len(pages), "declared", n, "source", path)
	}

	return &popplerDocument{dir: dir, pages: pages}, nil
}

// Close is a no-op; each Document owns its own session directory.
func (r *PopplerRenderer) Close() error { return nil }

// collectPages returns the PNG files pdftoppm wrote into dir, ordered by
// page number. pdftoppm zero-pads the number to the width of the page
// count, so names are sorted numerically rather than lexically.
func collectPages(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, renderedRoot+"-*.png"))
	if err != nil {
		return nil, fmt.Errorf("listing rendered pages: %w", err)
	}

	type numbered struct {
		n    int
		path string
	}
	pages := make([]numbered, 0, len(matches))
	for _, m := range matches {
		base := strings.TrimSuffix(filepath.Base(m), ".png")
		num, err := strconv.Atoi(base[strings.LastIndex(base, "-")+1:])
		if err != nil {
			continue
		}
		pages = append(pages, numbered{n: num, path: m})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].n < pages[j].n })

	paths := make([]string, len(pages))
	for i, p := range pages {
		paths[i] = p.path
	}
	return paths, nil
}

type popplerDocument struct {
	dir   string
	pages []string
}

func (d *popplerDocument) NumPages() int { return len(d.pages) }

func (d *popplerDocument) Page(index int) (image.Image, error) {
	if index < 0 || index >= len(d.pages) {
		return nil, fmt.Errorf("page index %d out of range [0,%d)", index, len(d.pages))
	}
	img, err := imaging.Open(d.pages[index])
	if err != nil {
		return nil, fmt.Errorf("decoding rendered page %d: %w", index+1, err)
	}
	return img, nil
}

func (d *popplerDocument) Close() error {
	if d.dir == "" {
		return nil
	}
	err := os.RemoveAll(d.dir)
	d.dir = ""
	d.pages = nil
	return err
}
