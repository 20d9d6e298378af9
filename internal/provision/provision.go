// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provision installs a private copy of poppler next to the project
// so the poppler renderer can find pdftoppm without a system-wide install.
// The layout it produces is <dir>/poppler/{bin,Library/bin}/pdftoppm.
package provision

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/pdiddy/pdf2pages/internal/httputil"
	"github.com/pdiddy/pdf2pages/internal/logging"
	"github.com/pdiddy/pdf2pages/internal/render"
	"github.com/pdiddy/pdf2pages/pkg/types"
)

// DefaultReleaseURL is a prebuilt Windows poppler release.
const DefaultReleaseURL = "https://github.com/oschwartz10612/poppler-windows/releases/download/v23.08.0-0/Release-23.08.0-0.zip"

const popplerDir = "poppler"

// ErrUnsupportedPlatform is returned when the default release does not
// match the running OS.
var ErrUnsupportedPlatform = errors.New("prebuilt poppler releases are only available for Windows")

// SearchDirs returns the directories under baseDir where an installed
// poppler keeps pdftoppm, in lookup order.
func SearchDirs(baseDir string) []string {
	return []string{
		filepath.Join(baseDir, popplerDir, "bin"),
		filepath.Join(baseDir, popplerDir, "Library", "bin"),
	}
}

// Locate returns the directory holding pdftoppm under baseDir, if any.
func Locate(baseDir string) (string, bool) {
	for _, dir := range SearchDirs(baseDir) {
		info, err := os.Stat(filepath.Join(dir, render.PdftoppmName()))
		if err == nil && info.Mode().IsRegular() {
			return dir, true
		}
	}
	return "", false
}

// Installer downloads and unpacks a poppler release.
type Installer struct {
	client *http.Client
	cfg    types.ProvisionConfig
	w      io.Writer
	goos   string
}

// NewInstaller returns an Installer that reports progress to w.
func NewInstaller(client *http.Client, cfg types.ProvisionConfig, w io.Writer) *Installer {
	if cfg.ReleaseURL == "" {
		cfg.ReleaseURL = DefaultReleaseURL
	}
	if cfg.InstallDir == "" {
		cfg.InstallDir = "."
	}
	return &Installer{client: client, cfg: cfg, w: w, goos: runtime.GOOS}
}

// Install makes sure poppler is present under the install directory and
// returns the directory containing pdftoppm. An existing install is reused.
func (in *Installer) Install(ctx context.Context) (string, error) {
	if dir, ok := Locate(in.cfg.InstallDir); ok {
		fmt.Fprintf(in.w, "poppler already installed: %s\n", dir)
		return dir, nil
	}
	if in.cfg.ReleaseURL == DefaultReleaseURL && in.goos != "windows" {
		return "", fmt.Errorf("%w; install poppler-utils with your package manager or pass --url", ErrUnsupportedPlatform)
	}

	if err := os.MkdirAll(in.cfg.InstallDir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", in.cfg.InstallDir, err)
	}
	tmp, err := os.MkdirTemp(in.cfg.InstallDir, ".poppler-download-*")
	if err != nil {
		return "", fmt.Errorf("creating download directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	archive := filepath.Join(tmp, "poppler.zip")
	fmt.Fprintf(in.w, "downloading: %s\n", in.cfg.ReleaseURL)
	if err := in.download(ctx, archive); err != nil {
		return "", err
	}

	fmt.Fprintln(in.w, "extracting archive")
	extracted := filepath.Join(tmp, "extracted")
	if err := extractZip(archive, extracted); err != nil {
		return "", err
	}

	root, err := findPopplerRoot(extracted)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(in.cfg.InstallDir, popplerDir)
	if err := os.RemoveAll(dest); err != nil {
		return "", fmt.Errorf("removing old %s: %w", dest, err)
	}
	if err := os.Rename(root, dest); err != nil {
		return "", fmt.Errorf("moving poppler into place: %w", err)
	}

	dir, ok := Locate(in.cfg.InstallDir)
	if !ok {
		return "", fmt.Errorf("%s not found in %s after installation", render.PdftoppmName(), dest)
	}
	fmt.Fprintf(in.w, "poppler installed: %s\n", dir)
	logging.Info("poppler installed", "dir", dir, "url", in.cfg.ReleaseURL)
	return dir, nil
}

func (in *Installer) download(ctx context.Context, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, in.cfg.ReleaseURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", in.cfg.UserAgent)
	}
	if in.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+in.cfg.Token)
	}

	resp, err := httputil.DoWithRetry(ctx, in.client, req, in.cfg.MaxRetries)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", in.cfg.ReleaseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, in.cfg.ReleaseURL)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	progress := &progressWriter{w: in.w, total: resp.ContentLength}
	_, copyErr := io.Copy(f, io.TeeReader(resp.Body, progress))
	closeErr := f.Close()
	if copyErr != nil {
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing download: %w", closeErr)
	}
	fmt.Fprintf(in.w, "downloaded %.1f MB\n", float64(progress.done)/(1<<20))
	return nil
}

// progressWriter prints a line each time another tenth of a download of
// known length has arrived.
type progressWriter struct {
	w     io.Writer
	total int64
	done  int64
	step  int64
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.done += int64(len(b))
	if p.total > 0 {
		if step := p.done * 10 / p.total; step > p.step {
			p.step = step
			fmt.Fprintf(p.w, "  %3d%%\n", step*10)
		}
	}
	return len(b), nil
}

// extractZip unpacks archive into dest, refusing entries that would land
// outside dest.
func extractZip(archive, dest string) error {
	zr, err := zip.OpenReader(archive)
	if errors.Is(err, zip.ErrInsecurePath) {
		zr.Close()
		return fmt.Errorf("archive entry escapes extraction directory: %w", err)
	}
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer zr.Close()

	root := filepath.Clean(dest) + string(os.PathSeparator)
	for _, f := range zr.File {
		target := filepath.Join(dest, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(target+string(os.PathSeparator), root) {
			return fmt.Errorf("archive entry %q escapes extraction directory", f.Name)
		}

		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", target, err)
			}
		case mode.IsRegular():
			if err := extractFile(f, target); err != nil {
				return err
			}
		default:
			logging.Debug("skipping non-regular archive entry", "name", f.Name)
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("reading %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode().Perm()|0o600)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	_, copyErr := io.Copy(out, rc)
	closeErr := out.Close()
	if copyErr != nil {
		return fmt.Errorf("extracting %s: %w", f.Name, copyErr)
	}
	return closeErr
}

// findPopplerRoot returns the directory to install: the first top-level
// directory whose name starts with "poppler", or dir itself when the archive
// has bin/ or Library/ at its root.
func findPopplerRoot(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading extracted archive: %w", err)
	}

	var candidates []string
	flat := false
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		switch {
		case strings.HasPrefix(strings.ToLower(name), popplerDir):
			candidates = append(candidates, name)
		case name == "bin" || name == "Library":
			flat = true
		}
	}
	if len(candidates) > 0 {
		sort.Strings(candidates)
		return filepath.Join(dir, candidates[0]), nil
	}
	if flat {
		return dir, nil
	}
	return "", errors.New("no poppler directory found in archive")
}
