// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/pdiddy/pdf2pages/internal/container"
	"github.com/pdiddy/pdf2pages/internal/logging"
	"github.com/pdiddy/pdf2pages/pkg/types"
)

// DefaultContainerImage is the image used when none is configured. Any image
// with pdftoppm on its PATH works.
const DefaultContainerImage = "minidocks/poppler"

const (
	containerIn  = "/in"
	containerOut = "/out"
)

// ContainerRenderer runs pdftoppm inside a docker or podman container, with
// the source directory mounted read-only and the session directory mounted
// for output. Pages are decoded the same way as PopplerRenderer.
type ContainerRenderer struct {
	rt      container.Runtime
	image   string
	tempDir string
}

// NewContainerRenderer detects a container runtime and checks that image is
// present locally. Both failures wrap ErrMissingDependency.
func NewContainerRenderer(image string) (*ContainerRenderer, error) {
	rt, err := container.DetectRuntime()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingDependency, err)
	}
	return newContainerRenderer(rt, image)
}

func newContainerRenderer(rt container.Runtime, image string) (*ContainerRenderer, error) {
	if image == "" {
		image = DefaultContainerImage
	}
	if err := rt.ImageExists(image); err != nil {
		return nil, fmt.Errorf("%w: %w (pull it with: %s pull %s)", ErrMissingDependency, err, rt.Name(), image)
	}
	logging.Debug("using container renderer", "runtime", rt.Name(), "image", image)
	return &ContainerRenderer{rt: rt, image: image}, nil
}

func (r *ContainerRenderer) Name() string { return string(types.RendererContainer) }

// Open renders the whole document in one container run.
func (r *ContainerRenderer) Open(path string, dpi int) (Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	dir, err := os.MkdirTemp(r.tempDir, "pdf2pages-render-*")
	if err != nil {
		return nil, fmt.Errorf("creating render directory: %w", err)
	}

	spec := container.RunSpec{
		Image:      r.image,
		Entrypoint: binPdftoppm,
		User:       hostUser(),
		Mounts: []container.Mount{
			{Source: filepath.Dir(abs), Target: containerIn, ReadOnly: true},
			{Source: dir, Target: containerOut},
		},
		Args: []string{
			"-r", strconv.Itoa(dpi), "-png",
			containerIn + "/" + filepath.Base(abs),
			containerOut + "/" + renderedRoot,
		},
	}
	if _, err := r.rt.Run(spec); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("pdftoppm failed: %w", err)
	}

	pages, err := collectPages(dir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return &popplerDocument{dir: dir, pages: pages}, nil
}

// Close is a no-op; each Document owns its own session directory.
func (r *ContainerRenderer) Close() error { return nil }

// hostUser maps container output to the invoking user so the session
// directory can be removed afterwards.
func hostUser() string {
	if runtime.GOOS == "windows" {
		return ""
	}
	return fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid())
}
