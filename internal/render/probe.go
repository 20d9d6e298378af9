// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// CountPages reads the page count from the PDF's page tree without
// rasterizing anything. It is a cross-check only: damaged or encrypted files
// that a renderer can still handle may fail here.
func CountPages(path string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("reading page tree of %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("reading page tree of %s: %w", path, err)
	}
	defer f.Close()

	return r.NumPage(), nil
}
