package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// discoverPDF returns the only PDF in dir. It fails when dir holds no PDF
// or more than one.
func discoverPDF(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("looking for a PDF in %s: %w", dir, err)
	}

	var found []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			found = append(found, filepath.Join(dir, e.Name()))
		}
	}

	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return "", fmt.Errorf("no PDF found in %s; pass the path to convert", dir)
	default:
		return "", fmt.Errorf("found %d PDFs in %s; pass the one to convert", len(found), dir)
	}
}

// defaultOutputDir places images beside the source: report.pdf -> report_images.
func defaultOutputDir(source string) string {
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if stem == "" || stem == "." {
		stem = "pdf"
	}
	return filepath.Join(filepath.Dir(source), stem+"_images")
}
