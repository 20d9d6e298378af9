package main

import (
	"fmt"
	"io"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pdf2pages/internal/convert"
	"github.com/pdiddy/pdf2pages/pkg/types"
)

const megabyte = 1 << 20

// progressPrinter reports each saved page as a percentage of the document.
func progressPrinter(w io.Writer) convert.ProgressFunc {
	return func(current, total int, filename string) {
		pct := 100 * float64(current) / float64(total)
		fmt.Fprintf(w, "[%5.1f%%] saved: %s\n", pct, filename)
	}
}

func printPlan(w io.Writer, req types.ConversionRequest, renderer string) {
	fmt.Fprintf(w, "Converting %s\n", req.SourcePath)
	fmt.Fprintf(w, "  output:   %s\n", req.OutputDirectory)
	fmt.Fprintf(w, "  format:   %s at %d DPI\n", req.ImageFormat, req.ResolutionDPI)
	fmt.Fprintf(w, "  renderer: %s\n", renderer)
}

// conversionReport is the YAML shape of a finished run.
type conversionReport struct {
	Request types.ConversionRequest `yaml:"request"`
	Result  types.ConversionResult  `yaml:"result"`
}

// writeReport prints the result summary: per-file sizes for text, the full
// request and result for yaml.
func writeReport(w io.Writer, format types.ReportFormat, req types.ConversionRequest, res types.ConversionResult) error {
	if format == types.ReportYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(conversionReport{Request: req, Result: res}); err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		return enc.Close()
	}

	fmt.Fprintf(w, "\nConverted %d pages in %s\n", res.TotalPages, res.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "Output directory: %s\n", req.OutputDirectory)
	for _, f := range res.SavedFiles {
		fmt.Fprintf(w, "  %s  %.2f MB\n", f.Filename, float64(f.SizeBytes)/megabyte)
	}
	fmt.Fprintf(w, "Total: %.2f MB\n", float64(res.TotalBytes())/megabyte)
	return nil
}
