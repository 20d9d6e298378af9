package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pdiddy/pdf2pages/pkg/types"
)

var errAborted = errors.New("conversion cancelled")

// promptRequest asks for the PDF path when it is unknown, offers the
// current settings, and lets the user change each one. Empty answers keep
// the shown default.
func promptRequest(in io.Reader, out io.Writer, req types.ConversionRequest) (types.ConversionRequest, error) {
	sc := bufio.NewScanner(in)
	ask := func(question string) (string, error) {
		fmt.Fprint(out, question)
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", errAborted
		}
		return strings.TrimSpace(sc.Text()), nil
	}

	for req.SourcePath == "" {
		answer, err := ask("PDF file to convert: ")
		if err != nil {
			return req, err
		}
		req.SourcePath = strings.Trim(answer, `"'`)
	}
	if req.OutputDirectory == "" {
		req.OutputDirectory = defaultOutputDir(req.SourcePath)
	}

	fmt.Fprintln(out, "Current settings:")
	fmt.Fprintf(out, "  output: %s\n  dpi:    %d\n  format: %s\n  prefix: %s\n",
		req.OutputDirectory, req.ResolutionDPI, req.ImageFormat, req.FilenamePrefix)

	answer, err := ask("Change settings? [y/N]: ")
	if err != nil {
		return req, err
	}
	if !isYes(answer) {
		return confirm(ask, req)
	}

	if answer, err = ask(fmt.Sprintf("Output directory [%s]: ", req.OutputDirectory)); err != nil {
		return req, err
	} else if answer != "" {
		req.OutputDirectory = answer
	}

	for {
		if answer, err = ask(fmt.Sprintf("DPI [%d]: ", req.ResolutionDPI)); err != nil {
			return req, err
		}
		if answer == "" {
			break
		}
		if dpi, convErr := strconv.Atoi(answer); convErr == nil && dpi > 0 {
			req.ResolutionDPI = dpi
			break
		}
		fmt.Fprintln(out, "  enter a positive whole number")
	}

	for {
		if answer, err = ask(fmt.Sprintf("Format (PNG/JPEG/TIFF) [%s]: ", req.ImageFormat)); err != nil {
			return req, err
		}
		if answer == "" {
			break
		}
		if f, ok := types.ParseImageFormat(answer); ok {
			req.ImageFormat = f
			break
		}
		fmt.Fprintln(out, "  choose PNG, JPEG or TIFF")
	}

	if answer, err = ask(fmt.Sprintf("Filename prefix [%s]: ", req.FilenamePrefix)); err != nil {
		return req, err
	} else if answer != "" {
		req.FilenamePrefix = answer
	}

	return confirm(ask, req)
}

func confirm(ask func(string) (string, error), req types.ConversionRequest) (types.ConversionRequest, error) {
	answer, err := ask("Start conversion? [Y/n]: ")
	if err != nil {
		return req, err
	}
	if answer != "" && !isYes(answer) {
		return req, errAborted
	}
	return req, nil
}

func isYes(s string) bool {
	switch strings.ToLower(s) {
	case "y", "yes":
		return true
	}
	return false
}
