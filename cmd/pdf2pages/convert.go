package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pdf2pages/internal/convert"
	"github.com/pdiddy/pdf2pages/internal/encode"
	"github.com/pdiddy/pdf2pages/internal/history"
	"github.com/pdiddy/pdf2pages/internal/logging"
	"github.com/pdiddy/pdf2pages/internal/provision"
	"github.com/pdiddy/pdf2pages/internal/render"
	"github.com/pdiddy/pdf2pages/pkg/types"
)

// newRenderer builds the configured renderer. Tests replace it.
var newRenderer = render.New

var convertCmd = &cobra.Command{
	Use:   "convert [file.pdf]",
	Short: "Convert every page of a PDF into an image file",
	Long: `Convert rasterizes each page of a PDF at the requested DPI and writes
{prefix}_{NNN}.{ext} into the output directory, one file per page.

Earlier page images with the same prefix are removed first so a re-run
leaves exactly one consistent set; use --keep-existing to skip that.
Without a path, the single PDF in the current directory is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConvert,
}

func init() {
	f := convertCmd.Flags()
	f.StringP("output", "o", "", "output directory (default: <pdf dir>/<pdf name>_images)")
	f.Int("dpi", types.DefaultDPI, "render resolution in dots per inch")
	f.String("format", string(types.FormatPNG), "image format: PNG, JPEG, or TIFF")
	f.String("prefix", types.DefaultPrefix, "output filename prefix")
	f.Int("quality", types.DefaultJPEGQuality, "JPEG quality (0-100)")
	f.String("renderer", string(types.RendererPoppler), "rendering backend: poppler, mupdf, pdfium, or container")
	f.String("poppler-path", "", "directory containing pdftoppm (default: ./poppler/bin, then PATH)")
	f.String("container-image", render.DefaultContainerImage, "image with pdftoppm for --renderer container")
	f.Bool("keep-existing", false, "do not remove earlier page images before converting")
	f.String("report", string(types.ReportText), "result report: text or yaml")
	f.BoolP("interactive", "i", false, "prompt for the PDF path and settings")

	bindFlags(f, "output", "dpi", "format", "prefix", "quality", "renderer", "poppler-path", "container-image", "keep-existing", "report")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg := types.ConversionConfig{
		Renderer:       types.RendererBackend(viper.GetString("renderer")),
		PopplerPath:    viper.GetString("poppler-path"),
		ContainerImage: viper.GetString("container-image"),
		KeepExisting:   viper.GetBool("keep-existing"),
		HistoryDB:      viper.GetString("history-db"),
		Report:         types.ReportFormat(viper.GetString("report")),
	}
	if cfg.Report != types.ReportText && cfg.Report != types.ReportYAML {
		return fmt.Errorf("unknown report format %q (want text or yaml)", cfg.Report)
	}

	interactive, _ := cmd.Flags().GetBool("interactive")
	req, err := buildRequest(args, interactive, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return err
	}

	status := cmd.OutOrStdout()
	if cfg.Report == types.ReportYAML {
		status = cmd.ErrOrStderr()
	}
	_, err = executeConversion(cmd.Context(), cfg, req, status, cmd.OutOrStdout())
	return err
}

// buildRequest turns flags, config and optional prompts into one request.
func buildRequest(args []string, interactive bool, in io.Reader, out io.Writer) (types.ConversionRequest, error) {
	var source string
	if len(args) == 1 {
		source = args[0]
	} else if found, err := discoverPDF("."); err == nil {
		source = found
	} else if !interactive {
		return types.ConversionRequest{}, err
	}

	format, _ := types.ParseImageFormat(viper.GetString("format"))
	req := types.ConversionRequest{
		SourcePath:      source,
		OutputDirectory: viper.GetString("output"),
		ResolutionDPI:   viper.GetInt("dpi"),
		ImageFormat:     format,
		FilenamePrefix:  viper.GetString("prefix"),
		QualityForJPEG:  viper.GetInt("quality"),
	}

	if interactive {
		var err error
		if req, err = promptRequest(in, out, req); err != nil {
			return types.ConversionRequest{}, err
		}
	}
	if req.OutputDirectory == "" {
		req.OutputDirectory = defaultOutputDir(req.SourcePath)
	}
	return req, nil
}

// executeConversion validates req, builds the renderer, runs the pipeline,
// records history and writes the report. status receives the plan and per-page progress.
func executeConversion(ctx context.Context, cfg types.ConversionConfig, req types.ConversionRequest, status, report io.Writer) (types.ConversionResult, error) {
	if err := convert.Validate(req); err != nil {
		result := types.ConversionResult{ErrorDetail: err.Error()}
		recordHistory(ctx, cfg.HistoryDB, req, result)
		return result, err
	}

	rend, err := newRenderer(cfg.Renderer, render.Options{
		PopplerPath:    cfg.PopplerPath,
		SearchDirs:     popplerSearchDirs(),
		ContainerImage: cfg.ContainerImage,
	})
	if err != nil {
		err = &convert.RenderError{Path: req.SourcePath, Err: err}
		result := types.ConversionResult{ErrorDetail: err.Error()}
		recordHistory(ctx, cfg.HistoryDB, req, result)
		return result, err
	}
	defer rend.Close()

	printPlan(status, req, rend.Name())

	opts := []convert.Option{convert.WithProgress(progressPrinter(status))}
	if cfg.KeepExisting {
		opts = append(opts, convert.WithKeepExisting())
	}
	result, convErr := convert.NewPipeline(rend, encode.New(), opts...).Convert(req)

	recordHistory(ctx, cfg.HistoryDB, req, result)

	if cfg.Report == types.ReportYAML || convErr == nil {
		if err := writeReport(report, cfg.Report, req, result); err != nil {
			return result, err
		}
	}
	return result, convErr
}

// popplerSearchDirs lists local poppler installs next to the working
// directory and next to the executable.
func popplerSearchDirs() []string {
	var dirs []string
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, provision.SearchDirs(wd)...)
	}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, provision.SearchDirs(filepath.Dir(exe))...)
	}
	return dirs
}

// recordHistory stores the run when a history database is configured.
// History is best effort and never fails a conversion.
func recordHistory(ctx context.Context, path string, req types.ConversionRequest, result types.ConversionResult) {
	if path == "" {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := history.Open(path)
	if err != nil {
		logging.Warn("history unavailable", "path", path, "error", err.Error())
		return
	}
	defer store.Close()

	if _, err := store.Record(ctx, req, result, time.Now()); err != nil {
		logging.Warn("recording history", "path", path, "error", err.Error())
	}
}
