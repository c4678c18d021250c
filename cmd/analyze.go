package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/JakeFAU/link-traffic-analyzer/internal/analysis"
	"github.com/JakeFAU/link-traffic-analyzer/internal/app"
	"github.com/JakeFAU/link-traffic-analyzer/internal/export"
	"github.com/JakeFAU/link-traffic-analyzer/internal/metrics"
)

type analyzeOptions struct {
	out     string
	format  string
	timeout time.Duration
}

type analyzeOutput struct {
	Results []analysis.Result `json:"results" yaml:"results"`
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze [urls...]",
		Short: "Analyze URLs from the command line",
		Long: `Runs the same batch analysis as POST /analyze. Results are printed
as JSON (or YAML with --format yaml) unless --out names an .xlsx or .pdf file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			return runAnalyze(cmd.Context(), appInstance, opts, args, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "write an .xlsx or .pdf report instead of JSON")
	cmd.Flags().StringVar(&opts.format, "format", "json", "stdout format: json or yaml")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall deadline for the batch")
	return cmd
}

// reportFormat maps an output path to "excel", "pdf", or "" for JSON.
func reportFormat(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return "excel", nil
	case ".pdf":
		return "pdf", nil
	default:
		return "", fmt.Errorf("unsupported report extension %q (want .xlsx or .pdf)", filepath.Ext(path))
	}
}

func runAnalyze(ctx context.Context, a *app.App, opts *analyzeOptions, urls []string, stdout io.Writer) error {
	format, err := reportFormat(opts.out)
	if err != nil {
		return err
	}
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	if format == "" && opts.format != "" && opts.format != "json" && opts.format != "yaml" {
		return fmt.Errorf("unsupported output format %q (want json or yaml)", opts.format)
	}

	results := a.Analyzer().AnalyzeURLs(ctx, urls)
	if format == "" {
		return printResults(stdout, opts.format, results)
	}
	return writeReport(ctx, a, format, opts.out, results)
}

func printResults(w io.Writer, format string, results []analysis.Result) error {
	out := analyzeOutput{Results: results}
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encode results: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("flush results: %w", err)
		}
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return nil
}

func writeReport(ctx context.Context, a *app.App, format, path string, results []analysis.Result) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close report: %w", cerr)
		}
	}()

	switch format {
	case "excel":
		err = export.WriteExcel(f, results, time.Local)
	case "pdf":
		writer := export.NewPDFWriter(a.ImageLoader(), a.Logger().Named("pdf"), export.WithLocation(time.Local))
		err = writer.Write(ctx, f, results, a.Clock().Now())
	}
	if err != nil {
		return fmt.Errorf("write %s report: %w", format, err)
	}
	metrics.ObserveExport(format)
	a.Logger().Info("report written", zap.String("path", path), zap.String("format", format), zap.Int("results", len(results)))
	return nil
}
