// Command taxtrend consolidates yearly municipal value-added extracts and
// writes the evolution report workbook.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"taxtrend/internal/archive"
	"taxtrend/internal/config"
	"taxtrend/internal/dataprocessing"
	apperrors "taxtrend/internal/errors"
	"taxtrend/internal/exporter"
	"taxtrend/internal/files"
	"taxtrend/internal/infrastructure"
	"taxtrend/pkg/contracts"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	configPath string
	inDir      string
	outDir     string
	outFile    string
	version    bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet(config.AppName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.configPath, "config", "", "path to config.yaml (defaults to config.yaml, configs/config.yaml or resources/config.yaml)")
	fs.StringVar(&opts.inDir, "in", "", "input directory with the yearly CSV extracts (overrides paths.input_dir)")
	fs.StringVar(&opts.outDir, "out", "", "output directory (overrides paths.output_dir)")
	fs.StringVar(&opts.outFile, "file", "", "output workbook name (overrides paths.output_file)")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

// loadConfig loads the configuration and applies the command-line overrides.
func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.inDir != "" {
		cfg.Paths.InputDir = opts.inDir
	}
	if opts.outDir != "" {
		cfg.Paths.OutputDir = opts.outDir
	}
	if opts.outFile != "" {
		cfg.Paths.OutputFile = opts.outFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// run executes one batch and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if opts.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString(config.AppName))
		return 0
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return 1
	}

	paths, err := cfg.GetPaths()
	if err != nil {
		fmt.Fprintf(stderr, "failed to resolve paths: %v\n", err)
		return 1
	}
	if err := paths.EnsureDirectories(); err != nil {
		fmt.Fprintf(stderr, "failed to create directories: %v\n", err)
		return 1
	}

	cfg.Logging.FilePath = paths.LogFile
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer infrastructure.CloseLogFile()

	ctx = infrastructure.EnsureRunID(ctx)
	runID := infrastructure.GetRunID(ctx)

	tracing, err := infrastructure.InitializeTracing(cfg.Tracing, stdout, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize tracing", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Tracing shutdown failed", slog.String("error", err.Error()))
		}
	}()

	logger.InfoContext(ctx, "Starting taxtrend",
		slog.String("version", config.AppVersion),
		slog.String("input_dir", paths.InputDir),
		slog.String("output_file", paths.OutputFile),
		slog.String("initial_year", cfg.Analysis.InitialYear))

	if err := execute(ctx, cfg, paths, runID, stdout, logger); err != nil {
		logger.ErrorContext(ctx, "Run failed",
			slog.String("error_type", string(apperrors.TypeOf(err))),
			slog.String("error", err.Error()))
		fmt.Fprintf(stderr, "taxtrend: %v\n", err)
		return 1
	}
	return 0
}

// execute runs the pipeline and writes every configured output. Report
// errors abort the run; archive and metrics outputs are best effort.
func execute(ctx context.Context, cfg *config.Config, paths *config.Paths, runID string, stdout io.Writer, logger *slog.Logger) error {
	started := time.Now()
	metrics := infrastructure.NewMetrics()

	municipalities, err := config.LoadMunicipalityTable(paths.MunicipalityTable)
	if err != nil {
		return err
	}

	found, err := files.NewDiscovery(paths.BaseDir).FindCSVFiles(paths.InputDir)
	if err != nil {
		return apperrors.NewIngestError(paths.InputDir, "failed to list input files", err)
	}
	logger.InfoContext(ctx, "Input files discovered", slog.Int("count", len(found)))
	if len(found) == 0 {
		return apperrors.NewIngestError(paths.InputDir, "no CSV files found", nil)
	}

	ingestor, err := dataprocessing.NewIngestor(cfg.Input, municipalities, logger)
	if err != nil {
		return err
	}

	res, err := dataprocessing.NewProcessor(cfg, ingestor, metrics, logger).Run(ctx, files.Paths(found))
	if err != nil {
		writeMetrics(ctx, metrics, paths.MetricsFile, logger)
		return err
	}
	for _, f := range res.Failures {
		logger.WarnContext(ctx, "Municipality left out of the report",
			slog.String("municipality", f.Code),
			slog.String("error", f.Err.Error()))
	}

	if err := exporter.NewWorkbookWriter(cfg, metrics, logger).Write(ctx, paths.OutputFile, res); err != nil {
		writeMetrics(ctx, metrics, paths.MetricsFile, logger)
		return err
	}

	if cfg.Report.CSVExport {
		csvWriter := exporter.NewCSVWriter(paths.OutputDir, logger)
		if err := csvWriter.WriteTable(config.UnifiedCSVFile, dataprocessing.UnifiedTable(res.Unified), cfg.Input.Delimiter); err != nil {
			return err
		}
		if err := csvWriter.WriteTable(config.WideCSVFile, res.Wide.Table(), cfg.Input.Delimiter); err != nil {
			return err
		}
	}

	if paths.ArchiveFile != "" {
		if err := archiveRun(ctx, paths.ArchiveFile, runID, started, res); err != nil {
			logger.ErrorContext(ctx, "Archive not updated", slog.String("error", err.Error()))
		} else {
			logger.InfoContext(ctx, "Run archived", slog.String("path", paths.ArchiveFile))
		}
	}

	writeMetrics(ctx, metrics, paths.MetricsFile, logger)

	logger.InfoContext(ctx, "Report complete",
		slog.String("output_file", paths.OutputFile),
		slog.Int("municipalities", len(res.Analyses)),
		slog.Int("failed_municipalities", len(res.Failures)),
		slog.Int("failed_files", len(res.Consolidation.Failures)),
		slog.Duration("duration", time.Since(started)))
	fmt.Fprintf(stdout, "Report written to %s (%d municipalities, %d records)\n",
		filepath.Base(paths.OutputFile), len(res.Analyses), len(res.Unified))
	return nil
}

func archiveRun(ctx context.Context, path, runID string, started time.Time, res *dataprocessing.Result) error {
	store, err := archive.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.SaveRun(ctx, archive.Run{
		ID:         runID,
		CreatedAt:  started,
		Files:      res.Consolidation.Ingested(),
		Records:    len(res.Unified),
		Duplicates: res.Dedup.Dropped(),
		Years:      res.Years,
	}, res.Unified)
}

func writeMetrics(ctx context.Context, metrics *infrastructure.Metrics, path string, logger *slog.Logger) {
	if path == "" {
		return
	}
	if err := metrics.WriteTextfile(path); err != nil {
		logger.WarnContext(ctx, "Metrics textfile not written", slog.String("error", err.Error()))
	}
}
