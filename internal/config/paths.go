package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the resolved, absolute file system locations used by a run.
type Paths struct {
	BaseDir           string
	InputDir          string
	OutputDir         string
	OutputFile        string
	MunicipalityTable string
	ArchiveFile       string
	MetricsFile       string
	LogFile           string
}

// GetPaths resolves the configured paths. Relative entries are joined to
// BaseDir; when BaseDir is empty the current working directory is used.
func (c *Config) GetPaths() (*Paths, error) {
	base := c.Paths.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}

	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	outputDir := resolve(c.Paths.OutputDir)
	outputFile := c.Paths.OutputFile
	if !filepath.IsAbs(outputFile) {
		outputFile = filepath.Join(outputDir, outputFile)
	}

	return &Paths{
		BaseDir:           base,
		InputDir:          resolve(c.Paths.InputDir),
		OutputDir:         outputDir,
		OutputFile:        outputFile,
		MunicipalityTable: resolve(c.Paths.MunicipalityTable),
		ArchiveFile:       resolve(c.Archive.SQLitePath),
		MetricsFile:       resolve(c.Metrics.TextfilePath),
		LogFile:           resolve(c.Logging.FilePath),
	}, nil
}

// EnsureDirectories creates the output directory and the parent directories
// of every optional output file.
func (p *Paths) EnsureDirectories() error {
	directories := []string{p.OutputDir, filepath.Dir(p.OutputFile)}
	for _, f := range []string{p.ArchiveFile, p.MetricsFile} {
		if f != "" {
			directories = append(directories, filepath.Dir(f))
		}
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	slog.Default().Debug("Directories ensured", slog.String("output_dir", p.OutputDir))
	return nil
}

// InputExists reports whether the input directory is present.
func (p *Paths) InputExists() bool {
	info, err := os.Stat(p.InputDir)
	return err == nil && info.IsDir()
}
