package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"unicode/utf8"

	apperrors "taxtrend/internal/errors"
	"taxtrend/internal/files"
	"taxtrend/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes tables as CSV side-exports next to the workbook.
type CSVWriter struct {
	outputDir string
	logger    *slog.Logger
}

// NewCSVWriter creates a writer rooted at outputDir. A nil logger uses
// slog.Default().
func NewCSVWriter(outputDir string, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{outputDir: outputDir, logger: logger.With(slog.String("component", "csv_writer"))}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	Delimiter rune
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes a CSV file through a temporary file, so a failed write never
// leaves a truncated export behind.
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	fullPath := w.resolvePath(filePath)

	w.logger.Info("Writing CSV file",
		slog.String("file_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := files.TempPath(fullPath)
	if err := writeCSVFile(tmp, options); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := files.ReplaceFile(tmp, fullPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move CSV into place: %w", err)
	}
	return nil
}

func writeCSVFile(path string, options WriteOptions) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	if options.Delimiter != 0 {
		writer.Comma = options.Delimiter
	}

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}

// WriteTable writes a table with its column names as header, UTF-8 with BOM.
func (w *CSVWriter) WriteTable(filePath string, table *domain.Table, delimiter string) error {
	records := make([][]string, 0, table.Len())
	for _, row := range table.Rows {
		record := make([]string, len(row))
		for i, cell := range row {
			record[i] = formatCell(cell)
		}
		records = append(records, record)
	}

	comma, _ := utf8.DecodeRuneInString(delimiter)
	if comma == utf8.RuneError {
		comma = ','
	}

	err := w.WriteCSV(filePath, WriteOptions{
		Headers:   table.ColumnNames(),
		Records:   records,
		Delimiter: comma,
		BOMPrefix: true,
	})
	if err != nil {
		return apperrors.NewSinkError("failed to write CSV export", err).WithContext("path", w.resolvePath(filePath))
	}
	return nil
}

// resolvePath joins relative paths to the output directory.
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.outputDir == "" {
		return filePath
	}
	return filepath.Join(w.outputDir, filePath)
}
