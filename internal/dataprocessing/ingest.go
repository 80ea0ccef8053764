package dataprocessing

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"

	"taxtrend/internal/config"
	apperrors "taxtrend/internal/errors"
	"taxtrend/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// IngestResult is the long-form content of one source file.
type IngestResult struct {
	File           string
	Records        []domain.ContributorRecord
	Rows           int
	// BlankRows counts rows whose identity and value cells are all empty,
	// such as the trailing ";;;;" lines spreadsheet exports leave behind.
	// They produce no records.
	BlankRows      int
	Years          []string
	MalformedCells int
}

// yearColumn is a value column of the source header.
type yearColumn struct {
	index  int
	year   string
	header string
}

// Ingestor reshapes yearly CSV extracts into long-form records.
// Unknown municipality names are warned about once per Ingestor.
type Ingestor struct {
	cfg            config.InputConfig
	municipalities *config.MunicipalityTable
	yearPattern    *regexp.Regexp
	logger         *slog.Logger

	mu      sync.Mutex
	unknown map[string]struct{}
}

// NewIngestor creates an ingestor. A nil logger uses slog.Default().
func NewIngestor(cfg config.InputConfig, municipalities *config.MunicipalityTable, logger *slog.Logger) (*Ingestor, error) {
	pattern, err := regexp.Compile(cfg.YearPattern)
	if err != nil {
		return nil, apperrors.NewConfigError("invalid year pattern", err).WithContext("pattern", cfg.YearPattern)
	}
	if utf8.RuneCountInString(cfg.Delimiter) != 1 {
		return nil, apperrors.NewConfigError("delimiter must be a single character", nil).WithContext("delimiter", cfg.Delimiter)
	}
	if municipalities == nil {
		municipalities = config.DefaultMunicipalityTable()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Ingestor{
		cfg:            cfg,
		municipalities: municipalities,
		yearPattern:    pattern,
		logger:         logger.With(slog.String("component", "ingestor")),
		unknown:        make(map[string]struct{}),
	}, nil
}

// Ingest reads one source file. Malformed value cells become zero and are
// counted; structural problems fail the whole file with an INGEST error.
func (in *Ingestor) Ingest(ctx context.Context, path string) (*IngestResult, error) {
	name := filepath.Base(path)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewIngestError(name, "failed to read file", err)
	}

	text, err := in.decode(raw)
	if err != nil {
		return nil, apperrors.NewIngestError(name, "failed to decode file", err).
			WithContext("encoding", in.cfg.Encoding)
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma, _ = utf8.DecodeRuneInString(in.cfg.Delimiter)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperrors.NewIngestError(name, "file has no header", nil)
	}
	if err != nil {
		return nil, apperrors.NewIngestError(name, "failed to read header", err)
	}

	identity, years, err := in.mapHeader(header)
	if err != nil {
		return nil, apperrors.NewIngestError(name, err.Error(), nil)
	}

	result := &IngestResult{File: name}
	for _, yc := range years {
		result.Years = append(result.Years, yc.year)
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewIngestError(name, "malformed CSV", err).
				WithContext("row", result.Rows+2)
		}
		result.Rows++
		line := result.Rows + 1

		cell := func(i int) string {
			if i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}

		if blankRow(cell, identity, years) {
			result.BlankRows++
			continue
		}

		municipality := cell(identity.municipality)
		base := domain.ContributorRecord{
			MunicipalityCode: in.resolveMunicipality(municipality),
			MunicipalityName: municipality,
			RegistrationID:   cell(identity.registration),
			NationalID:       cell(identity.nationalID),
			LegalName:        cell(identity.legalName),
		}

		for _, yc := range years {
			value, ok := ParseValue(cell(yc.index))
			if !ok {
				result.MalformedCells++
				in.logger.WarnContext(ctx, "Unparseable value replaced by zero",
					slog.String("file", name),
					slog.Int("line", line),
					slog.String("column", yc.header),
					slog.String("value", cell(yc.index)))
			}
			rec := base
			rec.Year = yc.year
			rec.Value = value
			result.Records = append(result.Records, rec)
		}
	}

	in.logger.InfoContext(ctx, "File ingested",
		slog.String("file", name),
		slog.Int("rows", result.Rows),
		slog.Int("records", len(result.Records)),
		slog.Int("blank_rows", result.BlankRows),
		slog.Any("years", result.Years),
		slog.Int("malformed_cells", result.MalformedCells))

	return result, nil
}

func blankRow(cell func(int) string, identity identityColumns, years []yearColumn) bool {
	for _, i := range []int{identity.registration, identity.nationalID, identity.legalName, identity.municipality} {
		if cell(i) != "" {
			return false
		}
	}
	for _, yc := range years {
		if cell(yc.index) != "" {
			return false
		}
	}
	return true
}

// UnknownMunicipalities returns the distinct unresolved names seen so far.
func (in *Ingestor) UnknownMunicipalities() []string {
	in.mu.Lock()
	defer in.mu.Unlock()

	names := make([]string, 0, len(in.unknown))
	for n := range in.unknown {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (in *Ingestor) resolveMunicipality(name string) string {
	if code, ok := in.municipalities.Code(name); ok {
		return code
	}

	in.mu.Lock()
	_, seen := in.unknown[name]
	if !seen {
		in.unknown[name] = struct{}{}
	}
	in.mu.Unlock()

	if !seen {
		in.logger.Warn("Municipality has no code, using sentinel",
			slog.String("municipality", name),
			slog.String("code", domain.UnknownMunicipalityCode))
	}
	return domain.UnknownMunicipalityCode
}

type identityColumns struct {
	registration, nationalID, legalName, municipality int
}

func (in *Ingestor) mapHeader(header []string) (identityColumns, []yearColumn, error) {
	positions := make(map[string]int, len(header))
	var years []yearColumn

	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := positions[h]; !dup {
			positions[h] = i
		}
		if !strings.HasSuffix(h, in.cfg.CurrencySuffix) {
			continue
		}
		year := in.yearPattern.FindString(h)
		if !domain.IsYear(year) {
			return identityColumns{}, nil, fmt.Errorf("value column %q has no fiscal year", h)
		}
		years = append(years, yearColumn{index: i, year: year, header: h})
	}

	lookup := func(col string) (int, error) {
		if i, ok := positions[col]; ok {
			return i, nil
		}
		return -1, fmt.Errorf("missing identity column %q", col)
	}

	var ids identityColumns
	var err error
	if ids.registration, err = lookup(in.cfg.RegistrationColumn); err != nil {
		return ids, nil, err
	}
	if ids.nationalID, err = lookup(in.cfg.NationalIDColumn); err != nil {
		return ids, nil, err
	}
	if ids.legalName, err = lookup(in.cfg.LegalNameColumn); err != nil {
		return ids, nil, err
	}
	if ids.municipality, err = lookup(in.cfg.MunicipalityColumn); err != nil {
		return ids, nil, err
	}

	if len(years) == 0 {
		return ids, nil, fmt.Errorf("no value columns ending in %q", in.cfg.CurrencySuffix)
	}
	return ids, years, nil
}

// decode converts raw file bytes to UTF-8. A UTF-8 byte order mark wins over
// the configured encoding.
func (in *Ingestor) decode(raw []byte) (string, error) {
	if bytes.HasPrefix(raw, utf8BOM) {
		raw = raw[len(utf8BOM):]
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("invalid UTF-8 after byte order mark")
		}
		return string(raw), nil
	}

	switch strings.ToLower(in.cfg.Encoding) {
	case "utf-8", "utf8":
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("invalid UTF-8")
		}
		return string(raw), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().String(string(raw))
	default:
		return charmap.ISO8859_1.NewDecoder().String(string(raw))
	}
}

// ParseValue parses a Brazilian formatted amount ("1.234,56"). Blank cells
// are zero. The second result is false when the cell could not be parsed, in
// which case the value is zero. Amounts are rounded half to even to two places.
func ParseValue(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, true
	}

	normalized := strings.ReplaceAll(s, ".", "")
	normalized = strings.Replace(normalized, ",", ".", 1)

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, false
	}
	return d.RoundBank(2), true
}
