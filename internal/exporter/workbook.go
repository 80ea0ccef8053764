package exporter

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel/attribute"

	"taxtrend/internal/config"
	"taxtrend/internal/dataprocessing"
	apperrors "taxtrend/internal/errors"
	"taxtrend/internal/files"
	"taxtrend/internal/infrastructure"
	"taxtrend/pkg/contracts/domain"
)

// Fixed texts of the report.
const (
	ReportTitle = "ESTUDO DA EVOLUÇÃO - VALOR ADICIONADO"
	EmptyMarker = "*** NENHUMA EMPRESA ATENDEU ESTE QUESITO ***"

	scratchSheet = "_taxtrend"
	negativeFill = "FFC7CE"
	pageHeader   = `&C&"Arial,Regular"&8&P / &N`
)

// StageReport is the metrics stage name of the workbook write.
const StageReport = "report"

// VariationSheetName returns the variation sheet of a municipality code.
func VariationSheetName(code string) string { return config.SheetVariationPrefix + code }

// AnalysisSheetName returns the analysis sheet of a municipality code.
func AnalysisSheetName(code string) string { return config.SheetAnalysisPrefix + code }

// WorkbookWriter is the report sink. It replaces the sheets it owns in the
// target workbook and leaves every other sheet untouched.
type WorkbookWriter struct {
	formatting   config.FormattingConfig
	blockSpacing int
	charts       bool
	metrics      *infrastructure.Metrics
	logger       *slog.Logger
	now          func() time.Time
}

// NewWorkbookWriter creates a sink. metrics and logger may be nil.
func NewWorkbookWriter(cfg *config.Config, metrics *infrastructure.Metrics, logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookWriter{
		formatting:   cfg.Formatting,
		blockSpacing: cfg.Analysis.BlockSpacing,
		charts:       cfg.Report.Charts,
		metrics:      metrics,
		logger:       logger.With(slog.String("component", "workbook_writer")),
		now:          time.Now,
	}
}

// Write renders res into the workbook at path. The file is opened (or
// created) once, always closed, and saved through a temporary file so a
// failure never leaves a partial report behind. Every error is a SINK error.
func (w *WorkbookWriter) Write(ctx context.Context, path string, res *dataprocessing.Result) (err error) {
	ctx, span := infrastructure.StartSpan(ctx, "report.write", attribute.String("path", path))
	defer span.End()
	start := time.Now()

	defer func() {
		if err != nil {
			infrastructure.RecordError(ctx, err)
		}
	}()

	f, scratch, err := openWorkbook(path)
	if err != nil {
		return apperrors.NewSinkError("failed to open workbook", err).WithContext("path", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = apperrors.NewSinkError("failed to close workbook", cerr).WithContext("path", path)
		}
	}()

	st, err := newStyles(f, w.formatting)
	if err != nil {
		return apperrors.NewSinkError("failed to create styles", err).WithContext("path", path)
	}

	names := make(map[string]string, len(res.Analyses))
	for _, a := range res.Analyses {
		names[a.Code] = a.Name
	}

	written := 0
	sheetErr := func(sheet string, err error) error {
		return apperrors.NewSinkError("failed to write sheet", err).
			WithContext("path", path).
			WithContext("sheet", sheet)
	}

	if err := w.writeDataSheet(f, st, config.SheetUnified, "TABELA UNIFICADA", dataprocessing.UnifiedTable(res.Unified)); err != nil {
		return sheetErr(config.SheetUnified, err)
	}
	written++
	if res.Wide != nil {
		if err := w.writeDataSheet(f, st, config.SheetWide, "EVOLUÇÃO POR RAZÃO SOCIAL", res.Wide.Table()); err != nil {
			return sheetErr(config.SheetWide, err)
		}
		written++
	}

	codes := make([]string, 0, len(res.Variations))
	for code := range res.Variations {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			return apperrors.NewSinkError("report write cancelled", err).WithContext("path", path)
		}
		sheet := VariationSheetName(code)
		subtitle := "VARIAÇÃO ANUAL - Município - " + cmp.Or(names[code], code)
		if err := w.writeDataSheet(f, st, sheet, subtitle, res.Variations[code]); err != nil {
			return sheetErr(sheet, err)
		}
		written++
	}

	for _, a := range res.Analyses {
		if err := ctx.Err(); err != nil {
			return apperrors.NewSinkError("report write cancelled", err).WithContext("path", path)
		}
		if err := w.writeAnalysisSheet(ctx, f, st, a); err != nil {
			return sheetErr(AnalysisSheetName(a.Code), err)
		}
		written++
	}

	if err := f.DeleteSheet(scratch); err != nil {
		return apperrors.NewSinkError("failed to remove scratch sheet", err).WithContext("path", path)
	}
	if idx, err := f.GetSheetIndex(config.SheetUnified); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewSinkError("failed to create output directory", err).WithContext("path", path)
	}
	tmp := files.TempPath(path)
	if err := f.SaveAs(tmp); err != nil {
		os.Remove(tmp)
		return apperrors.NewSinkError("failed to save workbook", err).WithContext("path", path)
	}
	if err := files.ReplaceFile(tmp, path); err != nil {
		os.Remove(tmp)
		return apperrors.NewSinkError("failed to move workbook into place", err).WithContext("path", path)
	}

	w.metrics.ObserveStage(StageReport, start)
	span.SetAttributes(attribute.Int("sheets", written))
	w.logger.InfoContext(ctx, "Workbook written",
		slog.String("path", path),
		slog.Int("sheets", written),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// openWorkbook opens path when it exists, otherwise starts a new workbook.
// It also returns the name of a sheet to delete once ours exist, so the
// workbook is never left without sheets while they are replaced.
func openWorkbook(path string) (*excelize.File, string, error) {
	if !files.FileExists(path) {
		f := excelize.NewFile()
		return f, f.GetSheetName(0), nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, "", err
	}
	if _, err := f.NewSheet(scratchSheet); err != nil {
		f.Close()
		return nil, "", err
	}
	return f, scratchSheet, nil
}

// replaceSheet drops sheet if present and recreates it empty.
func replaceSheet(f *excelize.File, sheet string) error {
	if idx, err := f.GetSheetIndex(sheet); err == nil && idx >= 0 {
		if err := f.DeleteSheet(sheet); err != nil {
			return err
		}
	}
	_, err := f.NewSheet(sheet)
	return err
}

type titleLine struct {
	row   int
	text  string
	style int
}

// titles returns the three heading lines in ascending row order.
func (w *WorkbookWriter) titles(st *styles, subtitle string) []titleLine {
	lines := []titleLine{
		{w.formatting.StartTitle1, ReportTitle, st.title1},
		{w.formatting.StartTitle2, subtitle, st.title2},
		{w.formatting.StartTitle3, "Relatório Calculado em: " + w.now().Format("02/01/2006"), st.title3},
	}
	slices.SortStableFunc(lines, func(a, b titleLine) int { return a.row - b.row })
	return lines
}

// writeDataSheet streams a flat table: titles, header on StartRow-1 and data
// from StartRow.
func (w *WorkbookWriter) writeDataSheet(f *excelize.File, st *styles, sheet, subtitle string, table *domain.Table) error {
	if err := replaceSheet(f, sheet); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	for i, c := range table.Columns {
		width := 18.0
		if c.Name == dataprocessing.ColLegalName {
			width = 50
		}
		if err := sw.SetColWidth(i+1, i+1, width); err != nil {
			return err
		}
	}

	headerRow := max(w.formatting.StartRow-1, 1)
	last := 0
	for _, t := range w.titles(st, subtitle) {
		// stream rows must ascend and stay above the header
		if t.row <= last || t.row >= headerRow {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, t.row)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, []any{excelize.Cell{StyleID: t.style, Value: t.text}}); err != nil {
			return err
		}
		last = t.row
	}

	header := make([]any, len(table.Columns))
	for i, c := range table.Columns {
		header[i] = excelize.Cell{StyleID: st.header, Value: c.Name}
	}
	cell, err := excelize.CoordinatesToCellName(1, headerRow)
	if err != nil {
		return err
	}
	if err := sw.SetRow(cell, header); err != nil {
		return err
	}

	for r, row := range table.Rows {
		values := make([]any, len(row))
		for c, v := range row {
			values[c] = excelize.Cell{StyleID: st.cell(table.Columns[c].Kind, v), Value: cellValue(v)}
		}
		cell, err := excelize.CoordinatesToCellName(1, headerRow+1+r)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, values); err != nil {
			return err
		}
	}
	return sw.Flush()
}

func (w *WorkbookWriter) writeAnalysisSheet(ctx context.Context, f *excelize.File, st *styles, a dataprocessing.MunicipalityAnalysis) error {
	sheet := AnalysisSheetName(a.Code)
	if err := replaceSheet(f, sheet); err != nil {
		return err
	}

	aw := &sectionWriter{f: f, sheet: sheet, st: st, spacing: w.blockSpacing, row: w.formatting.AnalysisStartRow}
	for _, t := range w.titles(st, "Município - "+a.Name) {
		aw.put(1, t.row, t.text, t.style)
	}
	for _, s := range a.Sections {
		aw.section(s)
	}
	if aw.err != nil {
		return aw.err
	}

	if w.charts && a.Bundle != nil {
		w.addChart(ctx, f, sheet, a)
	}
	return layoutAnalysisSheet(f, sheet, aw.maxRow)
}

// addChart embeds the yearly totals chart to the right of the tables. A
// chart that cannot be rendered is logged and skipped.
func (w *WorkbookWriter) addChart(ctx context.Context, f *excelize.File, sheet string, a dataprocessing.MunicipalityAnalysis) {
	title := "VALOR ADICIONADO - " + a.Name
	png, err := YearlyTotalsChart(title, a.Bundle.YearlyTotals)
	if err == nil {
		cell := fmt.Sprintf("H%d", w.formatting.AnalysisStartRow)
		err = f.AddPictureFromBytes(sheet, cell, &excelize.Picture{
			Extension: ".png",
			File:      png,
			Format:    &excelize.GraphicOptions{AltText: title, ScaleX: 1, ScaleY: 1},
		})
	}
	if err != nil {
		w.logger.WarnContext(ctx, "Chart skipped",
			slog.String("municipality", a.Code),
			slog.String("error", err.Error()))
	}
}

// layoutAnalysisSheet applies column widths and the printed page setup.
func layoutAnalysisSheet(f *excelize.File, sheet string, lastRow int) error {
	if err := f.SetColWidth(sheet, "A", "A", 51); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "B", "G", 15); err != nil {
		return err
	}

	orientation := "landscape"
	if err := f.SetPageLayout(sheet, &excelize.PageLayoutOptions{Orientation: &orientation}); err != nil {
		return err
	}
	left, top, header, zero := 0.3, 0.3, 0.1, 0.0
	if err := f.SetPageMargins(sheet, &excelize.PageLayoutMarginsOptions{
		Left: &left, Right: &zero, Top: &top, Bottom: &zero, Header: &header, Footer: &zero,
	}); err != nil {
		return err
	}
	if err := f.SetHeaderFooter(sheet, &excelize.HeaderFooterOptions{OddHeader: pageHeader}); err != nil {
		return err
	}

	quoted := "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	for _, dn := range []excelize.DefinedName{
		{Name: "_xlnm.Print_Area", RefersTo: fmt.Sprintf("%s!$A$1:$F$%d", quoted, max(lastRow, 1)), Scope: sheet},
		{Name: "_xlnm.Print_Titles", RefersTo: quoted + "!$1:$4", Scope: sheet},
	} {
		_ = f.DeleteDefinedName(&excelize.DefinedName{Name: dn.Name, Scope: sheet})
		if err := f.SetDefinedName(&dn); err != nil {
			return err
		}
	}
	return nil
}

// sectionWriter lays analysis sections out top to bottom. The first error
// sticks and turns later calls into no-ops.
type sectionWriter struct {
	f       *excelize.File
	sheet   string
	st      *styles
	spacing int
	row     int
	maxRow  int
	err     error
}

func (s *sectionWriter) put(col, row int, v any, style int) {
	if s.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		s.err = err
		return
	}
	if err := s.f.SetCellValue(s.sheet, cell, cellValue(v)); err != nil {
		s.err = err
		return
	}
	if err := s.f.SetCellStyle(s.sheet, cell, cell, style); err != nil {
		s.err = err
		return
	}
	s.maxRow = max(s.maxRow, row)
}

func (s *sectionWriter) section(sec domain.AnalysisSection) {
	s.put(1, s.row, sec.SectionTitle(), s.st.section)
	s.row++

	switch v := sec.(type) {
	case domain.ScalarSection:
		s.put(1, s.row, v.Title, s.st.label)
		s.put(2, s.row, v.Value, s.st.cell(v.Kind, v.Value))
		s.row++
	case domain.TableSection:
		s.table(v.Table)
		if v.Note != "" && !v.Table.Empty() {
			s.row++
			s.put(1, s.row, v.Note, s.st.label)
			s.merge(1, len(v.Table.Columns), s.row)
			s.row++
		}
	case domain.TrendGroupSection:
		for i, g := range v.Groups {
			if i > 0 {
				s.row += 2
			}
			s.put(1, s.row, g.Label, s.st.header)
			s.row++
			s.table(g.Table)
		}
		s.row += 2
	}
	s.row += s.spacing
}

func (s *sectionWriter) table(t *domain.Table) {
	if t.Empty() {
		s.put(1, s.row, EmptyMarker, s.st.text)
		s.row++
		return
	}

	if !t.HideHeader {
		for c, col := range t.Columns {
			s.put(c+1, s.row, strings.ToUpper(col.Name), s.st.header)
		}
		s.row++
	}
	for _, row := range t.Rows {
		for c, v := range row {
			style := s.st.cell(t.Columns[c].Kind, v)
			if t.HideHeader && c == 0 {
				style = s.st.label
			}
			s.put(c+1, s.row, v, style)
		}
		s.row++
	}
}

func (s *sectionWriter) merge(fromCol, toCol, row int) {
	if s.err != nil || toCol <= fromCol {
		return
	}
	from, err := excelize.CoordinatesToCellName(fromCol, row)
	if err != nil {
		s.err = err
		return
	}
	to, err := excelize.CoordinatesToCellName(toCol, row)
	if err != nil {
		s.err = err
		return
	}
	s.err = s.f.MergeCell(s.sheet, from, to)
}
