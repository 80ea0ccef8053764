package exporter

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"taxtrend/internal/config"
	"taxtrend/internal/dataprocessing"
	apperrors "taxtrend/internal/errors"
	"taxtrend/internal/shared/testutil"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Analysis.InitialYear = "2022"
	return cfg
}

func runPipeline(t *testing.T, cfg *config.Config) *dataprocessing.Result {
	t.Helper()
	path := testutil.NewCSVFixture("2022", "2023").
		Row("001", "11.111.111/0001-11", "Padaria Areal", "Areal", "1.000,00", "1.200,00").
		Row("002", "22.222.222/0001-22", "Mercado Itaguai", "Itaguai", "500,00", "400,00").
		WriteUTF8(t, t.TempDir(), "valores.csv")

	in, err := dataprocessing.NewIngestor(cfg.Input, nil, nil)
	require.NoError(t, err)
	res, err := dataprocessing.NewProcessor(cfg, in, nil, nil).Run(context.Background(), []string{path})
	require.NoError(t, err)
	return res
}

func newTestWriter(cfg *config.Config) *WorkbookWriter {
	w := NewWorkbookWriter(cfg, nil, nil)
	w.now = func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }
	return w
}

func openResult(t *testing.T, path string) *excelize.File {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func raw(t *testing.T, f *excelize.File, sheet, cell string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	return v
}

func columnA(t *testing.T, f *excelize.File, sheet string) []string {
	t.Helper()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	var out []string
	for _, r := range rows {
		if len(r) > 0 {
			out = append(out, r[0])
		}
	}
	return out
}

func TestWorkbookWriter_Write(t *testing.T) {
	cfg := testConfig()
	res := runPipeline(t, cfg)
	path := filepath.Join(t.TempDir(), "out", "report.xlsx")

	require.NoError(t, newTestWriter(cfg).Write(context.Background(), path, res))

	f := openResult(t, path)
	assert.Equal(t, []string{
		"TAB_Unificada", "TAB_EvolRazSoc",
		"VariacaoARE", "VariacaoITG",
		"AnaliseARE", "AnaliseITG",
	}, f.GetSheetList())

	// data sheets: header on StartRow-1, data from StartRow
	assert.Equal(t, ReportTitle, raw(t, f, "TAB_Unificada", "A1"))
	assert.Equal(t, "Relatório Calculado em: 18/10/2026", raw(t, f, "TAB_Unificada", "A3"))
	assert.Equal(t, "SigMun", raw(t, f, "TAB_Unificada", "A6"))
	assert.Equal(t, "ARE", raw(t, f, "TAB_Unificada", "A7"))
	assert.Equal(t, "001", raw(t, f, "TAB_Unificada", "C7"), "registration stays text")
	assert.Equal(t, "1000", raw(t, f, "TAB_Unificada", "G7"))

	assert.Equal(t, "2023", raw(t, f, "TAB_EvolRazSoc", "G6"))
	assert.Equal(t, "1200", raw(t, f, "TAB_EvolRazSoc", "G7"))

	assert.Equal(t, "VARIAÇÃO ANUAL - Município - Areal", raw(t, f, "VariacaoARE", "A2"))
	assert.Equal(t, "22/23 %", raw(t, f, "VariacaoARE", "G6"))
	assert.Equal(t, "20", raw(t, f, "VariacaoARE", "G7"))
	assert.Equal(t, "-20", raw(t, f, "VariacaoITG", "G7"))

	// analysis sheet
	assert.Equal(t, "Município - Areal", raw(t, f, "AnaliseARE", "A2"))
	assert.Equal(t, dataprocessing.TitleYearlyTotals, raw(t, f, "AnaliseARE", "A7"))
	assert.Equal(t, "2022", raw(t, f, "AnaliseARE", "A8"))
	assert.Equal(t, "1000", raw(t, f, "AnaliseARE", "B8"))

	col := columnA(t, f, "AnaliseARE")
	assert.Contains(t, col, dataprocessing.TitleContributorCount)
	assert.Contains(t, col, "TENDÊNCIA 2022 / 2023")
	assert.Contains(t, col, "CRESCIMENTO")
	assert.Contains(t, col, "Padaria Areal", "only headers are upper-cased")
	assert.Contains(t, col, EmptyMarker)
	assert.Contains(t, col, dataprocessing.DeviationNote)
	assert.Less(t, slices.Index(col, dataprocessing.TitleYearlyTotals), slices.Index(col, dataprocessing.TitleTopContributors))

	width, err := f.GetColWidth("AnaliseARE", "A")
	require.NoError(t, err)
	assert.Equal(t, 51.0, width)
	layout, err := f.GetPageLayout("AnaliseARE")
	require.NoError(t, err)
	require.NotNil(t, layout.Orientation)
	assert.Equal(t, "landscape", *layout.Orientation)
}

func TestWorkbookWriter_NegativeFill(t *testing.T) {
	cfg := testConfig()
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, newTestWriter(cfg).Write(context.Background(), path, runPipeline(t, cfg)))

	f := openResult(t, path)
	fill := func(sheet, cell string) []string {
		id, err := f.GetCellStyle(sheet, cell)
		require.NoError(t, err)
		style, err := f.GetStyle(id)
		require.NoError(t, err)
		return style.Fill.Color
	}

	colors := fill("VariacaoITG", "G7")
	require.Len(t, colors, 1)
	assert.Contains(t, strings.ToUpper(colors[0]), negativeFill)
	assert.Empty(t, fill("VariacaoARE", "G7"))
}

func TestWorkbookWriter_PreservesForeignSheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")

	existing := excelize.NewFile()
	require.NoError(t, existing.SetSheetName("Sheet1", "Notas"))
	require.NoError(t, existing.SetCellValue("Notas", "A1", "keep"))
	_, err := existing.NewSheet("AnaliseARE")
	require.NoError(t, err)
	require.NoError(t, existing.SetCellValue("AnaliseARE", "Z99", "stale"))
	require.NoError(t, existing.SaveAs(path))
	require.NoError(t, existing.Close())

	cfg := testConfig()
	require.NoError(t, newTestWriter(cfg).Write(context.Background(), path, runPipeline(t, cfg)))

	f := openResult(t, path)
	sheets := f.GetSheetList()
	assert.Contains(t, sheets, "Notas")
	assert.NotContains(t, sheets, scratchSheet)
	assert.Equal(t, "keep", raw(t, f, "Notas", "A1"))
	assert.Empty(t, raw(t, f, "AnaliseARE", "Z99"))
	assert.Equal(t, ReportTitle, raw(t, f, "AnaliseARE", "A1"))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary workbook left behind")
}

func TestWorkbookWriter_Charts(t *testing.T) {
	cfg := testConfig()
	cfg.Report.Charts = true
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, newTestWriter(cfg).Write(context.Background(), path, runPipeline(t, cfg)))

	f := openResult(t, path)
	pics, err := f.GetPictures("AnaliseARE", "H7")
	require.NoError(t, err)
	require.Len(t, pics, 1)
	assert.Equal(t, ".png", pics[0].Extension)
}

func TestWorkbookWriter_SinkError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	cfg := testConfig()
	err := newTestWriter(cfg).Write(context.Background(), filepath.Join(blocker, "report.xlsx"), runPipeline(t, cfg))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSink))
}

func TestWorkbookWriter_CorruptWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0644))

	cfg := testConfig()
	err := newTestWriter(cfg).Write(context.Background(), path, runPipeline(t, cfg))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSink))

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "not a zip", string(data), "original left untouched")
}

func TestSheetNames(t *testing.T) {
	assert.Equal(t, "VariacaoARE", VariationSheetName("ARE"))
	assert.Equal(t, "AnaliseUNK", AnalysisSheetName("UNK"))
}
