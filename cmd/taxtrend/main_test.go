package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"taxtrend/internal/archive"
	"taxtrend/internal/infrastructure"
	"taxtrend/internal/shared/testutil"
)

const baseConfig = `
paths:
  input_dir: in
  output_dir: out
analysis:
  initial_year: "2022"
report:
  charts: true
  csv_export: true
archive:
  sqlite_path: out/archive.db
metrics:
  textfile_path: out/taxtrend.prom
logging:
  level: error
  output: console
`

// workspace lays out a config file and one extract under a temp directory.
func workspace(t *testing.T, cfg string) string {
	t.Helper()
	t.Cleanup(infrastructure.ResetLoggerForTesting)

	dir := t.TempDir()
	testutil.WriteFile(t, dir, "config.yaml", []byte(cfg))

	in := filepath.Join(dir, "in")
	require.NoError(t, os.MkdirAll(in, 0755))
	testutil.NewCSVFixture("2022", "2023").
		Row("001", "11.111.111/0001-11", "Padaria Areal", "Areal", "1.000,00", "1.200,00").
		Row("002", "22.222.222/0001-22", "Mercado Itaguai", "Itaguai", "500,00", "400,00").
		WriteLatin1(t, in, "valor_adicionado.csv")
	return dir
}

func TestRun_EndToEnd(t *testing.T) {
	dir := workspace(t, baseConfig)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-config", filepath.Join(dir, "config.yaml")}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "Report written to EvolucaoValorAdicionado.xlsx")

	out := filepath.Join(dir, "out")
	f, err := excelize.OpenFile(filepath.Join(out, "EvolucaoValorAdicionado.xlsx"))
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "AnaliseARE")
	assert.Contains(t, f.GetSheetList(), "VariacaoITG")

	for _, name := range []string{"unified.csv", "wide.csv", "taxtrend.prom", "archive.db"} {
		assert.FileExists(t, filepath.Join(out, name))
	}

	store, err := archive.Open(filepath.Join(out, "archive.db"))
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 4, runs[0].Records)
	assert.NotEmpty(t, runs[0].ID)
}

func TestRun_FlagOverrides(t *testing.T) {
	dir := workspace(t, baseConfig)
	var stdout, stderr bytes.Buffer

	args := []string{
		"-config", filepath.Join(dir, "config.yaml"),
		"-out", filepath.Join(dir, "custom"),
		"-file", "Relatorio.xlsx",
	}
	require.Equal(t, 0, run(context.Background(), args, &stdout, &stderr), stderr.String())
	assert.FileExists(t, filepath.Join(dir, "custom", "Relatorio.xlsx"))
	assert.NoFileExists(t, filepath.Join(dir, "out", "EvolucaoValorAdicionado.xlsx"))
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name       string
		config     string
		args       func(dir string) []string
		wantStderr string
	}{
		{
			name:       "missing initial year",
			config:     "paths:\n  input_dir: in\n",
			wantStderr: "configuration error",
		},
		{
			name:       "invalid output file override",
			config:     baseConfig,
			args:       func(string) []string { return []string{"-file", "report.csv"} },
			wantStderr: "output_file",
		},
		{
			name:   "initial year outside the extracts",
			config: "paths:\n  input_dir: in\nanalysis:\n  initial_year: \"2019\"\nlogging:\n  level: error\n",
		},
		{
			name:   "no extracts",
			config: baseConfig,
			args: func(dir string) []string {
				empty := filepath.Join(dir, "empty")
				require.NoError(t, os.MkdirAll(empty, 0755))
				return []string{"-in", empty}
			},
			wantStderr: "no CSV files found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := workspace(t, tt.config)
			args := []string{"-config", filepath.Join(dir, "config.yaml")}
			if tt.args != nil {
				args = append(args, tt.args(dir)...)
			}

			var stdout, stderr bytes.Buffer
			assert.Equal(t, 1, run(context.Background(), args, &stdout, &stderr))
			if tt.wantStderr != "" {
				assert.Contains(t, stderr.String(), tt.wantStderr)
			}
			assert.NoFileExists(t, filepath.Join(dir, "out", "EvolucaoValorAdicionado.xlsx"))
		})
	}
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run(context.Background(), []string{"-version"}, &stdout, &stderr))
	assert.True(t, strings.HasPrefix(stdout.String(), "taxtrend 1.0.0 ("))
}

func TestRun_BadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), []string{"-nope"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "flag provided but not defined")
}
