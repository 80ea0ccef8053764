package dataprocessing

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxtrend/internal/config"
	apperrors "taxtrend/internal/errors"
	"taxtrend/internal/shared/testutil"
	"taxtrend/pkg/contracts/domain"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"1.234,56", "1234.56", true},
		{"1000", "1000", true},
		{"  12,5 ", "12.5", true},
		{"-3.000,10", "-3000.1", true},
		{"0,005", "0", true},
		{"0,125", "0.12", true},
		{"0,135", "0.14", true},
		{"-0,125", "-0.12", true},
		{"", "0", true},
		{"   ", "0", true},
		{"n/d", "0", false},
		{"12,3,4", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseValue(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.True(t, dec(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestIngestor_Ingest(t *testing.T) {
	dir := t.TempDir()
	path := testutil.NewCSVFixture("2022", "2023").
		Row("00123", "11.111.111/0001-11", "Padaria São João", "Areal", "1.000,00", "1.200,00").
		Row("00456", "22.222.222/0001-22", "Mercado Itaguaí", "Itaguai", "", "abc").
		WriteLatin1(t, dir, "valores.csv")

	in, handler := newTestIngestor(t)
	res, err := in.Ingest(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "valores.csv", res.File)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, []string{"2022", "2023"}, res.Years)
	assert.Equal(t, 1, res.MalformedCells)
	require.Len(t, res.Records, 4)

	first := res.Records[0]
	assert.Equal(t, "ARE", first.MunicipalityCode)
	assert.Equal(t, "Areal", first.MunicipalityName)
	assert.Equal(t, "00123", first.RegistrationID, "leading zeros kept")
	assert.Equal(t, "Padaria São João", first.LegalName)
	assert.Equal(t, "2022", first.Year)
	assert.True(t, dec("1000").Equal(first.Value))

	assert.Equal(t, "ITG", res.Records[2].MunicipalityCode)
	assert.True(t, res.Records[2].Value.IsZero(), "blank is zero")
	assert.True(t, res.Records[3].Value.IsZero(), "unparseable is zero")

	testutil.AssertLogContains(t, handler, slog.LevelWarn, "Unparseable value")
}

func TestIngestor_SkipsBlankRows(t *testing.T) {
	dir := t.TempDir()
	path := testutil.NewCSVFixture("2022", "2023").
		Row("001", "11.111.111/0001-11", "Padaria Areal", "Areal", "1.000,00", "1.200,00").
		Row("", "", "", "", "", "").
		Row(" ", "", "  ", "", " ", "").
		Row("", "").
		WriteLatin1(t, dir, "com_linhas_vazias.csv")

	in, handler := newTestIngestor(t)
	res, err := in.Ingest(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Rows)
	assert.Equal(t, 3, res.BlankRows)
	assert.Equal(t, 0, res.MalformedCells)
	require.Len(t, res.Records, 2)
	for _, r := range res.Records {
		assert.Equal(t, "ARE", r.MunicipalityCode)
	}
	assert.Empty(t, in.UnknownMunicipalities())
	assert.False(t, handler.ContainsMessage("Municipality has no code"))
}

func TestIngestor_UnknownMunicipalityWarnsOnce(t *testing.T) {
	dir := t.TempDir()
	path := testutil.NewCSVFixture("2023").
		Row("1", "a", "A", "Niteroi", "10").
		Row("2", "b", "B", "Niteroi", "20").
		WriteUTF8(t, dir, "2023.csv")

	logger, handler := testutil.NewTestLogger(t)
	cfg := config.Default().Input
	cfg.Encoding = "utf-8"
	in, err := NewIngestor(cfg, nil, logger)
	require.NoError(t, err)

	res, err := in.Ingest(context.Background(), path)
	require.NoError(t, err)
	_, err = in.Ingest(context.Background(), path)
	require.NoError(t, err)

	for _, r := range res.Records {
		assert.Equal(t, domain.UnknownMunicipalityCode, r.MunicipalityCode)
	}
	assert.Equal(t, 1, handler.CountMessage("Municipality has no code"))
	assert.Equal(t, []string{"Niteroi"}, in.UnknownMunicipalities())
}

func TestIngestor_BOMAndExtraColumns(t *testing.T) {
	dir := t.TempDir()
	content := "\xEF\xBB\xBFInscricao;CPF_CNPJ;Nome;Nome_Cidade;Situacao;2023 (R$)\r\n" +
		"7;x;Ótica;Porto Real;ATIVA;5,5\r\n"
	path := testutil.WriteFile(t, dir, "bom.csv", []byte(content))

	in, _ := newTestIngestor(t)
	res, err := in.Ingest(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "POR", res.Records[0].MunicipalityCode)
	assert.Equal(t, "Ótica", res.Records[0].LegalName)
	assert.True(t, dec("5.5").Equal(res.Records[0].Value))
}

func TestIngestor_StructuralErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"empty file", "", "no header"},
		{"missing identity column", "Inscricao;CPF_CNPJ;Nome;2023 (R$)\r\n1;2;3;4\r\n", "missing identity column"},
		{"currency column without year", "Inscricao;CPF_CNPJ;Nome;Nome_Cidade;Valor (R$)\r\n", "has no fiscal year"},
		{"no value columns", "Inscricao;CPF_CNPJ;Nome;Nome_Cidade\r\n1;2;3;Areal\r\n", "no value columns"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteFile(t, t.TempDir(), "bad.csv", []byte(tt.content))
			in, _ := newTestIngestor(t)

			_, err := in.Ingest(context.Background(), path)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeIngest))
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), "file=bad.csv")
		})
	}
}

func TestIngestor_InvalidUTF8(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "latin.csv", []byte("Inscricao;CPF_CNPJ;Nome;Nome_Cidade;2023 (R$)\r\n1;2;Jo\xe3o;Areal;1\r\n"))

	cfg := config.Default().Input
	cfg.Encoding = "utf-8"
	in, err := NewIngestor(cfg, nil, nil)
	require.NoError(t, err)

	_, err = in.Ingest(context.Background(), path)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeIngest))
}

func TestNewIngestor_InvalidConfig(t *testing.T) {
	cfg := config.Default().Input
	cfg.YearPattern = "("
	_, err := NewIngestor(cfg, nil, nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))

	cfg = config.Default().Input
	cfg.Delimiter = ";;"
	_, err = NewIngestor(cfg, nil, nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}
