package dataprocessing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"taxtrend/internal/config"
	"taxtrend/internal/shared/testutil"
	"taxtrend/pkg/contracts/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Analysis.InitialYear = "2022"
	cfg.Analysis.MinimumAnalysisThresholdPercentage = 0
	cfg.Pipeline.Workers = 2
	return cfg
}

func newTestIngestor(t *testing.T) (*Ingestor, *testutil.BufferedSlogHandler) {
	t.Helper()
	logger, handler := testutil.NewTestLogger(t)
	in, err := NewIngestor(config.Default().Input, config.DefaultMunicipalityTable(), logger)
	require.NoError(t, err)
	return in, handler
}

func record(code, name, reg, year, value string) domain.ContributorRecord {
	return domain.ContributorRecord{
		MunicipalityCode: code,
		MunicipalityName: name,
		RegistrationID:   reg,
		NationalID:       "cnpj-" + reg,
		LegalName:        "Empresa " + reg,
		Year:             year,
		Value:            dec(value),
	}
}

func storeOf(records ...domain.ContributorRecord) *RecordStore {
	s := NewRecordStore()
	s.Add(records...)
	return s
}

// wideRow builds a wide record for Areal with values given as year, value pairs.
func wideRow(reg string, pairs ...string) domain.WideRecord {
	values := make(map[string]decimal.Decimal, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		values[pairs[i]] = dec(pairs[i+1])
	}
	return domain.WideRecord{
		EntityKey: domain.EntityKey{
			MunicipalityCode: "ARE",
			MunicipalityName: "Areal",
			RegistrationID:   reg,
			NationalID:       "cnpj-" + reg,
			LegalName:        "Empresa " + reg,
		},
		Values: values,
	}
}

func cellDec(t *testing.T, table *domain.Table, row int, col string) decimal.Decimal {
	t.Helper()
	v, ok := table.Cell(row, col).(decimal.Decimal)
	require.True(t, ok, "cell %d/%s is %T", row, col, table.Cell(row, col))
	return v
}

func yearSet(t *testing.T, ys ...string) domain.YearSet {
	t.Helper()
	set, err := domain.NewYearSet(ys...)
	require.NoError(t, err)
	return set
}
