package exporter

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxtrend/pkg/contracts/domain"
)

func TestYearlyTotalsChart(t *testing.T) {
	png, err := YearlyTotalsChart("VALOR ADICIONADO - Areal", []domain.YearTotal{
		{Year: "2022", Total: decimal.NewFromInt(1000)},
		{Year: "2023", Total: decimal.NewFromInt(1200)},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")), "not a PNG")
}

func TestYearlyTotalsChart_Empty(t *testing.T) {
	_, err := YearlyTotalsChart("x", nil)
	assert.Error(t, err)
}
