package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTable(t *testing.T) {
	tbl := NewTable(Text("RazSoc"), Money("2023"), Percent("22/23 %"))
	assert.True(t, tbl.Empty())

	tbl.Append("Padaria Areal", decimal.NewFromInt(1200))
	tbl.Append("Mercado", decimal.NewFromInt(400), decimal.NewFromInt(-20), "extra")

	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"RazSoc", "2023", "22/23 %"}, tbl.ColumnNames())
	assert.Equal(t, KindMoney, tbl.Columns[1].Kind)
	assert.Equal(t, 2, tbl.ColumnIndex("22/23 %"))
	assert.Equal(t, -1, tbl.ColumnIndex("missing"))

	// Short rows are padded, long rows truncated.
	assert.Nil(t, tbl.Cell(0, "22/23 %"))
	assert.Len(t, tbl.Rows[1], 3)
	assert.Nil(t, tbl.Cell(5, "RazSoc"))

	var nilTable *Table
	assert.True(t, nilTable.Empty())
}

func TestWideRecord_Sum(t *testing.T) {
	w := WideRecord{Values: map[string]decimal.Decimal{
		"2022": decimal.RequireFromString("100.10"),
		"2023": decimal.RequireFromString("50.05"),
	}}

	assert.True(t, decimal.RequireFromString("150.15").Equal(w.Sum(YearSet{"2021", "2022", "2023"})))
	assert.True(t, w.Value("2021").IsZero())
}

func TestEntityKey_Compare(t *testing.T) {
	a := EntityKey{MunicipalityCode: "ARE", LegalName: "B"}
	b := EntityKey{MunicipalityCode: "ITG", LegalName: "A"}

	assert.Negative(t, a.Compare(b))
	assert.Positive(t, b.Compare(a))
	assert.Zero(t, a.Compare(a))
}
