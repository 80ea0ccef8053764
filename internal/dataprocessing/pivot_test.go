package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxtrend/pkg/contracts/domain"
)

func TestBuildUnified_Ordering(t *testing.T) {
	store := storeOf(
		record("POR", "Porto Real", "2", "2023", "1"),
		record("ARE", "Areal", "9", "2022", "1"),
		record("ARE", "Areal", "10", "2023", "1"),
		record("ARE", "Areal", "10", "2022", "1"),
	)

	unified := BuildUnified(store)
	require.Len(t, unified, 4)

	var keys []string
	for _, r := range unified {
		keys = append(keys, r.MunicipalityCode+"/"+r.RegistrationID+"/"+r.Year)
	}
	// registration ids compare as strings
	assert.Equal(t, []string{"ARE/10/2022", "ARE/10/2023", "ARE/9/2022", "POR/2/2023"}, keys)

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, unified, BuildUnified(store))
		assert.Equal(t, UnifiedTable(unified), UnifiedTable(BuildUnified(store)))
	})
}

func TestUnifiedTable_Columns(t *testing.T) {
	table := UnifiedTable([]domain.ContributorRecord{record("ARE", "Areal", "007", "2022", "1000")})

	assert.Equal(t, []string{"SigMun", "MUNICIPIO", "InscEst", "CPF_CNPJ", "RazSoc", "ANO", "VALOR"}, table.ColumnNames())
	assert.Equal(t, "007", table.Cell(0, ColRegistration))
	assert.Equal(t, domain.KindMoney, table.Columns[6].Kind)
}

func TestBuildWide_Completeness(t *testing.T) {
	store := storeOf(
		record("ARE", "Areal", "1", "2021", "5"),
		record("ARE", "Areal", "1", "2023", "7"),
		record("ITG", "Itaguai", "2", "2022", "3"),
	)

	wide := BuildWide(store)
	assert.Equal(t, domain.YearSet{"2021", "2022", "2023"}, wide.Years)
	require.Len(t, wide.Rows, 2)

	for _, row := range wide.Rows {
		for _, y := range wide.Years {
			_, ok := row.Values[y]
			assert.True(t, ok, "row %s lacks year %s", row.RegistrationID, y)
		}
	}

	are := wide.Rows[0]
	assert.Equal(t, "ARE", are.MunicipalityCode)
	assert.True(t, are.Value("2022").IsZero())
	assert.True(t, dec("7").Equal(are.Value("2023")))

	table := wide.Table()
	assert.Equal(t, []string{"SigMun", "MUNICIPIO", "InscEst", "CPF_CNPJ", "RazSoc", "2021", "2022", "2023"}, table.ColumnNames())
	assert.Equal(t, 2, table.Len())
}

func TestBuildWide_FirstValueWins(t *testing.T) {
	store := storeOf(
		record("ARE", "Areal", "1", "2022", "0"),
		record("ARE", "Areal", "1", "2022", "50"),
	)
	wide := BuildWide(store)
	require.Len(t, wide.Rows, 1)
	assert.True(t, wide.Rows[0].Value("2022").IsZero())
}

func TestWideTable_ByMunicipality(t *testing.T) {
	store := storeOf(
		record("POR", "Porto Real", "1", "2022", "1"),
		record(domain.UnknownMunicipalityCode, "Niteroi", "1", "2022", "1"),
		record(domain.UnknownMunicipalityCode, "Mage", "2", "2022", "1"),
		record("ARE", "Areal", "1", "2022", "1"),
		record("ARE", "Areal", "2", "2022", "1"),
	)

	groups := BuildWide(store).ByMunicipality()
	require.Len(t, groups, 3)

	assert.Equal(t, "ARE", groups[0].Code)
	assert.Equal(t, "Areal", groups[0].Name)
	assert.Len(t, groups[0].Rows, 2)
	assert.Equal(t, "POR", groups[1].Code)
	assert.Equal(t, domain.UnknownMunicipalityCode, groups[2].Code)
	assert.Equal(t, "Mage, Niteroi", groups[2].Name)
}
