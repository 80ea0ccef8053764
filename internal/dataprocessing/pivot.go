package dataprocessing

import (
	"cmp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"taxtrend/pkg/contracts/domain"
)

// Column labels shared by the unified, wide and variation tables.
const (
	ColCode         = "SigMun"
	ColMunicipality = "MUNICIPIO"
	ColRegistration = "InscEst"
	ColNationalID   = "CPF_CNPJ"
	ColLegalName    = "RazSoc"
	ColYear         = "ANO"
	ColValue        = "VALOR"
)

// BuildUnified returns the store's records sorted by code, municipality,
// registration id and year. The sort is stable, so equal keys keep their
// consolidation order and repeated calls produce identical output.
func BuildUnified(store *RecordStore) []domain.ContributorRecord {
	records := store.Records()
	slices.SortStableFunc(records, func(a, b domain.ContributorRecord) int {
		return cmp.Or(
			cmp.Compare(a.MunicipalityCode, b.MunicipalityCode),
			cmp.Compare(a.MunicipalityName, b.MunicipalityName),
			cmp.Compare(a.RegistrationID, b.RegistrationID),
			cmp.Compare(a.Year, b.Year),
		)
	})
	return records
}

// UnifiedTable renders unified records for the report sink.
func UnifiedTable(records []domain.ContributorRecord) *domain.Table {
	t := domain.NewTable(
		domain.Text(ColCode),
		domain.Text(ColMunicipality),
		domain.Text(ColRegistration),
		domain.Text(ColNationalID),
		domain.Text(ColLegalName),
		domain.Text(ColYear),
		domain.Money(ColValue),
	)
	for _, r := range records {
		t.Append(r.MunicipalityCode, r.MunicipalityName, r.RegistrationID, r.NationalID, r.LegalName, r.Year, r.Value)
	}
	return t
}

// WideTable has one row per contributor and a value for every schema year.
type WideTable struct {
	Years domain.YearSet
	Rows  []domain.WideRecord
}

// BuildWide pivots the store into one row per entity, sorted by entity key.
// Every year of the store schema is present in every row, zero when the
// entity has no record for it. The first record of an (entity, year) pair
// wins, matching deduplication.
func BuildWide(store *RecordStore) *WideTable {
	years := store.Years()
	index := make(map[domain.EntityKey]int)
	seen := make(map[domain.RecordKey]struct{}, len(store.records))
	var rows []domain.WideRecord

	for _, r := range store.records {
		if _, dup := seen[r.Key()]; dup {
			continue
		}
		seen[r.Key()] = struct{}{}

		key := r.Entity()
		i, ok := index[key]
		if !ok {
			i = len(rows)
			index[key] = i
			values := make(map[string]decimal.Decimal, len(years))
			for _, y := range years {
				values[y] = decimal.Zero
			}
			rows = append(rows, domain.WideRecord{EntityKey: key, Values: values})
		}
		rows[i].Values[r.Year] = r.Value
	}

	slices.SortStableFunc(rows, func(a, b domain.WideRecord) int {
		return a.EntityKey.Compare(b.EntityKey)
	})

	return &WideTable{Years: years, Rows: rows}
}

// Table renders the wide table for the report sink.
func (w *WideTable) Table() *domain.Table {
	cols := []domain.Column{
		domain.Text(ColCode),
		domain.Text(ColMunicipality),
		domain.Text(ColRegistration),
		domain.Text(ColNationalID),
		domain.Text(ColLegalName),
	}
	for _, y := range w.Years {
		cols = append(cols, domain.Money(y))
	}

	t := domain.NewTable(cols...)
	for _, r := range w.Rows {
		cells := []any{r.MunicipalityCode, r.MunicipalityName, r.RegistrationID, r.NationalID, r.LegalName}
		for _, y := range w.Years {
			cells = append(cells, r.Value(y))
		}
		t.Append(cells...)
	}
	return t
}

// MunicipalityGroup is the slice of the wide table sharing one code.
type MunicipalityGroup struct {
	Code string
	Name string
	Rows []domain.WideRecord
}

// ByMunicipality groups rows by municipality code, ordered by code. Names
// that share the unknown-code sentinel end up in one group whose name lists
// all of them.
func (w *WideTable) ByMunicipality() []MunicipalityGroup {
	var groups []MunicipalityGroup
	names := make(map[string][]string)

	for _, r := range w.Rows {
		if len(groups) == 0 || groups[len(groups)-1].Code != r.MunicipalityCode {
			groups = append(groups, MunicipalityGroup{Code: r.MunicipalityCode})
		}
		g := &groups[len(groups)-1]
		g.Rows = append(g.Rows, r)
		if !slices.Contains(names[g.Code], r.MunicipalityName) {
			names[g.Code] = append(names[g.Code], r.MunicipalityName)
		}
	}

	for i := range groups {
		groups[i].Name = strings.Join(names[groups[i].Code], ", ")
	}
	return groups
}
