package dataprocessing

import (
	"fmt"

	"github.com/shopspring/decimal"

	apperrors "taxtrend/internal/errors"
	"taxtrend/pkg/contracts/domain"
)

var hundred = decimal.NewFromInt(100)

// PercentChange returns (v2-v1)/v1*100 rounded half to even to two places,
// matching the rounding of the legacy spreadsheets. A change from
// zero counts as a full 100% swing when v2 is non-zero, and 0 otherwise.
func PercentChange(v1, v2 decimal.Decimal) decimal.Decimal {
	return rawPercentChange(v1, v2).RoundBank(2)
}

// rawPercentChange is PercentChange without rounding; classification uses it
// so that values like -0.001% are not rounded into the stable band.
func rawPercentChange(v1, v2 decimal.Decimal) decimal.Decimal {
	if v1.IsZero() {
		if v2.IsZero() {
			return decimal.Zero
		}
		return hundred
	}
	return v2.Sub(v1).Div(v1).Mul(hundred)
}

// VariationLabel is the header of the change column between two years,
// e.g. "22/23 %".
func VariationLabel(from, to string) string {
	return fmt.Sprintf("%s/%s %%", lastTwo(from), lastTwo(to))
}

func lastTwo(year string) string {
	if len(year) < 2 {
		return year
	}
	return year[len(year)-2:]
}

// ComputeVariations builds one table per municipality code with the year
// values interleaved with their consecutive percent changes:
//
//	MUNICIPIO, InscEst, CPF_CNPJ, RazSoc, Y0, Y1, "y0/y1 %", Y2, "y1/y2 %", ...
//
// At least two years are required; otherwise no table is produced.
func ComputeVariations(wide *WideTable, years domain.YearSet) (map[string]*domain.Table, error) {
	if len(years) < 2 {
		return nil, apperrors.NewInsufficientDataError(
			fmt.Sprintf("variation needs at least two years, got %d", len(years)))
	}

	cols := []domain.Column{
		domain.Text(ColMunicipality),
		domain.Text(ColRegistration),
		domain.Text(ColNationalID),
		domain.Text(ColLegalName),
		domain.Money(years[0]),
	}
	for _, p := range years.Pairs() {
		cols = append(cols, domain.Money(p[1]), domain.Percent(VariationLabel(p[0], p[1])))
	}

	tables := make(map[string]*domain.Table)
	for _, g := range wide.ByMunicipality() {
		t := domain.NewTable(cols...)
		for _, r := range g.Rows {
			cells := make([]any, 0, len(cols))
			cells = append(cells, r.MunicipalityName, r.RegistrationID, r.NationalID, r.LegalName, r.Value(years[0]))
			for _, p := range years.Pairs() {
				cells = append(cells, r.Value(p[1]), PercentChange(r.Value(p[0]), r.Value(p[1])))
			}
			t.Append(cells...)
		}
		tables[g.Code] = t
	}
	return tables, nil
}
