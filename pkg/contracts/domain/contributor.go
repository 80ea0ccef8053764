package domain

import (
	"cmp"

	"github.com/shopspring/decimal"
)

// UnknownMunicipalityCode is assigned to records whose municipality name has
// no entry in the municipality table.
const UnknownMunicipalityCode = "UNK"

// ContributorRecord is one long-form row: the value declared by a tax
// contributor for a single fiscal year.
type ContributorRecord struct {
	MunicipalityCode string          `json:"municipality_code"`
	MunicipalityName string          `json:"municipality_name"`
	RegistrationID   string          `json:"registration_id"` // keeps leading zeros
	NationalID       string          `json:"national_id"`
	LegalName        string          `json:"legal_name"`
	Year             string          `json:"year"`
	Value            decimal.Decimal `json:"value"`
}

// RecordKey is the identity tuple used for deduplication.
type RecordKey struct {
	MunicipalityName string
	RegistrationID   string
	NationalID       string
	LegalName        string
	Year             string
	MunicipalityCode string
}

// Key returns the deduplication key of the record.
func (r ContributorRecord) Key() RecordKey {
	return RecordKey{
		MunicipalityName: r.MunicipalityName,
		RegistrationID:   r.RegistrationID,
		NationalID:       r.NationalID,
		LegalName:        r.LegalName,
		Year:             r.Year,
		MunicipalityCode: r.MunicipalityCode,
	}
}

// Entity returns the contributor identity the record belongs to.
func (r ContributorRecord) Entity() EntityKey {
	return EntityKey{
		MunicipalityCode: r.MunicipalityCode,
		MunicipalityName: r.MunicipalityName,
		RegistrationID:   r.RegistrationID,
		NationalID:       r.NationalID,
		LegalName:        r.LegalName,
	}
}

// EntityKey identifies a contributor within a municipality.
type EntityKey struct {
	MunicipalityCode string `json:"municipality_code"`
	MunicipalityName string `json:"municipality_name"`
	RegistrationID   string `json:"registration_id"`
	NationalID       string `json:"national_id"`
	LegalName        string `json:"legal_name"`
}

// Compare orders entity keys by code, municipality, registration id,
// national id and legal name.
func (k EntityKey) Compare(o EntityKey) int {
	return cmp.Or(
		cmp.Compare(k.MunicipalityCode, o.MunicipalityCode),
		cmp.Compare(k.MunicipalityName, o.MunicipalityName),
		cmp.Compare(k.RegistrationID, o.RegistrationID),
		cmp.Compare(k.NationalID, o.NationalID),
		cmp.Compare(k.LegalName, o.LegalName),
	)
}

// WideRecord is one contributor with a value per fiscal year.
type WideRecord struct {
	EntityKey
	Values map[string]decimal.Decimal `json:"values"`
}

// Value returns the value for year, or zero when the year is absent.
func (w WideRecord) Value(year string) decimal.Decimal {
	if v, ok := w.Values[year]; ok {
		return v
	}
	return decimal.Zero
}

// Sum adds the values of the given years.
func (w WideRecord) Sum(years YearSet) decimal.Decimal {
	total := decimal.Zero
	for _, y := range years {
		total = total.Add(w.Value(y))
	}
	return total
}
