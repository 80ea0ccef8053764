package domain

import (
	"github.com/shopspring/decimal"
)

// TrendClass labels the direction of a contributor's variation.
type TrendClass string

const (
	TrendGrowth  TrendClass = "CRESCIMENTO"
	TrendStable  TrendClass = "ESTÁVEL"
	TrendDecline TrendClass = "DECLÍNIO"
)

// TrendClasses lists the classes in report order.
var TrendClasses = []TrendClass{TrendGrowth, TrendStable, TrendDecline}

// YearTotal is the municipal sum of contributor values for one year.
type YearTotal struct {
	Year  string          `json:"year"`
	Total decimal.Decimal `json:"total"`
}

// TrendCounts holds the number of qualifying contributors per class.
// Growth+Stable+Decline always equals the qualifying subset size; the
// significant counts are informational subsets of Growth and Decline.
type TrendCounts struct {
	Growth             int `json:"growth"`
	Stable             int `json:"stable"`
	Decline            int `json:"decline"`
	SignificantGrowth  int `json:"significant_growth"`
	SignificantDecline int `json:"significant_decline"`
}

// Total returns the number of classified contributors.
func (c TrendCounts) Total() int {
	return c.Growth + c.Stable + c.Decline
}

// TrendEntry is one ranked contributor in a trend table.
type TrendEntry struct {
	LegalName      string          `json:"legal_name"`
	RegistrationID string          `json:"registration_id"`
	StartValue     decimal.Decimal `json:"start_value"`
	EndValue       decimal.Decimal `json:"end_value"`
	PercentChange  decimal.Decimal `json:"percent_change"`
	AbsoluteChange decimal.Decimal `json:"absolute_change"`
}

// TrendRanking is the top-N per class between two years.
type TrendRanking struct {
	StartYear string                      `json:"start_year"`
	EndYear   string                      `json:"end_year"`
	Groups    map[TrendClass][]TrendEntry `json:"groups"`
}

// DeviationEntry ranks a contributor by the spread of its yearly values.
type DeviationEntry struct {
	LegalName      string  `json:"legal_name"`
	RegistrationID string  `json:"registration_id"`
	StdDev         float64 `json:"std_dev"`
	Mean           float64 `json:"mean"`
	Median         float64 `json:"median"`
}

// ContributorShare is a contributor and its latest-year value.
type ContributorShare struct {
	LegalName      string          `json:"legal_name"`
	RegistrationID string          `json:"registration_id"`
	Value          decimal.Decimal `json:"value"`
}

// AnalysisBundle is the full statistical analysis of one municipality.
type AnalysisBundle struct {
	MunicipalityCode string `json:"municipality_code"`
	MunicipalityName string `json:"municipality_name"`

	InitialYear     string `json:"initial_year"`
	PenultimateYear string `json:"penultimate_year"`
	LastYear        string `json:"last_year"`

	YearlyTotals     []YearTotal `json:"yearly_totals"`
	ContributorCount int         `json:"contributor_count"`
	QualifyingCount  int         `json:"qualifying_count"`
	TrendCounts      TrendCounts `json:"trend_counts"`

	// LastPeriod and FullPeriod are nil when fewer than two years exist.
	LastPeriod *TrendRanking `json:"last_period,omitempty"`
	FullPeriod *TrendRanking `json:"full_period,omitempty"`

	Deviation       []DeviationEntry   `json:"deviation"`
	TopContributors []ContributorShare `json:"top_contributors"`
	ZeroMovement    []EntityKey        `json:"zero_movement"`

	// Issues records per-section insufficient-data conditions.
	Issues []error `json:"-"`
}

// AnalysisSection is one block of an analysis sheet. The concrete types are
// ScalarSection, TableSection and TrendGroupSection.
type AnalysisSection interface {
	SectionTitle() string
	isAnalysisSection()
}

// ScalarSection is a single labelled value.
type ScalarSection struct {
	Title string
	Value any
	Kind  ColumnKind
}

// TableSection is a titled table with an optional footnote.
type TableSection struct {
	Title string
	Table *Table
	Note  string
}

// TrendGroupSection is a titled list of labelled tables, one per trend class.
type TrendGroupSection struct {
	Title  string
	Groups []TrendGroup
}

// TrendGroup is one labelled table within a TrendGroupSection.
type TrendGroup struct {
	Label string
	Table *Table
}

func (s ScalarSection) SectionTitle() string     { return s.Title }
func (s TableSection) SectionTitle() string      { return s.Title }
func (s TrendGroupSection) SectionTitle() string { return s.Title }

func (ScalarSection) isAnalysisSection()     {}
func (TableSection) isAnalysisSection()      {}
func (TrendGroupSection) isAnalysisSection() {}
