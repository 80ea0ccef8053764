package config

import "taxtrend/pkg/contracts"

// Application constants
const (
	AppName    = "taxtrend"
	AppVersion = contracts.Version

	// EnvPrefix namespaces every environment override, e.g.
	// TAXTREND_ANALYSIS_INITIAL_YEAR.
	EnvPrefix = "TAXTREND"

	// File Paths (relative to the base directory)
	DefaultInputDir   = "data/input"
	DefaultOutputDir  = "data/output"
	DefaultOutputFile = "EvolucaoValorAdicionado.xlsx"

	// Number formats
	DefaultAccountingFormat = `_-"R$"* #,##0.00_-;-"R$"* #,##0.00_-;_-"R$"* "-"??_-;_-@_-`
	DefaultPercentFormat    = `0.00"%"`
)

// Sheet names of the generated workbook
const (
	SheetUnified         = "TAB_Unificada"
	SheetWide            = "TAB_EvolRazSoc"
	SheetVariationPrefix = "Variacao"
	SheetAnalysisPrefix  = "Analise"
)

// CSV side-export file names
const (
	UnifiedCSVFile = "unified.csv"
	WideCSVFile    = "wide.csv"
)
