// Package exporter writes the pipeline result to its outputs.
//
// WorkbookWriter is the report sink: it opens (or creates) the output
// workbook with excelize, replaces the TAB_Unificada, TAB_EvolRazSoc,
// Variacao<code> and Analise<code> sheets, keeps every other sheet, and saves
// through a temporary file. Flat tables are streamed; analysis sections are
// laid out one block after the other with one case per section variant.
//
// CSVWriter produces the optional UTF-8 (BOM) side-exports of the unified
// and wide tables, and YearlyTotalsChart renders the optional PNG chart
// embedded in each analysis sheet.
package exporter
