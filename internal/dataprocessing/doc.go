// Package dataprocessing consolidates yearly contributor extracts and derives
// the tables of the value-added evolution report.
//
// # Architecture
//
// The pipeline is a chain of small, mostly pure stages:
//
//	CSV files → Ingestor → Consolidate → RecordStore → Deduplicate
//	          → BuildUnified / BuildWide → ComputeVariations
//	                                     → TrendAnalyzer → Sections
//
// Processor wires them together, runs the per-municipality analysis
// concurrently and isolates failures per file and per municipality.
//
// # Year Schema
//
// The set of fiscal years is established once, from the consolidated store,
// and passed explicitly to every later stage. Wide rows carry a value for
// every schema year, zero when the contributor has no record for it.
//
// # Usage
//
//	ingestor, err := dataprocessing.NewIngestor(cfg.Input, table, logger)
//	if err != nil {
//	    return err
//	}
//	proc := dataprocessing.NewProcessor(cfg, ingestor, metrics, logger)
//	result, err := proc.Run(ctx, files)
//
// # Error Handling
//
// Structural file problems are INGEST errors and skip the file. Malformed
// value cells are replaced by zero and counted. Fewer than two years or an
// empty qualifying subset are INSUFFICIENT_DATA conditions that only empty
// the affected sections.
package dataprocessing
