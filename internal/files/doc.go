// Package files discovers the yearly CSV extracts and stages output files.
//
// Discovery lists input files in lexicographic order, which fixes the
// first-seen order consolidation relies on. TempPath and ReplaceFile let
// writers produce a complete file beside the destination and swap it in, so
// an interrupted run never leaves a half-written report.
//
//	d := files.NewDiscovery(baseDir)
//	inputs, err := d.FindCSVFiles("data/input")
package files
