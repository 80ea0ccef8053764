package dataprocessing

import (
	"context"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"sort"

	apperrors "taxtrend/internal/errors"
	"taxtrend/pkg/contracts/domain"
)

// FileIngestor turns one source file into long-form records.
type FileIngestor interface {
	Ingest(ctx context.Context, path string) (*IngestResult, error)
}

// RecordStore holds the consolidated long-form dataset.
type RecordStore struct {
	records []domain.ContributorRecord
	years   map[string]struct{}
}

// NewRecordStore creates an empty store.
func NewRecordStore() *RecordStore {
	return &RecordStore{years: make(map[string]struct{})}
}

// Add appends records in order.
func (s *RecordStore) Add(records ...domain.ContributorRecord) {
	for _, r := range records {
		s.years[r.Year] = struct{}{}
	}
	s.records = append(s.records, records...)
}

// DedupStats reports the record count around a deduplication pass.
type DedupStats struct {
	Before int
	After  int
}

// Dropped returns the number of removed duplicates.
func (d DedupStats) Dropped() int { return d.Before - d.After }

// Deduplicate removes records whose identity tuple was already seen, keeping
// the first occurrence. Calling it again is a no-op.
func (s *RecordStore) Deduplicate() DedupStats {
	stats := DedupStats{Before: len(s.records)}

	seen := make(map[domain.RecordKey]struct{}, len(s.records))
	kept := s.records[:0]
	for _, r := range s.records {
		k := r.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, r)
	}
	clear(s.records[len(kept):])
	s.records = kept

	stats.After = len(s.records)
	return stats
}

// Records returns a copy of the records in insertion order.
func (s *RecordStore) Records() []domain.ContributorRecord {
	return slices.Clone(s.records)
}

// Years returns the schema: every year present in the store, ascending.
func (s *RecordStore) Years() domain.YearSet {
	return domain.YearSet(slices.Sorted(maps.Keys(s.years)))
}

// Len returns the number of records.
func (s *RecordStore) Len() int { return len(s.records) }

// FileFailure is a source file that could not be ingested.
type FileFailure struct {
	File string
	Err  error
}

// ConsolidationReport summarises a Consolidate call.
type ConsolidationReport struct {
	Files          []string
	Failures       []FileFailure
	Rows           int
	Records        int
	BlankRows      int
	MalformedCells int
}

// Ingested returns the number of files that were read successfully.
func (r *ConsolidationReport) Ingested() int { return len(r.Files) }

// Consolidate ingests files in lexicographic order of their base name and
// builds a store from the ones that succeed. Per-file failures are listed in
// the report; only context cancellation aborts.
func Consolidate(ctx context.Context, files []string, ingestor FileIngestor, logger *slog.Logger) (*RecordStore, *ConsolidationReport, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ordered := slices.Clone(files)
	sort.SliceStable(ordered, func(i, j int) bool {
		bi, bj := filepath.Base(ordered[i]), filepath.Base(ordered[j])
		if bi != bj {
			return bi < bj
		}
		return ordered[i] < ordered[j]
	})

	store := NewRecordStore()
	report := &ConsolidationReport{}

	for _, path := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}

		res, err := ingestor.Ingest(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return nil, report, ctx.Err()
			}
			logger.ErrorContext(ctx, "Skipping file",
				slog.String("file", filepath.Base(path)),
				slog.String("error", err.Error()))
			report.Failures = append(report.Failures, FileFailure{File: filepath.Base(path), Err: err})
			continue
		}

		store.Add(res.Records...)
		report.Files = append(report.Files, res.File)
		report.Rows += res.Rows
		report.Records += len(res.Records)
		report.BlankRows += res.BlankRows
		report.MalformedCells += res.MalformedCells
	}

	if report.Ingested() == 0 {
		return nil, report, apperrors.NewIngestError("*", "no input file could be ingested", nil).
			WithContext("failed", len(report.Failures))
	}

	logger.InfoContext(ctx, "Consolidation complete",
		slog.Int("files", report.Ingested()),
		slog.Int("failed", len(report.Failures)),
		slog.Int("records", store.Len()),
		slog.Int("blank_rows", report.BlankRows),
		slog.Any("years", store.Years()))

	return store, report, nil
}
