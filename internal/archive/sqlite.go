// Package archive keeps the consolidated records of every run in SQLite, so
// later runs and ad-hoc queries can compare snapshots without the source
// CSV extracts.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	apperrors "taxtrend/internal/errors"
	"taxtrend/pkg/contracts/domain"
)

// Run describes one archived pipeline run.
type Run struct {
	ID         string
	CreatedAt  time.Time
	Files      int
	Records    int
	Duplicates int
	Years      domain.YearSet
}

// Store is a SQLite archive. It is safe for concurrent use.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) the archive at path and migrates its schema.
// Use ":memory:" for an in-memory archive.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open archive", err).WithContext("path", path)
	}
	// one connection keeps ":memory:" databases alive across calls
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, apperrors.NewStorageError("failed to migrate archive", err).WithContext("path", path)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		files INTEGER NOT NULL,
		records INTEGER NOT NULL,
		duplicates INTEGER NOT NULL,
		years TEXT NOT NULL
	);

	-- values are decimal strings; SQLite REAL would lose cents
	CREATE TABLE IF NOT EXISTS contributor_values (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		municipality_code TEXT NOT NULL,
		municipality_name TEXT NOT NULL,
		registration_id TEXT NOT NULL,
		national_id TEXT NOT NULL,
		legal_name TEXT NOT NULL,
		year TEXT NOT NULL,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_values_run_code
		ON contributor_values(run_id, municipality_code, year);
	CREATE INDEX IF NOT EXISTS idx_values_registration
		ON contributor_values(registration_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRun stores a run and its records in one transaction.
func (s *Store) SaveRun(ctx context.Context, run Run, records []domain.ContributorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorageError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, files, records, duplicates, years) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(time.RFC3339), run.Files, run.Records, run.Duplicates, strings.Join(run.Years, ","))
	if err != nil {
		return apperrors.NewStorageError("failed to insert run", err).WithContext("run_id", run.ID)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO contributor_values
			(run_id, municipality_code, municipality_name, registration_id, national_id, legal_name, year, value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return apperrors.NewStorageError("failed to prepare insert", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, run.ID, r.MunicipalityCode, r.MunicipalityName,
			r.RegistrationID, r.NationalID, r.LegalName, r.Year, r.Value.String()); err != nil {
			return apperrors.NewStorageError("failed to insert record", err).
				WithContext("run_id", run.ID).
				WithContext("registration_id", r.RegistrationID)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStorageError("failed to commit run", err).WithContext("run_id", run.ID)
	}
	return nil
}

// Runs lists archived runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, files, records, duplicates, years FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list runs", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var createdAt, years string
		if err := rows.Scan(&run.ID, &createdAt, &run.Files, &run.Records, &run.Duplicates, &years); err != nil {
			return nil, apperrors.NewStorageError("failed to scan run", err)
		}
		if run.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, apperrors.NewStorageError("invalid run timestamp", err).WithContext("run_id", run.ID)
		}
		if years != "" {
			run.Years = strings.Split(years, ",")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("failed to list runs", err)
	}
	return runs, nil
}

// Records returns the records of a run in archive order.
func (s *Store) Records(ctx context.Context, runID string) ([]domain.ContributorRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT municipality_code, municipality_name, registration_id, national_id, legal_name, year, value
		FROM contributor_values WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to query records", err).WithContext("run_id", runID)
	}
	defer rows.Close()

	var records []domain.ContributorRecord
	for rows.Next() {
		var r domain.ContributorRecord
		var value string
		if err := rows.Scan(&r.MunicipalityCode, &r.MunicipalityName, &r.RegistrationID,
			&r.NationalID, &r.LegalName, &r.Year, &value); err != nil {
			return nil, apperrors.NewStorageError("failed to scan record", err).WithContext("run_id", runID)
		}
		if r.Value, err = decimal.NewFromString(value); err != nil {
			return nil, apperrors.NewStorageError(fmt.Sprintf("invalid stored value %q", value), err).WithContext("run_id", runID)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// YearlyTotals sums a municipality's archived values per year. The sum is
// done in decimal arithmetic rather than by SQLite.
func (s *Store) YearlyTotals(ctx context.Context, runID, code string) ([]domain.YearTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT year, value FROM contributor_values
		WHERE run_id = ? AND municipality_code = ? ORDER BY year`, runID, code)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to query totals", err).WithContext("run_id", runID)
	}
	defer rows.Close()

	var totals []domain.YearTotal
	for rows.Next() {
		var year, value string
		if err := rows.Scan(&year, &value); err != nil {
			return nil, apperrors.NewStorageError("failed to scan total", err).WithContext("run_id", runID)
		}
		v, err := decimal.NewFromString(value)
		if err != nil {
			return nil, apperrors.NewStorageError(fmt.Sprintf("invalid stored value %q", value), err).WithContext("run_id", runID)
		}
		if n := len(totals); n > 0 && totals[n-1].Year == year {
			totals[n-1].Total = totals[n-1].Total.Add(v)
			continue
		}
		totals = append(totals, domain.YearTotal{Year: year, Total: v})
	}
	return totals, rows.Err()
}
