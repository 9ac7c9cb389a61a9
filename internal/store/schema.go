package store

import (
	"context"
	"fmt"
)

const samplesColumns = `
	project TEXT NOT NULL,
	subject TEXT NOT NULL,
	condition TEXT,
	age INTEGER,
	sex TEXT,
	treatment TEXT,
	response TEXT,
	sample_type TEXT,
	time_from_treatment_start INTEGER`

// DuckDB rejects ON DELETE CASCADE and checks unique keys eagerly within a
// transaction, so its tables carry no key constraints; the store enforces
// them under its write lock.
var schemas = map[string][]string{
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS samples (
	sample_id TEXT PRIMARY KEY,` + samplesColumns + `
)`,
		`CREATE TABLE IF NOT EXISTS cell_counts (
	sample_id TEXT NOT NULL,
	cell_type TEXT NOT NULL,
	count INTEGER NOT NULL,
	PRIMARY KEY (sample_id, cell_type),
	FOREIGN KEY (sample_id) REFERENCES samples(sample_id) ON DELETE CASCADE
)`,
	},
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS samples (
	sample_id TEXT PRIMARY KEY,` + samplesColumns + `
)`,
		`CREATE TABLE IF NOT EXISTS cell_counts (
	sample_id TEXT NOT NULL REFERENCES samples(sample_id) ON DELETE CASCADE,
	cell_type TEXT NOT NULL,
	count BIGINT NOT NULL,
	PRIMARY KEY (sample_id, cell_type)
)`,
	},
	DriverDuckDB: {
		`CREATE TABLE IF NOT EXISTS samples (
	sample_id TEXT NOT NULL,` + samplesColumns + `
)`,
		`CREATE TABLE IF NOT EXISTS cell_counts (
	sample_id TEXT NOT NULL,
	cell_type TEXT NOT NULL,
	count BIGINT NOT NULL
)`,
	},
}

func (s *Store) bootstrap(ctx context.Context) error {
	stmts, ok := schemas[s.driver]
	if !ok {
		return fmt.Errorf("no schema for driver %q", s.driver)
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}
