package store

import (
	"context"
	"fmt"

	"cytometry/internal/filter"
)

// UnknownBucket labels tallies over a null response or sex.
const UnknownBucket = "unknown"

const totalsCTE = `
WITH totals AS (
  SELECT sample_id, CAST(SUM(count) AS BIGINT) AS total_count
    FROM cell_counts
   GROUP BY sample_id
)`

// Frequencies returns one row per (sample, population) with the sample's
// total count, ordered by sample then population. Samples with no count rows
// are absent.
func (s *Store) Frequencies(ctx context.Context) ([]Frequency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := []Frequency{}
	err := s.db.SelectContext(ctx, &rows, totalsCTE+`
SELECT c.sample_id AS sample,
       t.total_count AS total_count,
       c.cell_type AS population,
       c.count AS count
  FROM cell_counts c
  JOIN totals t ON t.sample_id = c.sample_id
 ORDER BY c.sample_id, c.cell_type`)
	if err != nil {
		return nil, fmt.Errorf("select frequencies: %w", err)
	}
	return rows, nil
}

// Response labels accepted by ResponseRows, matched exactly.
const (
	ResponseYes = "yes"
	ResponseNo  = "no"
)

// ResponseRows returns the population counts of samples matching spec whose
// response is exactly "yes" or "no", ordered by population then sample.
func (s *Store) ResponseRows(ctx context.Context, spec filter.Spec) ([]ResponseRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where := filter.JoinedSamples.Build(spec)
	args := append(append([]any{}, where.Args...), ResponseYes, ResponseNo)
	query := totalsCTE + fmt.Sprintf(`
SELECT s.sample_id AS sample_id,
       s.response AS response,
       c.cell_type AS population,
       c.count AS count,
       t.total_count AS total_count
  FROM cell_counts c
  JOIN totals t ON t.sample_id = c.sample_id
  JOIN samples s ON s.sample_id = c.sample_id
 WHERE %s
   AND (s.response = ? OR s.response = ?)
 ORDER BY c.cell_type, s.sample_id`, where.SQL)

	rows := []ResponseRow{}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("select response rows: %w", err)
	}
	return rows, nil
}

// TallyColumn is a samples column that may be grouped on.
type TallyColumn string

// Columns accepted by Tally.
const (
	TallyProject  TallyColumn = "project"
	TallyResponse TallyColumn = "response"
	TallySex      TallyColumn = "sex"
)

// Tally groups the samples matching spec by column. With distinctSubjects it
// counts distinct subjects per group, otherwise samples. Null groups are
// reported under UnknownBucket.
func (s *Store) Tally(ctx context.Context, spec filter.Spec, column TallyColumn, distinctSubjects bool) (map[string]int64, error) {
	switch column {
	case TallyProject, TallyResponse, TallySex:
	default:
		return nil, fmt.Errorf("tally: unsupported column %q", column)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg := "COUNT(*)"
	if distinctSubjects {
		agg = "COUNT(DISTINCT subject)"
	}
	where := filter.Samples.Build(spec)
	query := fmt.Sprintf(`
SELECT COALESCE(%s, ?) AS bucket, %s AS n
  FROM samples
 WHERE %s
 GROUP BY 1`, column, agg, where.SQL)
	args := append([]any{UnknownBucket}, where.Args...)

	var rows []struct {
		Bucket string `db:"bucket"`
		N      int64  `db:"n"`
	}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("tally %s: %w", column, err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Bucket] = r.N
	}
	return out, nil
}
