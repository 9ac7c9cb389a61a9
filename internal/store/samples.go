package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"cytometry/internal/filter"
)

const selectSamples = `
SELECT sample_id, project, subject, condition, age, sex, treatment, response,
       COALESCE(sample_type, '') AS sample_type,
       COALESCE(time_from_treatment_start, 0) AS time_from_treatment_start
  FROM samples
 WHERE %s
 ORDER BY sample_id`

const selectCounts = `
SELECT c.sample_id, c.cell_type, c.count
  FROM cell_counts c
  JOIN samples s ON s.sample_id = c.sample_id
 WHERE %s
 ORDER BY c.sample_id, c.cell_type`

// ListSamples returns every sample with its nested counts, ordered by id.
func (s *Store) ListSamples(ctx context.Context) ([]Sample, error) {
	return s.FilterSamples(ctx, filter.Spec{})
}

// FilterSamples returns the samples matching spec with their nested counts.
func (s *Store) FilterSamples(ctx context.Context, spec filter.Spec) ([]Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where := filter.Samples.Build(spec)
	samples := []Sample{}
	if err := s.db.SelectContext(ctx, &samples, s.db.Rebind(fmt.Sprintf(selectSamples, where.SQL)), where.Args...); err != nil {
		return nil, fmt.Errorf("select samples: %w", err)
	}

	joined := filter.JoinedSamples.Build(spec)
	var counts []CellCount
	if err := s.db.SelectContext(ctx, &counts, s.db.Rebind(fmt.Sprintf(selectCounts, joined.SQL)), joined.Args...); err != nil {
		return nil, fmt.Errorf("select cell counts: %w", err)
	}

	byID := make(map[string]map[string]int64, len(samples))
	for i := range samples {
		samples[i].CellCounts = map[string]int64{}
		byID[samples[i].SampleID] = samples[i].CellCounts
	}
	for _, c := range counts {
		if m, ok := byID[c.SampleID]; ok {
			m[c.CellType] = c.Count
		}
	}
	return samples, nil
}

// AddSample inserts one sample and its counts atomically.
func (s *Store) AddSample(ctx context.Context, sample Sample) error {
	if err := sample.Validate(); err != nil {
		return err
	}
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var n int64
		if err := tx.GetContext(ctx, &n, tx.Rebind(`SELECT COUNT(*) FROM samples WHERE sample_id = ?`), sample.SampleID); err != nil {
			return fmt.Errorf("check sample %s: %w", sample.SampleID, err)
		}
		if n > 0 {
			return ErrDuplicate{ID: sample.SampleID}
		}
		return insertSample(ctx, tx, sample)
	})
	if err != nil {
		return err
	}
	s.log.WithField("sample_id", sample.SampleID).Debug("sample added")
	return nil
}

// DeleteSample removes a sample and all of its counts.
func (s *Store) DeleteSample(ctx context.Context, id string) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM cell_counts WHERE sample_id = ?`), id); err != nil {
			return fmt.Errorf("delete cell counts: %w", err)
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM samples WHERE sample_id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete sample: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return ErrNotFound{ID: id}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.WithField("sample_id", id).Debug("sample deleted")
	return nil
}

// ReplaceAll clears both tables and loads samples in a single transaction.
// On any error the previous contents are kept.
func (s *Store) ReplaceAll(ctx context.Context, samples []Sample) error {
	seen := make(map[string]struct{}, len(samples))
	for _, sample := range samples {
		if err := sample.Validate(); err != nil {
			return err
		}
		if _, dup := seen[sample.SampleID]; dup {
			return ErrDuplicate{ID: sample.SampleID}
		}
		seen[sample.SampleID] = struct{}{}
	}
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cell_counts`); err != nil {
			return fmt.Errorf("clear cell counts: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM samples`); err != nil {
			return fmt.Errorf("clear samples: %w", err)
		}
		for _, sample := range samples {
			if err := insertSample(ctx, tx, sample); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"samples": len(samples)}).Info("sample store reloaded")
	return nil
}

func insertSample(ctx context.Context, tx *sqlx.Tx, sample Sample) error {
	_, err := tx.NamedExecContext(ctx, `
INSERT INTO samples
  (sample_id, project, subject, condition, age, sex,
   treatment, response, sample_type, time_from_treatment_start)
VALUES (:sample_id, :project, :subject, :condition, :age, :sex,
   :treatment, :response, :sample_type, :time_from_treatment_start)`, sample)
	if err != nil {
		return fmt.Errorf("insert sample %s: %w", sample.SampleID, err)
	}
	cellTypes := make([]string, 0, len(sample.CellCounts))
	for ct := range sample.CellCounts {
		cellTypes = append(cellTypes, ct)
	}
	sort.Strings(cellTypes)
	for _, ct := range cellTypes {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO cell_counts (sample_id, cell_type, count) VALUES (?, ?, ?)`),
			sample.SampleID, ct, sample.CellCounts[ct]); err != nil {
			return fmt.Errorf("insert %s count for %s: %w", ct, sample.SampleID, err)
		}
	}
	return nil
}
