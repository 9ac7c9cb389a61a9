package analysis

import (
	"context"

	"github.com/montanaflynn/stats"
)

// Percentage is count as a share of total, in percent rounded to two decimals
// (half away from zero). A zero total gives 0.
func Percentage(count, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round(100*float64(count)/float64(total), 2)
}

func round(v float64, places int) float64 {
	r, err := stats.Round(v, places)
	if err != nil {
		return v
	}
	return r
}

// Frequencies returns one record per (sample, population) ordered by sample
// then population.
func (s *Service) Frequencies(ctx context.Context) ([]Frequency, error) {
	rows, err := s.store.Frequencies(ctx)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Percentage = Percentage(rows[i].Count, rows[i].TotalCount)
	}
	return rows, nil
}
