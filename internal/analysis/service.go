// Package analysis derives population frequencies, cohort summaries and
// responder comparisons from the sample store.
package analysis

import (
	"context"

	"github.com/sirupsen/logrus"

	"cytometry/internal/filter"
	"cytometry/internal/stats"
	"cytometry/internal/store"
)

// Store is the read side of the sample store used by Service.
type Store interface {
	Frequencies(ctx context.Context) ([]store.Frequency, error)
	ResponseRows(ctx context.Context, spec filter.Spec) ([]store.ResponseRow, error)
	Tally(ctx context.Context, spec filter.Spec, column store.TallyColumn, distinctSubjects bool) (map[string]int64, error)
}

// RankSumFunc runs a two-sided rank-sum test.
type RankSumFunc func(x, y []float64) (stats.Result, error)

// Service answers the analytical queries.
type Service struct {
	store   Store
	rankSum RankSumFunc
	log     logrus.FieldLogger
}

// NewService constructs a Service over st.
func NewService(st Store, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{store: st, rankSum: stats.MannWhitneyU, log: log}
}
