package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/sirupsen/logrus"
	"gopkg.in/guregu/null.v3"

	"cytometry/internal/filter"
	"cytometry/internal/metrics"
	"cytometry/internal/store"
)

const (
	// MinGroupSize is the smallest group on either side for which a p-value
	// is computed.
	MinGroupSize = 2
	// SignificanceLevel marks a comparison as significant.
	SignificanceLevel = 0.05
)

// ResponseAnalysis compares, per population, the frequencies of responders
// ("yes") and non-responders ("no") among samples matching spec. The time
// field of spec is ignored. Populations are returned in name order.
func (s *Service) ResponseAnalysis(ctx context.Context, spec filter.Spec) ([]ResponseComparison, error) {
	rows, err := s.store.ResponseRows(ctx, spec.WithoutTime())
	if err != nil {
		return nil, err
	}

	groups := map[string]map[string][]float64{}
	for _, r := range rows {
		g, ok := groups[r.Population]
		if !ok {
			g = map[string][]float64{}
			groups[r.Population] = g
		}
		label := strings.ToLower(r.Response)
		g[label] = append(g[label], Percentage(r.Count, r.TotalCount))
	}

	populations := make([]string, 0, len(groups))
	for pop := range groups {
		populations = append(populations, pop)
	}
	sort.Strings(populations)

	out := make([]ResponseComparison, 0, len(populations))
	for _, pop := range populations {
		g := groups[pop]
		cmp, tested, err := compare(pop, g[store.ResponseYes], g[store.ResponseNo], s.rankSum)
		if err != nil {
			return nil, err
		}
		if tested {
			metrics.RecordRankSum(metrics.RankSumComputed)
		} else {
			metrics.RecordRankSum(metrics.RankSumInsufficient)
		}
		out = append(out, cmp)
	}
	s.log.WithFields(logrus.Fields{"populations": len(out), "rows": len(rows)}).Debug("response analysis")
	return out, nil
}

// compare builds the comparison for one population. The test only runs when
// both groups reach MinGroupSize; otherwise the p-value is 1.
func compare(population string, yes, no []float64, test RankSumFunc) (ResponseComparison, bool, error) {
	if yes == nil {
		yes = []float64{}
	}
	if no == nil {
		no = []float64{}
	}
	cmp := ResponseComparison{
		Population:         population,
		Responders:         yes,
		NonResponders:      no,
		PValue:             1,
		ResponderMedian:    median(yes),
		NonResponderMedian: median(no),
	}
	if len(yes) < MinGroupSize || len(no) < MinGroupSize {
		return cmp, false, nil
	}
	res, err := test(yes, no)
	if err != nil {
		return ResponseComparison{}, false, fmt.Errorf("rank-sum for %s: %w", population, err)
	}
	cmp.PValue = round(res.PValue, 4)
	cmp.Significant = cmp.PValue < SignificanceLevel
	return cmp, true, nil
}

func median(values []float64) null.Float {
	if len(values) == 0 {
		return null.Float{}
	}
	m, err := stats.Median(values)
	if err != nil {
		return null.Float{}
	}
	return null.FloatFrom(m)
}
