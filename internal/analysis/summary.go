package analysis

import (
	"context"

	"cytometry/internal/filter"
	"cytometry/internal/store"
)

// FilterSummary tallies the samples matching spec: samples per project and
// distinct subjects per response and per sex.
func (s *Service) FilterSummary(ctx context.Context, spec filter.Spec) (Summary, error) {
	var (
		out Summary
		err error
	)
	if out.SamplesByProject, err = s.store.Tally(ctx, spec, store.TallyProject, false); err != nil {
		return Summary{}, err
	}
	if out.SubjectsByResponse, err = s.store.Tally(ctx, spec, store.TallyResponse, true); err != nil {
		return Summary{}, err
	}
	if out.SubjectsBySex, err = s.store.Tally(ctx, spec, store.TallySex, true); err != nil {
		return Summary{}, err
	}
	return out, nil
}

// BaselineSummary is FilterSummary over the pre-treatment melanoma/miraclib
// PBMC cohort.
func (s *Service) BaselineSummary(ctx context.Context) (Summary, error) {
	return s.FilterSummary(ctx, filter.Baseline)
}
