package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cohortOf(prefix string, n int) []Sample {
	out := make([]Sample, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, sample(fmt.Sprintf("%s%d", prefix, i), fmt.Sprintf("sbj-%s%d", prefix, i),
			map[string]int64{"b_cell": 10, "nk_cell": 30}))
	}
	return out
}

// checkSnapshot reports an error unless ids form exactly one of the cohorts.
func checkSnapshot(ids []string, cohorts ...[]Sample) error {
	for _, c := range cohorts {
		if len(ids) != len(c) {
			continue
		}
		match := true
		for i := range c {
			if ids[i] != c[i].SampleID {
				match = false
				break
			}
		}
		if match {
			return nil
		}
	}
	return fmt.Errorf("partial snapshot: %v", ids)
}

func TestReplaceAllIsAtomicForConcurrentReaders(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	oldSet, newSet := cohortOf("a", 3), cohortOf("b", 5)
	require.NoError(t, s.ReplaceAll(ctx, oldSet))

	const rounds = 40
	done := make(chan struct{})
	errs := make(chan error, 64)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		for i := 0; i < rounds; i++ {
			next := newSet
			if i%2 == 1 {
				next = oldSet
			}
			if err := s.ReplaceAll(ctx, next); err != nil {
				errs <- err
				return
			}
		}
	}()

	for r := 0; r < 2; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				samples, err := s.ListSamples(ctx)
				if err != nil {
					errs <- err
					return
				}
				ids := make([]string, 0, len(samples))
				for _, smp := range samples {
					if len(smp.CellCounts) != 2 {
						errs <- fmt.Errorf("sample %s has %d counts", smp.SampleID, len(smp.CellCounts))
						return
					}
					ids = append(ids, smp.SampleID)
				}
				if err := checkSnapshot(ids, oldSet, newSet); err != nil {
					errs <- err
					return
				}

				freqs, err := s.Frequencies(ctx)
				if err != nil {
					errs <- err
					return
				}
				if len(freqs) != 2*len(oldSet) && len(freqs) != 2*len(newSet) {
					errs <- fmt.Errorf("partial frequencies: %d rows", len(freqs))
					return
				}
				for _, f := range freqs {
					if f.TotalCount != 40 {
						errs <- fmt.Errorf("sample %s total %d", f.Sample, f.TotalCount)
						return
					}
				}
			}
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	// the last round (odd) restores the old set
	got, err := s.ListSamples(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, smp := range got {
		ids = append(ids, smp.SampleID)
	}
	assert.NoError(t, checkSnapshot(ids, oldSet))
}

func TestWritersAreSerialised(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			if err := s.ReplaceAll(ctx, cohortOf(fmt.Sprintf("w%d-", w), w+1)); err != nil {
				errs <- err
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	got, err := s.ListSamples(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	ids := make([]string, 0, len(got))
	for _, smp := range got {
		ids = append(ids, smp.SampleID)
	}
	var cohorts [][]Sample
	for w := 0; w < writers; w++ {
		cohorts = append(cohorts, cohortOf(fmt.Sprintf("w%d-", w), w+1))
	}
	assert.NoError(t, checkSnapshot(ids, cohorts...))
}
