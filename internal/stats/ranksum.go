// Package stats implements the two-sided Mann-Whitney U rank-sum test.
package stats

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// ErrEmptySample is returned when either group has no observations.
var ErrEmptySample = errors.New("rank-sum: both samples must be non-empty")

// ErrNaN is returned when an observation is NaN.
var ErrNaN = errors.New("rank-sum: NaN observation")

// exactMaxSize is the largest smaller-group size for which the exact null
// distribution is used when there are no ties.
const exactMaxSize = 8

// Method identifies how a p-value was obtained.
type Method string

const (
	Exact      Method = "exact"
	Asymptotic Method = "asymptotic"
)

// Result holds the test statistic and two-sided p-value.
type Result struct {
	// U1 is the statistic for the first sample.
	U1 float64
	// U is max(U1, n1*n2-U1).
	U      float64
	PValue float64
	Method Method
}

type obs struct {
	v     float64
	first bool
}

// MannWhitneyU compares x and y with a two-sided rank-sum test. Ties get
// average ranks. Without ties and with a small group the exact distribution
// is used; otherwise the normal approximation with tie and continuity
// correction.
func MannWhitneyU(x, y []float64) (Result, error) {
	n1, n2 := len(x), len(y)
	if n1 == 0 || n2 == 0 {
		return Result{}, ErrEmptySample
	}
	all := make([]obs, 0, n1+n2)
	for _, v := range x {
		if math.IsNaN(v) {
			return Result{}, ErrNaN
		}
		all = append(all, obs{v: v, first: true})
	}
	for _, v := range y {
		if math.IsNaN(v) {
			return Result{}, ErrNaN
		}
		all = append(all, obs{v: v})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].v < all[j].v })

	n := len(all)
	var r1, tieTerm float64
	for i := 0; i < n; {
		j := i
		for j < n && all[j].v == all[i].v {
			j++
		}
		rank := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			if all[k].first {
				r1 += rank
			}
		}
		if t := float64(j - i); t > 1 {
			tieTerm += t*t*t - t
		}
		i = j
	}

	fn1, fn2 := float64(n1), float64(n2)
	u1 := r1 - fn1*(fn1+1)/2
	u := math.Max(u1, fn1*fn2-u1)
	res := Result{U1: u1, U: u}

	if tieTerm == 0 && min(n1, n2) <= exactMaxSize {
		res.Method = Exact
		res.PValue = math.Min(1, 2*exactSurvival(n1, n2, int(math.Round(u))))
		return res, nil
	}

	res.Method = Asymptotic
	fn := float64(n)
	sigma := math.Sqrt(fn1 * fn2 / 12 * ((fn + 1) - tieTerm/(fn*(fn-1))))
	if sigma == 0 {
		res.PValue = 1
		return res, nil
	}
	z := (u - fn1*fn2/2 - 0.5) / sigma
	res.PValue = math.Min(1, 2*distuv.UnitNormal.Survival(z))
	return res, nil
}

// exactSurvival returns P(U >= u) under the null hypothesis for group sizes
// n1 and n2. The counts of U values are the coefficients of the Gaussian
// binomial [n1+n2 choose m]_q with m = min(n1, n2), built up one factor at a
// time so every intermediate polynomial has non-negative coefficients.
func exactSurvival(n1, n2, u int) float64 {
	m, k := min(n1, n2), max(n1, n2)
	coef := []float64{1}
	for i := 1; i <= m; i++ {
		// multiply by (1 - q^(k+i))
		next := make([]float64, len(coef)+k+i)
		copy(next, coef)
		for d, c := range coef {
			next[d+k+i] -= c
		}
		// divide by (1 - q^i)
		for d := i; d < len(next); d++ {
			next[d] += next[d-i]
		}
		coef = next[:i*k+1]
	}
	var total, tail float64
	for d, c := range coef {
		total += c
		if d >= u {
			tail += c
		}
	}
	return tail / total
}
