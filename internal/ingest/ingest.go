// Package ingest reads the cohort CSV upload into samples.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"gopkg.in/guregu/null.v3"

	"cytometry/internal/store"
)

// ErrMalformed wraps every problem with the uploaded file itself.
var ErrMalformed = errors.New("malformed csv")

// Columns every upload must carry, besides the populations.
var requiredColumns = []string{
	"sample", "project", "subject", "condition", "age", "sex",
	"treatment", "sample_type", "time_from_treatment_start",
}

type record struct {
	Sample                 string `csv:"sample"`
	Project                string `csv:"project"`
	Subject                string `csv:"subject"`
	Condition              string `csv:"condition"`
	Age                    string `csv:"age"`
	Sex                    string `csv:"sex"`
	Treatment              string `csv:"treatment"`
	Response               string `csv:"response"`
	SampleType             string `csv:"sample_type"`
	TimeFromTreatmentStart string `csv:"time_from_treatment_start"`
	BCell                  string `csv:"b_cell"`
	CD8TCell               string `csv:"cd8_t_cell"`
	CD4TCell               string `csv:"cd4_t_cell"`
	NKCell                 string `csv:"nk_cell"`
	Monocyte               string `csv:"monocyte"`
}

func (r record) counts() (map[string]int64, error) {
	cells := map[string]string{
		"b_cell":     r.BCell,
		"cd8_t_cell": r.CD8TCell,
		"cd4_t_cell": r.CD4TCell,
		"nk_cell":    r.NKCell,
		"monocyte":   r.Monocyte,
	}
	out := make(map[string]int64, len(cells))
	for _, pop := range store.Populations {
		n, err := parseInt(pop, cells[pop])
		if err != nil {
			return nil, err
		}
		out[pop] = n
	}
	return out, nil
}

// ReadSamples parses an upload. Every row becomes one sample carrying the
// five population counts. Counts and time must be integers; beyond that the
// store validates on insert.
func ReadSamples(in io.Reader) ([]store.Sample, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if err := checkHeader(data); err != nil {
		return nil, err
	}

	records := []record{}
	if err := gocsv.UnmarshalBytes(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	out := make([]store.Sample, 0, len(records))
	for i, r := range records {
		row := i + 2
		age, err := parseAge(r.Age)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformed, row, err)
		}
		days, err := parseInt("time_from_treatment_start", r.TimeFromTreatmentStart)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformed, row, err)
		}
		counts, err := r.counts()
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformed, row, err)
		}
		out = append(out, store.Sample{
			SampleID:               strings.TrimSpace(r.Sample),
			Project:                strings.TrimSpace(r.Project),
			Subject:                strings.TrimSpace(r.Subject),
			Condition:              optional(r.Condition),
			Age:                    age,
			Sex:                    optional(r.Sex),
			Treatment:              optional(r.Treatment),
			Response:               optional(r.Response),
			SampleType:             strings.TrimSpace(r.SampleType),
			TimeFromTreatmentStart: days,
			CellCounts:             counts,
		})
	}
	return out, nil
}

func checkHeader(data []byte) error {
	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: empty file", ErrMalformed)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[strings.TrimSpace(col)] = true
	}
	var missing []string
	for _, col := range append(append([]string{}, requiredColumns...), store.Populations...) {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing columns %s", ErrMalformed, strings.Join(missing, ", "))
	}
	return nil
}

func optional(v string) null.String {
	v = strings.TrimSpace(v)
	if v == "" {
		return null.String{}
	}
	return null.StringFrom(v)
}

// parseInt reads a required integer cell. Empty cells are rejected.
func parseInt(column, v string) (int64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, fmt.Errorf("empty %s", column)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not an integer", column, v)
	}
	return n, nil
}

// parseAge accepts whole numbers, also when written as "57.0".
func parseAge(v string) (null.Int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return null.Int{}, nil
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return null.IntFrom(n), nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return null.Int{}, fmt.Errorf("age %q is not a whole number", v)
	}
	return null.IntFrom(int64(f)), nil
}
