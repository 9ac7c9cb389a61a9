package store

import (
	"strings"

	"gopkg.in/guregu/null.v3"
)

// Populations is the fixed set of cell populations carried by ingested files.
// The store itself accepts any population name.
var Populations = []string{"b_cell", "cd8_t_cell", "cd4_t_cell", "nk_cell", "monocyte"}

// Sample is one biological specimen together with its population counts.
type Sample struct {
	SampleID               string           `json:"sample_id" db:"sample_id"`
	Project                string           `json:"project" db:"project"`
	Subject                string           `json:"subject" db:"subject"`
	Condition              null.String      `json:"condition" db:"condition"`
	Age                    null.Int         `json:"age" db:"age"`
	Sex                    null.String      `json:"sex" db:"sex"`
	Treatment              null.String      `json:"treatment" db:"treatment"`
	Response               null.String      `json:"response" db:"response"`
	SampleType             string           `json:"sample_type" db:"sample_type"`
	TimeFromTreatmentStart int64            `json:"time_from_treatment_start" db:"time_from_treatment_start"`
	CellCounts             map[string]int64 `json:"cell_counts" db:"-"`
}

// CellCount is the raw count of one population within one sample.
type CellCount struct {
	SampleID string `db:"sample_id"`
	CellType string `db:"cell_type"`
	Count    int64  `db:"count"`
}

// Validate checks the fields the schema requires and that counts are non-negative.
func (s Sample) Validate() error {
	switch {
	case strings.TrimSpace(s.SampleID) == "":
		return ErrInvalid{Reason: "sample_id is required"}
	case strings.TrimSpace(s.Project) == "":
		return ErrInvalid{Reason: "project is required for sample " + s.SampleID}
	case strings.TrimSpace(s.Subject) == "":
		return ErrInvalid{Reason: "subject is required for sample " + s.SampleID}
	}
	for cellType, n := range s.CellCounts {
		if strings.TrimSpace(cellType) == "" {
			return ErrInvalid{Reason: "empty population name for sample " + s.SampleID}
		}
		if n < 0 {
			return ErrInvalid{Reason: "negative " + cellType + " count for sample " + s.SampleID}
		}
	}
	return nil
}

// Frequency is one (sample, population) row joined with the sample's total.
// Percentage is left for the caller to derive.
type Frequency struct {
	Sample     string  `json:"sample" db:"sample"`
	TotalCount int64   `json:"total_count" db:"total_count"`
	Population string  `json:"population" db:"population"`
	Count      int64   `json:"count" db:"count"`
	Percentage float64 `json:"percentage" db:"-"`
}

// ResponseRow is a population count for a sample with a yes/no response label.
type ResponseRow struct {
	SampleID   string `db:"sample_id"`
	Response   string `db:"response"`
	Population string `db:"population"`
	Count      int64  `db:"count"`
	TotalCount int64  `db:"total_count"`
}
