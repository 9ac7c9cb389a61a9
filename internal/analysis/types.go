package analysis

import (
	"gopkg.in/guregu/null.v3"

	"cytometry/internal/store"
)

// Frequency is a population's share of its sample's total count.
type Frequency = store.Frequency

// Summary holds the three grouped tallies over a cohort.
type Summary struct {
	SamplesByProject   map[string]int64 `json:"samples_by_project"`
	SubjectsByResponse map[string]int64 `json:"subjects_by_response"`
	SubjectsBySex      map[string]int64 `json:"subjects_by_sex"`
}

// ResponseComparison contrasts responder and non-responder frequencies of one
// population.
type ResponseComparison struct {
	Population         string     `json:"population"`
	Responders         []float64  `json:"responders"`
	NonResponders      []float64  `json:"non_responders"`
	PValue             float64    `json:"p_value"`
	Significant        bool       `json:"significant"`
	ResponderMedian    null.Float `json:"responder_median"`
	NonResponderMedian null.Float `json:"non_responder_median"`
}
