// Package filter turns the optional sample filters accepted by the API into a
// conjunctive SQL predicate with bound arguments.
package filter

import (
	"strings"

	"gopkg.in/guregu/null.v3"
)

// Spec is a sparse set of equality filters over sample columns. Invalid
// (absent or JSON null) fields place no constraint.
type Spec struct {
	Condition              null.String `json:"condition"`
	Treatment              null.String `json:"treatment"`
	SampleType             null.String `json:"sample_type"`
	TimeFromTreatmentStart null.Int    `json:"time_from_treatment_start"`
}

// Baseline selects the pre-treatment melanoma/miraclib PBMC cohort.
var Baseline = Spec{
	Condition:              null.StringFrom("melanoma"),
	Treatment:              null.StringFrom("miraclib"),
	SampleType:             null.StringFrom("PBMC"),
	TimeFromTreatmentStart: null.IntFrom(0),
}

// Clause is one equality constraint: Column = Value.
type Clause struct {
	Column string
	Value  any
}

// Clauses lists the present fields in a fixed column order.
func (s Spec) Clauses() []Clause {
	var out []Clause
	if s.Condition.Valid {
		out = append(out, Clause{Column: "condition", Value: s.Condition.String})
	}
	if s.Treatment.Valid {
		out = append(out, Clause{Column: "treatment", Value: s.Treatment.String})
	}
	if s.SampleType.Valid {
		out = append(out, Clause{Column: "sample_type", Value: s.SampleType.String})
	}
	if s.TimeFromTreatmentStart.Valid {
		out = append(out, Clause{Column: "time_from_treatment_start", Value: s.TimeFromTreatmentStart.Int64})
	}
	return out
}

// WithoutTime returns a copy of s with the time constraint removed.
func (s Spec) WithoutTime() Spec {
	s.TimeFromTreatmentStart = null.Int{}
	return s
}

// IsEmpty reports whether s constrains nothing.
func (s Spec) IsEmpty() bool {
	return len(s.Clauses()) == 0
}

// Predicate is a WHERE expression and the values for its placeholders, in order.
type Predicate struct {
	SQL  string
	Args []any
}

// Builder renders a Spec as a Predicate. Alias, when set, qualifies every
// column (e.g. "s" gives s.condition = ?).
type Builder struct {
	Alias string
}

var (
	// Samples builds predicates for queries over the samples table alone.
	Samples = Builder{}
	// JoinedSamples builds predicates for queries joining samples as "s".
	JoinedSamples = Builder{Alias: "s"}
)

// Build renders spec. An empty spec yields "1=1" with no arguments.
func (b Builder) Build(spec Spec) Predicate {
	clauses := spec.Clauses()
	if len(clauses) == 0 {
		return Predicate{SQL: "1=1"}
	}
	parts := make([]string, 0, len(clauses))
	args := make([]any, 0, len(clauses))
	for _, c := range clauses {
		col := c.Column
		if b.Alias != "" {
			col = b.Alias + "." + col
		}
		parts = append(parts, col+" = ?")
		args = append(args, c.Value)
	}
	return Predicate{SQL: strings.Join(parts, " AND "), Args: args}
}
