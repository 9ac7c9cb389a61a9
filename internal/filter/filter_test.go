package filter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"
)

func TestBuildEmptyMatchesEverything(t *testing.T) {
	p := Samples.Build(Spec{})
	assert.Equal(t, "1=1", p.SQL)
	assert.Empty(t, p.Args)

	p = JoinedSamples.Build(Spec{})
	assert.Equal(t, "1=1", p.SQL)
}

func TestBuildOrdersClausesAndArgs(t *testing.T) {
	spec := Spec{
		TimeFromTreatmentStart: null.IntFrom(7),
		SampleType:             null.StringFrom("PBMC"),
		Condition:              null.StringFrom("melanoma"),
	}
	p := Samples.Build(spec)
	assert.Equal(t, "condition = ? AND sample_type = ? AND time_from_treatment_start = ?", p.SQL)
	assert.Equal(t, []any{"melanoma", "PBMC", int64(7)}, p.Args)

	p = JoinedSamples.Build(spec)
	assert.Equal(t, "s.condition = ? AND s.sample_type = ? AND s.time_from_treatment_start = ?", p.SQL)
	assert.Equal(t, []any{"melanoma", "PBMC", int64(7)}, p.Args)
}

func TestBuildNeverInlinesValues(t *testing.T) {
	hostile := "x' OR '1'='1"
	p := JoinedSamples.Build(Spec{Treatment: null.StringFrom(hostile)})
	assert.Equal(t, "s.treatment = ?", p.SQL)
	assert.NotContains(t, p.SQL, "OR")
	assert.Equal(t, []any{hostile}, p.Args)
}

func TestBaseline(t *testing.T) {
	p := Samples.Build(Baseline)
	assert.Equal(t, "condition = ? AND treatment = ? AND sample_type = ? AND time_from_treatment_start = ?", p.SQL)
	assert.Equal(t, []any{"melanoma", "miraclib", "PBMC", int64(0)}, p.Args)
}

func TestWithoutTime(t *testing.T) {
	spec := Spec{Condition: null.StringFrom("melanoma"), TimeFromTreatmentStart: null.IntFrom(0)}
	stripped := spec.WithoutTime()
	assert.False(t, stripped.TimeFromTreatmentStart.Valid)
	assert.True(t, spec.TimeFromTreatmentStart.Valid, "original must be untouched")
	assert.Len(t, stripped.Clauses(), 1)
	assert.True(t, Spec{}.IsEmpty())
}

func TestSpecFromJSON(t *testing.T) {
	var spec Spec
	require.NoError(t, json.Unmarshal([]byte(`{"condition":"carcinoma","treatment":null,"time_from_treatment_start":0}`), &spec))
	assert.Equal(t, []Clause{
		{Column: "condition", Value: "carcinoma"},
		{Column: "time_from_treatment_start", Value: int64(0)},
	}, spec.Clauses())
}
