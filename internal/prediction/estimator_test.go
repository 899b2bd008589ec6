package prediction

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedRand replays draws in order and repeats the last one.
type fixedRand struct {
	draws []float64
	i     int
}

func (f *fixedRand) Float64() float64 {
	v := f.draws[min(f.i, len(f.draws)-1)]
	f.i++
	return v
}

func TestRisk(t *testing.T) {
	tests := []struct {
		name string
		data map[string]string
		want float64
	}{
		{
			name: "older, poor recall, correct math, no history",
			data: map[string]string{"age": "80", "memory_names": "3", "math_test": "79", "family_history": "none"},
			want: 0.7,
		},
		{
			name: "empty form uses defaults",
			data: map[string]string{},
			want: 0.2,
		},
		{
			name: "everything flagged",
			data: map[string]string{"age": "71", "memory_names": "4.5", "math_test": "80", "family_history": "mother had dementia"},
			want: 1.2,
		},
		{
			name: "zero memory falls back to default",
			data: map[string]string{"age": "60", "memory_names": "0", "math_test": "79"},
			want: 0,
		},
		{
			name: "age prefix is parsed as integer",
			data: map[string]string{"age": "70.9", "math_test": "79"},
			want: 0,
		},
		{
			name: "family history match is case sensitive",
			data: map[string]string{"age": "50", "math_test": "79", "family_history": "Dementia"},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Risk(tt.data), 1e-9)
		})
	}
}

func TestEstimate_HighRisk(t *testing.T) {
	e := NewEstimator(&fixedRand{draws: []float64{0}})
	res := e.Estimate(map[string]string{
		"age": "80", "memory_names": "3", "math_test": "79", "family_history": "none",
	})

	assert.Equal(t, 1, res.Prediction)
	assert.Equal(t, RiskHigh, res.RiskLevel)
	assert.Equal(t, SourceFallback, res.Source)
	require.NotNil(t, res.Confidence)
	assert.Equal(t, 85.0, *res.Confidence)
	assert.InDelta(t, 3.0, *res.MemoryScore, 1e-9)
	assert.InDelta(t, 4.5, *res.CognitiveScore, 1e-9)
	assert.InDelta(t, 5.4, *res.AttentionScore, 1e-9)
	assert.InDelta(t, 7.1, *res.LanguageScore, 1e-9)
}

func TestEstimate_LowRiskAtBoundary(t *testing.T) {
	// 0.3 + 0.2 is exactly 0.5, which is not above the threshold.
	e := NewEstimator(&fixedRand{draws: []float64{0.5}})
	res := e.Estimate(map[string]string{"age": "72", "memory_names": "6", "math_test": "70"})

	assert.Equal(t, 0, res.Prediction)
	assert.Equal(t, RiskLow, res.RiskLevel)
}

func TestEstimate_Clamping(t *testing.T) {
	e := NewEstimator(&fixedRand{draws: []float64{0.9999}})
	res := e.Estimate(map[string]string{"memory_names": "9.5", "math_test": "79", "age": "30"})

	assert.Equal(t, 95.0, *res.Confidence)
	assert.Equal(t, 10.0, *res.MemoryScore)
	assert.Equal(t, 8.9999, math.Round(*res.CognitiveScore*1e4)/1e4)

	e = NewEstimator(&fixedRand{draws: []float64{0}})
	res = e.Estimate(map[string]string{
		"age": "90", "memory_names": "-3", "math_test": "1", "family_history": "dementia",
	})
	assert.Equal(t, 1.0, *res.MemoryScore)
	assert.InDelta(t, 2.0, *res.CognitiveScore, 1e-9)
}

func TestEstimate_DrawOrder(t *testing.T) {
	rnd := &fixedRand{draws: []float64{0.1, 0.2, 0.3, 0.4, 0.5}}
	res := NewEstimator(rnd).Estimate(map[string]string{"age": "60", "memory_names": "5", "math_test": "79"})

	assert.Equal(t, 87.0, *res.Confidence)
	assert.InDelta(t, 5.4, *res.MemoryScore, 1e-9)
	assert.InDelta(t, 8.3, *res.CognitiveScore, 1e-9)
	assert.InDelta(t, 7.9, *res.AttentionScore, 1e-9)
	assert.InDelta(t, 9.0, *res.LanguageScore, 1e-9)
	assert.Equal(t, 5, rnd.i)
}

func TestEstimate_DefaultRandStaysInRange(t *testing.T) {
	e := NewEstimator(nil)
	for i := 0; i < 200; i++ {
		res := e.Estimate(map[string]string{"age": "75"})
		assert.GreaterOrEqual(t, *res.Confidence, 65.0)
		assert.LessOrEqual(t, *res.Confidence, 95.0)
		for _, s := range []*float64{res.MemoryScore, res.CognitiveScore, res.AttentionScore, res.LanguageScore} {
			assert.GreaterOrEqual(t, *s, 1.0)
			assert.LessOrEqual(t, *s, 10.0)
		}
	}
}
