package prediction

import (
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
)

// Rand is a uniform [0,1) source. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Estimator produces a placeholder result from four submitted fields when
// the prediction endpoint is unavailable. It is not a statistical model.
type Estimator struct {
	rnd Rand
}

// NewEstimator returns an estimator drawing from rnd, or from the
// process-wide source when rnd is nil.
func NewEstimator(rnd Rand) *Estimator {
	if rnd == nil {
		rnd = globalRand{}
	}
	return &Estimator{rnd: rnd}
}

// Risk is the deterministic part of the estimate.
func Risk(data map[string]string) float64 {
	age := orDefault(leadingInt(data["age"]), 65)
	memory := orDefault(leadingFloat(data["memory_names"]), 5)
	mathResult := orDefault(leadingInt(data["math_test"]), 0)

	risk := 0.0
	if age > 70 {
		risk += 0.3
	}
	if memory < 5 {
		risk += 0.4
	}
	// 100 - 7 - 7 - 7
	if mathResult != 79 {
		risk += 0.2
	}
	if strings.Contains(data["family_history"], "dementia") {
		risk += 0.3
	}
	return risk
}

// Estimate computes the fallback result. Random draws happen in a fixed
// order: confidence, memory, cognitive, attention, language.
func (e *Estimator) Estimate(data map[string]string) Result {
	risk := Risk(data)
	memory := orDefault(leadingFloat(data["memory_names"]), 5)
	high := risk > 0.5

	res := Result{
		Prediction: 0,
		RiskLevel:  RiskLow,
		Source:     SourceFallback,
	}
	if high {
		res.Prediction = 1
		res.RiskLevel = RiskHigh
	}

	res.Confidence = score(math.Round(clamp(85+e.rnd.Float64()*20, 65, 95)))
	res.MemoryScore = score(clamp(memory+e.rnd.Float64()*2, 1, 10))
	res.CognitiveScore = score(clamp(8-risk*5+e.rnd.Float64(), 1, 10))
	res.AttentionScore = score(clamp(7.5-risk*3+e.rnd.Float64(), 1, 10))
	res.LanguageScore = score(clamp(8.5-risk*2+e.rnd.Float64(), 1, 10))
	return res
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// orDefault substitutes def for NaN and zero, the falsy parse results.
func orDefault(v, def float64) float64 {
	if math.IsNaN(v) || v == 0 {
		return def
	}
	return v
}

// leadingInt parses the integer prefix of s ("70.9 years" -> 70), or NaN.
func leadingInt(s string) float64 {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return math.NaN()
	}
	n, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return math.NaN()
	}
	return n
}

// leadingFloat parses the decimal prefix of s ("4.5/10" -> 4.5), or NaN.
func leadingFloat(s string) float64 {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	start := end
	seenDot := false
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' {
			end++
			continue
		}
		if c == '.' && !seenDot {
			seenDot = true
			end++
			continue
		}
		break
	}
	num := s[:end]
	if end == start || num[len(num)-1] == '.' && end-start == 1 {
		return math.NaN()
	}
	n, err := strconv.ParseFloat(strings.TrimSuffix(num, "."), 64)
	if err != nil {
		return math.NaN()
	}
	return n
}
