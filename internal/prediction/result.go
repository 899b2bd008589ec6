package prediction

const (
	RiskHigh = "High Risk"
	RiskLow  = "Low Risk"
)

// Source records where a result came from. It is kept out of the result's
// wire shape; history and metrics carry it instead.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
)

// Result is the prediction returned to the caller. Scores are optional
// because a remote response may omit any of them.
type Result struct {
	Prediction     int      `json:"prediction"`
	RiskLevel      string   `json:"risk_level"`
	Confidence     *float64 `json:"confidence,omitempty"`
	MemoryScore    *float64 `json:"memory_score,omitempty"`
	CognitiveScore *float64 `json:"cognitive_score,omitempty"`
	AttentionScore *float64 `json:"attention_score,omitempty"`
	LanguageScore  *float64 `json:"language_score,omitempty"`
	Source         Source   `json:"-"`
}

// HighRisk reports whether the result flags elevated risk.
func (r Result) HighRisk() bool {
	return r.Prediction == 1
}

func score(v float64) *float64 { return &v }
