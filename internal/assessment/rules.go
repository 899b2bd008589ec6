package assessment

// Kind is the input type of a field.
type Kind string

const (
	KindNumber Kind = "number"
	KindSelect Kind = "select"
)

// FieldRule describes how a single form field is validated.
// Min/Max and the warning thresholds are optional.
type FieldRule struct {
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Section     Section  `json:"section"`
	Kind        Kind     `json:"kind"`
	Required    bool     `json:"required"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	WarningLow  *float64 `json:"warning_low,omitempty"`
	WarningHigh *float64 `json:"warning_high,omitempty"`
}

func bound(v float64) *float64 { return &v }

// rules is ordered by section, then by position within the section.
var rules = []FieldRule{
	{
		Name: "mmse", Label: "MMSE Score", Section: SectionCognitive, Kind: KindNumber, Required: true,
		Min: bound(0), Max: bound(30), WarningLow: bound(18), WarningHigh: bound(30),
	},
	{
		Name: "cdr", Label: "Clinical Dementia Rating", Section: SectionCognitive, Kind: KindSelect, Required: true,
	},
	{
		Name: "nwbv", Label: "Normalized Whole Brain Volume", Section: SectionImaging, Kind: KindNumber, Required: true,
		Min: bound(0.5), Max: bound(1.0), WarningLow: bound(0.7), WarningHigh: bound(1.0),
	},
	{
		Name: "etiv", Label: "Estimated Total Intracranial Volume", Section: SectionImaging, Kind: KindNumber, Required: true,
		Min: bound(1000), Max: bound(2500),
	},
	{
		Name: "asf", Label: "Atlas Scaling Factor", Section: SectionImaging, Kind: KindNumber, Required: true,
		Min: bound(0.8), Max: bound(1.8),
	},
	{
		Name: "age", Label: "Age", Section: SectionDemographics, Kind: KindNumber, Required: true,
		Min: bound(18), Max: bound(120), WarningLow: bound(65), WarningHigh: bound(120),
	},
	{
		Name: "education", Label: "Years of Education", Section: SectionDemographics, Kind: KindNumber, Required: true,
		Min: bound(0), Max: bound(25),
	},
	{
		Name: "gender", Label: "Gender", Section: SectionDemographics, Kind: KindSelect, Required: true,
	},
	{
		Name: "ses", Label: "Socioeconomic Status", Section: SectionDemographics, Kind: KindSelect, Required: true,
	},
}

var rulesByName = func() map[string]FieldRule {
	m := make(map[string]FieldRule, len(rules))
	for _, r := range rules {
		m[r.Name] = r
	}
	return m
}()

// Rules returns a copy of the rule table in display order.
func Rules() []FieldRule {
	out := make([]FieldRule, len(rules))
	copy(out, rules)
	return out
}

// Rule looks up the rule for a field name.
func Rule(name string) (FieldRule, bool) {
	r, ok := rulesByName[name]
	return r, ok
}

// RuleCount is the number of ruled fields, used for completion tracking.
func RuleCount() int { return len(rules) }
