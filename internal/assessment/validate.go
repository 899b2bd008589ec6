package assessment

import (
	"math"
	"strconv"
	"strings"
)

const (
	msgRequired      = "This field is required"
	msgInvalidNumber = "Please enter a valid number"
)

// Verdict is the outcome of validating one field value.
// Warning is advisory only and never makes a value invalid.
type Verdict struct {
	Valid   bool   `json:"valid"`
	Error   string `json:"error,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// advisory flags an in-range value that is clinically notable.
// Entries for the same field are checked in order; the first match wins.
type advisory struct {
	field   string
	below   *float64
	above   *float64
	message string
}

var advisories = []advisory{
	{field: "mmse", below: bound(12), message: "Score suggests severe cognitive impairment"},
	{field: "mmse", below: bound(18), message: "Score suggests moderate cognitive impairment"},
	{field: "mmse", below: bound(24), message: "Score suggests mild cognitive impairment"},
	{field: "nwbv", below: bound(0.7), message: "Low brain volume may indicate atrophy"},
	{field: "age", above: bound(75), message: "Age increases dementia risk"},
}

// Validate checks a raw value against the rule for name. Fields without a
// rule are always valid.
func Validate(name, raw string) Verdict {
	rule, ok := Rule(name)
	if !ok {
		return Verdict{Valid: true}
	}
	return rule.Check(raw)
}

// Check validates a raw value against the rule.
func (r FieldRule) Check(raw string) Verdict {
	value := strings.TrimSpace(raw)
	if value == "" {
		if r.Required {
			return Verdict{Error: msgRequired}
		}
		return Verdict{Valid: true}
	}

	if r.Kind != KindNumber {
		return Verdict{Valid: true}
	}

	num, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(num) || math.IsInf(num, 0) {
		return Verdict{Error: msgInvalidNumber}
	}
	if r.Min != nil && num < *r.Min {
		return Verdict{Error: "Value must be at least " + formatBound(*r.Min)}
	}
	if r.Max != nil && num > *r.Max {
		return Verdict{Error: "Value must not exceed " + formatBound(*r.Max)}
	}

	return Verdict{Valid: true, Warning: Advisory(r.Name, num)}
}

// Advisory returns the advisory message for an in-range value, or "".
func Advisory(name string, value float64) string {
	for _, a := range advisories {
		if a.field != name {
			continue
		}
		if a.below != nil && value < *a.below {
			return a.message
		}
		if a.above != nil && value > *a.above {
			return a.message
		}
	}
	return ""
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
