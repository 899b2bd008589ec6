package assessment

import "fmt"

// Section is the index of a form section.
type Section int

const (
	SectionCognitive Section = iota
	SectionImaging
	SectionDemographics
)

// SectionCount is the number of sections in the form.
const SectionCount = 3

var sectionTitles = [SectionCount]string{
	"Cognitive Assessment",
	"Brain Imaging",
	"Demographics",
}

// Valid reports whether s is inside [0, SectionCount).
func (s Section) Valid() bool {
	return s >= 0 && s < SectionCount
}

// Title is the heading shown for the section.
func (s Section) Title() string {
	if !s.Valid() {
		return "Medical Assessment"
	}
	return sectionTitles[s]
}

func (s Section) String() string {
	return fmt.Sprintf("%d (%s)", int(s), s.Title())
}

// Last reports whether s is the final section.
func (s Section) Last() bool {
	return s == SectionCount-1
}

// RulesFor returns the rules belonging to a section, in display order.
func RulesFor(s Section) []FieldRule {
	var out []FieldRule
	for _, r := range rules {
		if r.Section == s {
			out = append(out, r)
		}
	}
	return out
}
