package assessment

import (
	"errors"
	"strings"
)

var (
	ErrSectionIncomplete = errors.New("please complete all required fields in this section")
	ErrSectionOutOfRange = errors.New("section index out of range")
	ErrSectionLocked     = errors.New("cannot skip ahead past an unvalidated section")
	ErrNotFinalSection   = errors.New("submit is only available on the final section")
	ErrAlreadySubmitted  = errors.New("assessment already submitted")
)

// FieldError is a failing field reported by section validation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// SectionError lists the fields that blocked leaving a section.
// It matches ErrSectionIncomplete with errors.Is.
type SectionError struct {
	Section Section      `json:"section"`
	Fields  []FieldError `json:"fields"`
}

func (e *SectionError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return ErrSectionIncomplete.Error() + ": " + strings.Join(names, ", ")
}

func (e *SectionError) Unwrap() error { return ErrSectionIncomplete }

// Focus is the first invalid field, the one a renderer should focus.
func (e *SectionError) Focus() string {
	if len(e.Fields) == 0 {
		return ""
	}
	return e.Fields[0].Field
}
