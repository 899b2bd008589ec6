package assessment

import (
	"math"
	"strings"
	"time"
)

// EventType identifies a form state change.
type EventType string

const (
	EventFieldChanged    EventType = "field_changed"
	EventSectionChanged  EventType = "section_changed"
	EventSectionRejected EventType = "section_rejected"
	EventRestored        EventType = "restored"
	EventSubmitted       EventType = "submitted"
)

// Event is delivered to listeners after the form state has changed.
type Event struct {
	Type      EventType
	Field     string
	Verdict   Verdict
	From      Section
	To        Section
	Rejection *SectionError
}

// Listener observes form events. Listeners run synchronously on the
// goroutine that mutated the form.
type Listener func(Event)

// State is the serializable form state. FormData is derived from Values on
// load, so only raw inputs are persisted.
type State struct {
	Section   Section           `json:"section"`
	Values    map[string]string `json:"values"`
	Submitted bool              `json:"submitted"`
}

// Progress summarises completion for a summary panel or progress bar.
type Progress struct {
	Section         Section `json:"section"`
	Title           string  `json:"title"`
	Completed       int     `json:"completed"`
	Total           int     `json:"total"`
	CompletionRate  int     `json:"completion_rate"`
	SectionProgress float64 `json:"section_progress"`
}

// Form is the multi-section assessment controller. It owns the active
// section, the last raw value of every field and the accepted FormData.
// A Form is not safe for concurrent use.
type Form struct {
	section   Section
	values    map[string]string
	data      FormData
	submitted bool
	listeners []Listener
}

// NewForm returns an empty form positioned on the first section.
func NewForm() *Form {
	return &Form{
		section: SectionCognitive,
		values:  make(map[string]string),
		data:    make(FormData),
	}
}

// FromState rebuilds a form, revalidating every stored value.
func FromState(st State) *Form {
	f := NewForm()
	for name, raw := range st.Values {
		f.apply(name, raw)
	}
	if st.Section.Valid() {
		f.section = st.Section
	}
	f.submitted = st.Submitted
	return f
}

// State returns a serializable copy of the form state.
func (f *Form) State() State {
	values := make(map[string]string, len(f.values))
	for k, v := range f.values {
		values[k] = v
	}
	return State{Section: f.section, Values: values, Submitted: f.submitted}
}

// Subscribe registers a listener for subsequent events.
func (f *Form) Subscribe(l Listener) {
	f.listeners = append(f.listeners, l)
}

func (f *Form) emit(e Event) {
	for _, l := range f.listeners {
		l(e)
	}
}

func (f *Form) Section() Section { return f.section }

func (f *Form) Submitted() bool { return f.submitted }

// Data returns a copy of the accepted field values.
func (f *Form) Data() FormData { return f.data.Clone() }

// Value returns the last raw value entered for a field.
func (f *Form) Value(name string) string { return f.values[name] }

// Verdict revalidates the current value of a field.
func (f *Form) Verdict(name string) Verdict {
	return Validate(name, f.values[name])
}

// SetField records a user edit. Valid values enter FormData; invalid or
// empty ones remove the key so FormData only holds accepted values.
func (f *Form) SetField(name, raw string) (Verdict, error) {
	if f.submitted {
		return Verdict{}, ErrAlreadySubmitted
	}
	v := f.apply(name, raw)
	f.emit(Event{Type: EventFieldChanged, Field: name, Verdict: v, From: f.section, To: f.section})
	return v, nil
}

func (f *Form) apply(name, raw string) Verdict {
	value := strings.TrimSpace(raw)
	v := Validate(name, value)

	if value == "" {
		delete(f.values, name)
	} else {
		f.values[name] = value
	}

	if v.Valid && value != "" {
		f.data[name] = value
	} else {
		delete(f.data, name)
	}
	return v
}

// ValidateSection checks every required field of s against its last raw
// value. It returns nil when the section is complete.
func (f *Form) ValidateSection(s Section) *SectionError {
	var failed []FieldError
	for _, r := range RulesFor(s) {
		if !r.Required {
			continue
		}
		if v := r.Check(f.values[r.Name]); !v.Valid {
			failed = append(failed, FieldError{Field: r.Name, Message: v.Error})
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &SectionError{Section: s, Fields: failed}
}

// Next advances one section if the active section validates. On the last
// section it validates and stays put.
func (f *Form) Next() error {
	if f.submitted {
		return ErrAlreadySubmitted
	}
	if err := f.ValidateSection(f.section); err != nil {
		f.emit(Event{Type: EventSectionRejected, From: f.section, To: f.section, Rejection: err})
		return err
	}
	if f.section.Last() {
		return nil
	}
	f.move(f.section + 1)
	return nil
}

// Previous moves back one section without validation.
func (f *Form) Previous() error {
	if f.submitted {
		return ErrAlreadySubmitted
	}
	if f.section > 0 {
		f.move(f.section - 1)
	}
	return nil
}

// GoTo jumps to section k. Any earlier section and the one directly after
// the active section are reachable.
func (f *Form) GoTo(k Section) error {
	if f.submitted {
		return ErrAlreadySubmitted
	}
	if !k.Valid() {
		return ErrSectionOutOfRange
	}
	if k > f.section+1 {
		return ErrSectionLocked
	}
	if k != f.section {
		f.move(k)
	}
	return nil
}

func (f *Form) move(to Section) {
	from := f.section
	f.section = to
	f.emit(Event{Type: EventSectionChanged, From: from, To: to})
}

// Submit validates the final section and returns a snapshot of FormData.
// The form rejects further edits afterwards.
func (f *Form) Submit() (FormData, error) {
	if f.submitted {
		return nil, ErrAlreadySubmitted
	}
	if !f.section.Last() {
		return nil, ErrNotFinalSection
	}
	if err := f.ValidateSection(f.section); err != nil {
		f.emit(Event{Type: EventSectionRejected, From: f.section, To: f.section, Rejection: err})
		return nil, err
	}
	f.submitted = true
	snapshot := f.data.Clone()
	f.emit(Event{Type: EventSubmitted, From: f.section, To: f.section})
	return snapshot, nil
}

// Draft snapshots the form for autosave.
func (f *Form) Draft(now time.Time) Draft {
	return Draft{Section: f.section, FormData: f.data.Clone(), Timestamp: now.UnixMilli()}
}

// Restore replaces the form contents with a draft, revalidating each value,
// and jumps to the saved section. An out-of-range section is ignored.
func (f *Form) Restore(d Draft) error {
	if f.submitted {
		return ErrAlreadySubmitted
	}
	f.values = make(map[string]string, len(d.FormData))
	f.data = make(FormData, len(d.FormData))
	for name, raw := range d.FormData {
		f.apply(name, raw)
	}
	from := f.section
	if d.Section.Valid() {
		f.section = d.Section
	}
	f.emit(Event{Type: EventRestored, From: from, To: f.section})
	return nil
}

// Progress reports completion over the ruled fields.
func (f *Form) Progress() Progress {
	total := RuleCount()
	completed := 0
	for _, r := range rules {
		if _, ok := f.data[r.Name]; ok {
			completed++
		}
	}
	return Progress{
		Section:         f.section,
		Title:           f.section.Title(),
		Completed:       completed,
		Total:           total,
		CompletionRate:  int(math.Round(float64(completed) / float64(total) * 100)),
		SectionProgress: float64(f.section+1) / SectionCount * 100,
	}
}
