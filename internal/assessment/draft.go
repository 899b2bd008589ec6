package assessment

import "time"

// DraftMaxAge is how long a saved draft is offered for restore.
const DraftMaxAge = 24 * time.Hour

// FormData maps field names to trimmed, last-accepted values.
type FormData map[string]string

// Clone returns an independent copy.
func (d FormData) Clone() FormData {
	out := make(FormData, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Draft is an autosaved snapshot of an in-progress form.
// Timestamp is epoch milliseconds.
type Draft struct {
	Section   Section  `json:"section"`
	FormData  FormData `json:"formData"`
	Timestamp int64    `json:"timestamp"`
}

// SavedAt converts the draft timestamp to a time.
func (d Draft) SavedAt() time.Time {
	return time.UnixMilli(d.Timestamp)
}

// Fresh reports whether the draft is younger than DraftMaxAge at now.
func (d Draft) Fresh(now time.Time) bool {
	return now.Sub(d.SavedAt()) < DraftMaxAge
}
