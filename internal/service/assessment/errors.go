package assessment

import "errors"

var (
	ErrSessionNotFound = errors.New("assessment session not found")
	ErrNoDraft         = errors.New("no saved draft to resume")
	ErrNoResult        = errors.New("no assessment has been submitted yet")
	ErrEmptySubmission = errors.New("submission has no accepted fields")
)
