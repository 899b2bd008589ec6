package history

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrUploadDisabled    = errors.New("export upload is not configured")
)
