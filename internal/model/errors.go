package model

import "errors"

// Error kinds surfaced by the gallery core. Callers wrap them with
// fmt.Errorf("%w: ...") and test with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrTranscode  = errors.New("transcode error")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage error")
)
