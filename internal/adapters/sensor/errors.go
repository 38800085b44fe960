package sensor

import "errors"

var (
	ErrAlreadyStarted = errors.New("sensor source already started")
	ErrNotStarted     = errors.New("sensor source not started")
)
