package render

import "errors"

var (
	// ErrUnknownKind is returned when decoding an unrecognised primitive kind.
	ErrUnknownKind = errors.New("unknown primitive kind")
	// ErrSinkClosed is returned by Present after the sink was closed.
	ErrSinkClosed = errors.New("render sink closed")
)
