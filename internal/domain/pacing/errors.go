package pacing

import "errors"

var (
	ErrInvalidRates     = errors.New("frame rate bounds must satisfy 0 < min <= max")
	ErrDispatcherClosed = errors.New("render dispatcher closed")
)
