package skeleton

import "errors"

// Sentinel kinds for skeleton errors.
var (
	ErrUnknownJoint      = errors.New("unknown joint")
	ErrUnknownState      = errors.New("unknown tracking state")
	ErrSensorUnavailable = errors.New("sensor unavailable")
)
