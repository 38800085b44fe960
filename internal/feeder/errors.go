package feeder

import "errors"

var (
	ErrUnhealthy     = errors.New("service unhealthy")
	ErrInvalidConfig = errors.New("invalid feed config")
)
