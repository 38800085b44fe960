package config

import (
	"errors"
)

// Sentinel errors. Load wraps one of them around every failure.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
