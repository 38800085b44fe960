package service

import "errors"

var (
	ErrInvalidTarget = errors.New("invalid selection target")
)
