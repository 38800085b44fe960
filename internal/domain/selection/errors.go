package selection

import "errors"

var (
	ErrEmptyName       = errors.New("target name is empty")
	ErrInvalidSize     = errors.New("target size must be positive")
	ErrDuplicateTarget = errors.New("target already registered")
)
