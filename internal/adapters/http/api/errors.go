package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrNoScene    = errors.New("no scene presented yet")
	ErrBadRequest = errors.New("bad request")
)

// NewKind tags kind with the operation that produced it.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags kind and cause with the operation; both match errors.Is.
func WrapKind(op string, kind, cause error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, cause)
}
