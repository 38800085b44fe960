package display

import "errors"

var (
	ErrRenderPanic   = errors.New("render panicked")
	ErrInvalidResize = errors.New("resize needs a positive width and height")
)
