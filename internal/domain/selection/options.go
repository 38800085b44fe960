package selection

import (
	"context"

	"github.com/okian/bodytrack/pkg/logger"
)

// Option configures an Engine.
type Option func(*Engine)

// WithOnChange registers a hook called after each toggle, outside the lock.
func WithOnChange(fn func(context.Context, Change)) Option {
	return func(e *Engine) {
		e.onChange = fn
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
