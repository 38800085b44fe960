package display

import "github.com/okian/bodytrack/pkg/logger"

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithOnResize registers the callback for client resize messages.
func WithOnResize(fn ResizeFunc) HubOption {
	return func(h *Hub) {
		h.onResize = fn
	}
}

// WithSize sets the surface size reported in scenes until a client resizes.
func WithSize(width, height float64) HubOption {
	return func(h *Hub) {
		h.width, h.height = width, height
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) HubOption {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}
