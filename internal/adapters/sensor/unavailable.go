package sensor

import (
	"context"

	"github.com/okian/bodytrack/internal/domain/skeleton"
	"github.com/okian/bodytrack/pkg/metrics"
)

// Unavailable stands in when no sensor is attached. Start always fails.
type Unavailable struct{}

func (Unavailable) Start(context.Context, func(skeleton.Frame)) error {
	metrics.UpdateSensorAvailable(false)
	return skeleton.ErrSensorUnavailable
}

func (Unavailable) Close() error { return nil }
