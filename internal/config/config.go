// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New builds a Config with defaults; Load layers file and env on top.
//   - Durations are configured in milliseconds and exposed as time.Duration
//     through accessor methods.
//   - Validation failures wrap ErrInvalidConfig.
package config

import (
	"time"
)

// Sensor source kinds.
const (
	SensorSynthetic = "synthetic"
	SensorBridge    = "bridge"
	SensorNone      = "none"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// Sensor selects the skeleton source: synthetic, bridge or none.
	Sensor string `koanf:"sensor" validate:"oneof=synthetic bridge none"`

	// SensorRateHz is the synthetic sensor frame rate.
	SensorRateHz float64 `koanf:"sensor_rate_hz" validate:"gt=0,lte=120"`

	// SyntheticBodies is how many bodies the synthetic sensor reports.
	SyntheticBodies int `koanf:"synthetic_bodies" validate:"gte=0,lte=6"`

	// QueueSize bounds the sensor frame queue.
	QueueSize int `koanf:"queue_size" validate:"gt=0"`

	// MinFramerate and MaxFramerate bound the render rate.
	MinFramerate float64 `koanf:"min_framerate" validate:"gt=0"`
	MaxFramerate float64 `koanf:"max_framerate" validate:"gtefield=MinFramerate"`

	// TimerResolutionMS is the shortest sleep the pacing loop takes.
	TimerResolutionMS int `koanf:"timer_resolution_ms" validate:"gt=0"`

	// StaleAfterMS is how long a body may go unreported before removal.
	StaleAfterMS int `koanf:"stale_after_ms" validate:"gt=0"`

	// MaxSampleGapMS caps the sample spacing used for extrapolation.
	MaxSampleGapMS int `koanf:"max_sample_gap_ms" validate:"gt=0"`

	// PlayfieldWidth and PlayfieldHeight size the surface until a renderer
	// reports its own.
	PlayfieldWidth  float64 `koanf:"playfield_width" validate:"gt=0"`
	PlayfieldHeight float64 `koanf:"playfield_height" validate:"gt=0"`

	// Selections replaces the default selection target when non-empty.
	Selections []Selection `koanf:"selections" validate:"dive"`
}

// Selection is one configured selection target.
type Selection struct {
	Name string  `koanf:"name" validate:"required"`
	Size float64 `koanf:"size" validate:"gt=0"`
	X    float64 `koanf:"x"`
	Y    float64 `koanf:"y"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		Sensor:            SensorSynthetic,
		SensorRateHz:      30,
		SyntheticBodies:   1,
		QueueSize:         64,
		MinFramerate:      15,
		MaxFramerate:      70,
		TimerResolutionMS: 2,
		StaleAfterMS:      500,
		MaxSampleGapMS:    250,
		PlayfieldWidth:    1280,
		PlayfieldHeight:   720,
	}
}

// TimerResolution returns TimerResolutionMS as a duration.
func (c *Config) TimerResolution() time.Duration { return ms(c.TimerResolutionMS) }

// StaleAfter returns StaleAfterMS as a duration.
func (c *Config) StaleAfter() time.Duration { return ms(c.StaleAfterMS) }

// MaxSampleGap returns MaxSampleGapMS as a duration.
func (c *Config) MaxSampleGap() time.Duration { return ms(c.MaxSampleGapMS) }

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
