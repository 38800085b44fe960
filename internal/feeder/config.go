// Package feeder streams synthetic skeleton frames to a running service
// over its sensor bridge, standing in for a hardware bridge during
// development and soak tests.
package feeder

import "time"

// Config holds configuration for a feed run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Rate       float64       // Frames per second
	Bodies     int           // Bodies per frame
	Duration   time.Duration // How long to feed; zero feeds until cancelled
	Dropout    time.Duration // Period of slot 0 dropouts; zero disables
	Timeout    time.Duration // Health check and dial timeout
	OutputFile string        // Optional JSON-lines record of every frame sent
	Verbose    bool          // Log every frame
}

// Stats holds feed statistics.
type Stats struct {
	FramesGenerated int
	FramesPublished int
	FramesFailed    int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}

// Defaults.
const (
	DefaultBaseURL = "http://localhost:9080"
	DefaultRate    = 30.0
	DefaultBodies  = 1
	DefaultTimeout = 10 * time.Second

	// A dropout lasts this long within each dropout period.
	dropoutLength = 700 * time.Millisecond

	logFilePermission = 0o600
)
