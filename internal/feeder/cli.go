package feeder

import (
	"log/slog"
	"os"

	"github.com/okian/bodytrack/pkg/logger"
)

// SetupLogging initializes the global logger for the feeder CLI.
func SetupLogging(verbose bool) error {
	if err := logger.Init(); err != nil {
		return err
	}
	if verbose {
		logger.SetLevel(slog.LevelDebug)
	}
	return nil
}

// ShowHelp prints usage information for the sensor bridge tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Sensor Bridge
=============

Streams synthetic skeleton frames to a running bodytrack service over its
/sensor websocket, in place of a hardware sensor bridge.

Usage:
  go run ./cmd/sensor-bridge [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -rate float
        Frames per second (default 30)
  -bodies int
        Bodies per frame, up to 6 (default 1)
  -duration duration
        How long to feed; 0 feeds until interrupted (default 0)
  -dropout duration
        Drop slot 0 for 700ms every period; 0 disables (default 0)
  -timeout duration
        Health check and dial timeout (default 10s)
  -output string
        Record every frame sent as JSON lines
  -verbose
        Log every frame
  -help
        Show this help message

Examples:
  # Feed one waving body until interrupted
  go run ./cmd/sensor-bridge

  # Three bodies for a minute, slot 0 vanishing every 5s
  go run ./cmd/sensor-bridge -bodies 3 -duration 1m -dropout 5s
`)
}
