// Command sensor-bridge streams synthetic skeleton frames to a running
// bodytrack service, in place of a hardware sensor bridge.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/bodytrack/internal/feeder"
)

func main() {
	var (
		baseURL    = flag.String("url", feeder.DefaultBaseURL, "Base URL of the service")
		rate       = flag.Float64("rate", feeder.DefaultRate, "Frames per second")
		bodies     = flag.Int("bodies", feeder.DefaultBodies, "Bodies per frame, up to 6")
		duration   = flag.Duration("duration", 0, "How long to feed; 0 feeds until interrupted")
		dropout    = flag.Duration("dropout", 0, "Drop slot 0 briefly every period; 0 disables")
		timeout    = flag.Duration("timeout", feeder.DefaultTimeout, "Health check and dial timeout")
		outputFile = flag.String("output", "", "Record every frame sent as JSON lines")
		verbose    = flag.Bool("verbose", false, "Log every frame")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		feeder.ShowHelp()
		return
	}

	if err := feeder.SetupLogging(*verbose); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	cfg := &feeder.Config{
		BaseURL:    *baseURL,
		Rate:       *rate,
		Bodies:     *bodies,
		Duration:   *duration,
		Dropout:    *dropout,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	}

	_, err := feeder.Run(ctx, cfg)
	stop()
	if err != nil {
		_, _ = os.Stderr.WriteString("Feed failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
