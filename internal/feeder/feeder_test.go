package feeder_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/bodytrack/internal/adapters/sensor"
	"github.com/okian/bodytrack/internal/domain/skeleton"
	"github.com/okian/bodytrack/internal/feeder"
	"github.com/okian/bodytrack/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type received struct {
	mu     sync.Mutex
	frames []skeleton.Frame
}

func (r *received) deliver(f skeleton.Frame) {
	r.mu.Lock()
	r.frames = append(r.frames, f)
	r.mu.Unlock()
}

func (r *received) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func newService(t *testing.T, got *received) *httptest.Server {
	bridge := sensor.NewBridge(sensor.WithBridgeLogger(logger.Nop()))
	if err := bridge.Start(context.Background(), got.deliver); err != nil {
		t.Fatal(err)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/sensor", bridge)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		_ = bridge.Close()
		srv.Close()
	})
	return srv
}

func TestSensorURL(t *testing.T) {
	Convey("Given service base URLs", t, func() {
		Convey("Then http maps to ws and https to wss", func() {
			u, err := feeder.SensorURL("http://localhost:9080")
			So(err, ShouldBeNil)
			So(u, ShouldEqual, "ws://localhost:9080/sensor")

			u, err = feeder.SensorURL("https://scene.example.org/")
			So(err, ShouldBeNil)
			So(u, ShouldEqual, "wss://scene.example.org/sensor")
		})

		Convey("And other schemes are rejected", func() {
			_, err := feeder.SensorURL("ftp://localhost")
			So(errors.Is(err, feeder.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a service with a sensor bridge", t, func() {
		got := &received{}
		srv := newService(t, got)
		out := filepath.Join(t.TempDir(), "frames.jsonl")

		cfg := &feeder.Config{
			BaseURL:    srv.URL,
			Rate:       50,
			Bodies:     2,
			Duration:   300 * time.Millisecond,
			Timeout:    2 * time.Second,
			OutputFile: out,
		}

		Convey("When a short feed runs", func() {
			stats, err := feeder.Run(context.Background(), cfg)

			Convey("Then it ends cleanly having published frames", func() {
				So(err, ShouldBeNil)
				So(stats.FramesPublished, ShouldBeGreaterThan, 0)
				So(stats.FramesFailed, ShouldEqual, 0)
				So(stats.FramesGenerated, ShouldEqual, stats.FramesPublished)
			})

			Convey("And the bridge receives them with two tracked bodies", func() {
				deadline := time.Now().Add(2 * time.Second)
				for got.count() < stats.FramesPublished && time.Now().Before(deadline) {
					time.Sleep(5 * time.Millisecond)
				}
				So(got.count(), ShouldEqual, stats.FramesPublished)

				got.mu.Lock()
				first := got.frames[0]
				got.mu.Unlock()
				tracked := 0
				for _, b := range first.Bodies {
					if b.State == skeleton.Tracked {
						tracked++
					}
				}
				So(tracked, ShouldEqual, 2)
			})

			Convey("And every frame is recorded", func() {
				data, err := os.ReadFile(out)
				So(err, ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(string(data)), "\n")
				So(lines, ShouldHaveLength, stats.FramesPublished)
			})
		})
	})

	Convey("Given back to back short feeds", t, func() {
		got := &received{}
		srv := newService(t, got)
		cfg := &feeder.Config{BaseURL: srv.URL, Rate: 60, Bodies: 1, Duration: 120 * time.Millisecond, Timeout: 2 * time.Second}

		Convey("Then each ends on its duration without failed frames", func() {
			for i := 0; i < 5; i++ {
				stats, err := feeder.Run(context.Background(), cfg)
				So(err, ShouldBeNil)
				So(stats.FramesFailed, ShouldEqual, 0)
			}
		})
	})

	Convey("Given an unhealthy service", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		Convey("Then the feed does not start", func() {
			_, err := feeder.Run(context.Background(), &feeder.Config{BaseURL: srv.URL, Rate: 30, Timeout: time.Second})
			So(errors.Is(err, feeder.ErrUnhealthy), ShouldBeTrue)
		})
	})

	Convey("Given invalid settings", t, func() {
		Convey("Then Run rejects them before connecting", func() {
			_, err := feeder.Run(context.Background(), &feeder.Config{BaseURL: "http://x", Rate: 0, Timeout: time.Second})
			So(errors.Is(err, feeder.ErrInvalidConfig), ShouldBeTrue)

			_, err = feeder.Run(context.Background(), &feeder.Config{BaseURL: "http://x", Rate: 30, Bodies: 9, Timeout: time.Second})
			So(errors.Is(err, feeder.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
