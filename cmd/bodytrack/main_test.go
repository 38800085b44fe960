package main

import (
	"testing"
	"time"

	"github.com/okian/bodytrack/internal/adapters/display"
	"github.com/okian/bodytrack/internal/adapters/sensor"
	app "github.com/okian/bodytrack/internal/app"
	"github.com/okian/bodytrack/internal/config"
	"github.com/okian/bodytrack/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestBuildSource(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()
		log := logger.Nop()

		convey.Convey("When the sensor is synthetic", func() {
			src, bridge := buildSource(cfg, log)

			convey.Convey("Then a generator is built and no endpoint is mounted", func() {
				_, ok := src.(*sensor.Synthetic)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(bridge, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the sensor is a bridge", func() {
			cfg.Sensor = config.SensorBridge
			src, bridge := buildSource(cfg, log)

			convey.Convey("Then the source and the endpoint are the same bridge", func() {
				convey.So(bridge, convey.ShouldNotBeNil)
				convey.So(src, convey.ShouldEqual, bridge)
			})
		})

		convey.Convey("When there is no sensor", func() {
			cfg.Sensor = config.SensorNone
			src, bridge := buildSource(cfg, log)

			convey.Convey("Then the source always fails to start", func() {
				convey.So(src, convey.ShouldResemble, sensor.Unavailable{})
				convey.So(bridge, convey.ShouldBeNil)
			})
		})
	})
}

func TestServiceOptions(t *testing.T) {
	convey.Convey("Given a config with custom selections", t, func() {
		cfg := config.New()
		cfg.Sensor = config.SensorNone
		cfg.Selections = []config.Selection{
			{Name: "play", Size: 40, X: 300, Y: 200},
			{Name: "quit", Size: 24, X: 300, Y: 320},
		}
		hub := display.NewHub(display.WithLogger(logger.Nop()))
		defer func() { _ = hub.Close() }()

		convey.Convey("When the service is built from it", func() {
			src, _ := buildSource(cfg, logger.Nop())
			svc := app.New(serviceOptions(cfg, logger.Nop(), hub, src)...)

			convey.Convey("Then the configured playfield is used", func() {
				stats := svc.GetStats()
				convey.So(stats["width"], convey.ShouldEqual, 1280.0)
				convey.So(stats["height"], convey.ShouldEqual, 720.0)
				convey.So(stats["queueCapacity"], convey.ShouldEqual, 64)
			})
		})
	})
}

func TestNewHTTPServer(t *testing.T) {
	convey.Convey("Given an HTTP server", t, func() {
		srv := newHTTPServer(":0", nil)

		convey.Convey("Then read timeouts are set and writes are unbounded for streaming", func() {
			convey.So(srv.ReadTimeout, convey.ShouldEqual, 10*time.Second)
			convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, 5*time.Second)
			convey.So(srv.WriteTimeout, convey.ShouldEqual, time.Duration(0))
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then it should update metrics without panicking", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})
	})
}
