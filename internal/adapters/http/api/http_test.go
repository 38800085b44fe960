package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/okian/bodytrack/internal/adapters/http/api"
	"github.com/okian/bodytrack/internal/domain/geom"
	"github.com/okian/bodytrack/internal/domain/selection"
	"github.com/okian/bodytrack/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDependencies struct {
	stats   map[string]interface{}
	targets []selection.Target
}

func (m *mockDependencies) GetStats() map[string]interface{} { return m.stats }

func (m *mockDependencies) Targets() []selection.Target { return m.targets }

type mockScene struct {
	last   []byte
	served int
}

func (m *mockScene) LastJSON() []byte { return m.last }

func (m *mockScene) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	m.served++
	w.WriteHeader(http.StatusSwitchingProtocols)
}

type mockSensor struct{ served int }

func (m *mockSensor) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	m.served++
	w.WriteHeader(http.StatusNoContent)
}

func newDeps() *mockDependencies {
	return &mockDependencies{
		stats: map[string]interface{}{"started": true, "bodiesLive": 1},
		targets: []selection.Target{
			{Name: "play", Size: 30, Center: geom.Pt(200, 450), Selected: true},
			{Name: "quit", Size: 20, Center: geom.Pt(400, 450)},
		},
	}
}

func serve(mux *http.ServeMux, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		deps := newDeps()
		scene := &mockScene{last: []byte(`{"seq":1}`)}
		sensor := &mockSensor{}
		mux := http.NewServeMux()

		Convey("When registering routes with a sensor endpoint", func() {
			api.NewServer(deps, scene, sensor).Register(context.Background(), mux)

			Convey("Then health endpoint should serve metrics", func() {
				w := serve(mux, "GET", "/healthz")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "bodytrack_")
			})

			Convey("And stats endpoint should be accessible", func() {
				So(serve(mux, "GET", "/stats").Code, ShouldEqual, http.StatusOK)
			})

			Convey("And scene endpoint should return the last scene", func() {
				w := serve(mux, "GET", "/scene")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldEqual, `{"seq":1}`)
			})

			Convey("And the websocket routes reach their handlers", func() {
				serve(mux, "GET", "/ws")
				serve(mux, "GET", "/sensor")
				So(scene.served, ShouldEqual, 1)
				So(sensor.served, ShouldEqual, 1)
			})

			Convey("And unknown paths are not found", func() {
				So(serve(mux, "GET", "/unknown").Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When registering routes without a sensor endpoint", func() {
			api.NewServer(deps, scene, nil).Register(context.Background(), mux)

			Convey("Then /sensor is not found", func() {
				So(serve(mux, "GET", "/sensor").Code, ShouldEqual, http.StatusNotFound)
				So(sensor.served, ShouldEqual, 0)
			})
		})
	})
}

func TestSceneHandler_HandleScene(t *testing.T) {
	Convey("Given a scene handler", t, func() {
		scene := &mockScene{}
		h := api.NewSceneHandler(scene)

		Convey("When nothing has been presented", func() {
			w := httptest.NewRecorder()
			h.HandleScene(w, httptest.NewRequest("GET", "/scene", nil))

			Convey("Then it should report unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				var body map[string]string
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["code"], ShouldEqual, "no_scene")
				So(body["message"], ShouldContainSubstring, api.ErrNoScene.Error())
			})
		})

		Convey("When a scene exists", func() {
			scene.last = []byte(`{"seq":7,"primitives":[]}`)
			w := httptest.NewRecorder()
			h.HandleScene(w, httptest.NewRequest("GET", "/scene", nil))

			Convey("Then it is served verbatim and uncached", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")
				So(w.Header().Get("Cache-Control"), ShouldEqual, "no-store")
				So(w.Body.String(), ShouldEqual, `{"seq":7,"primitives":[]}`)
			})
		})

		Convey("When the method is not GET", func() {
			w := httptest.NewRecorder()
			h.HandleScene(w, httptest.NewRequest("POST", "/scene", strings.NewReader("{}")))

			Convey("Then it should return 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestTargetsHandler_HandleTargets(t *testing.T) {
	Convey("Given a targets handler", t, func() {
		h := api.NewTargetsHandler(newDeps())

		decode := func(w *httptest.ResponseRecorder) []map[string]interface{} {
			var out []map[string]interface{}
			So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
			return out
		}

		Convey("When listing every target", func() {
			w := httptest.NewRecorder()
			h.HandleTargets(w, httptest.NewRequest("GET", "/targets", nil))

			Convey("Then both are returned in order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				out := decode(w)
				So(out, ShouldHaveLength, 2)
				So(out[0]["name"], ShouldEqual, "play")
				So(out[0]["x"], ShouldEqual, 200.0)
				So(out[0]["selected"], ShouldEqual, true)
				So(out[1]["name"], ShouldEqual, "quit")
			})
		})

		Convey("When filtering by selection state", func() {
			w := httptest.NewRecorder()
			h.HandleTargets(w, httptest.NewRequest("GET", "/targets?selected=false", nil))

			Convey("Then only matching targets are returned", func() {
				out := decode(w)
				So(out, ShouldHaveLength, 1)
				So(out[0]["name"], ShouldEqual, "quit")
			})
		})

		Convey("When the filter is malformed", func() {
			w := httptest.NewRecorder()
			h.HandleTargets(w, httptest.NewRequest("GET", "/targets?selected=maybe", nil))

			Convey("Then it should return 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "bad_request")
			})
		})
	})
}

func TestStatsHandler_HandleStats(t *testing.T) {
	Convey("Given a stats handler", t, func() {
		h := api.NewStatsHandler(newDeps())

		Convey("When requesting stats", func() {
			w := httptest.NewRecorder()
			h.HandleStats(w, httptest.NewRequest("GET", "/stats", nil))

			Convey("Then provider stats and uptime are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var out map[string]interface{}
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(out["started"], ShouldEqual, true)
				So(out["bodiesLive"], ShouldEqual, 1.0)
				So(out, ShouldContainKey, "uptimeSeconds")
			})
		})

		Convey("When the provider has nothing to say", func() {
			h := api.NewStatsHandler(&mockDependencies{})
			w := httptest.NewRecorder()
			h.HandleStats(w, httptest.NewRequest("GET", "/stats", nil))

			Convey("Then uptime is still reported", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "uptimeSeconds")
			})
		})

		Convey("When the method is not GET", func() {
			w := httptest.NewRecorder()
			h.HandleStats(w, httptest.NewRequest("DELETE", "/stats", nil))
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given a wrapped handler", t, func() {
		status := http.StatusOK
		wrapped := api.MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte("ok"))
		}, "test")

		Convey("Then the response passes through untouched", func() {
			for _, status = range []int{http.StatusOK, http.StatusBadRequest, http.StatusServiceUnavailable} {
				w := httptest.NewRecorder()
				wrapped(w, httptest.NewRequest("GET", "/test", nil))
				So(w.Code, ShouldEqual, status)
				So(w.Body.String(), ShouldEqual, "ok")
			}
		})
	})
}

// endpointErrors reads errors_by_endpoint_total for one endpoint and type.
func endpointErrors(endpoint, errorType string) float64 {
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		return -1
	}
	for _, mf := range families {
		if mf.GetName() != "bodytrack_scene_errors_by_endpoint_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["endpoint"] == endpoint && labels["error_type"] == errorType {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestMetricsMiddleware_ErrorCodes(t *testing.T) {
	Convey("Given routes answering with API errors", t, func() {
		mux := http.NewServeMux()
		api.NewServer(newDeps(), &mockScene{}, nil).Register(context.Background(), mux)

		Convey("When the scene is requested before one exists", func() {
			before := endpointErrors("scene", "no_scene")
			So(serve(mux, "GET", "/scene").Code, ShouldEqual, http.StatusServiceUnavailable)

			Convey("Then the error is counted under its API code", func() {
				So(endpointErrors("scene", "no_scene"), ShouldEqual, before+1)
			})
		})

		Convey("When targets are filtered with a bad value", func() {
			before := endpointErrors("targets", "bad_request")
			So(serve(mux, "GET", "/targets?selected=maybe").Code, ShouldEqual, http.StatusBadRequest)

			Convey("Then the error is counted under its API code", func() {
				So(endpointErrors("targets", "bad_request"), ShouldEqual, before+1)
			})
		})
	})
}

func TestStreamMiddleware(t *testing.T) {
	Convey("Given a websocket endpoint behind the stream middleware", t, func() {
		upgrader := websocket.Upgrader{}
		echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			defer conn.Close()
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			_ = conn.WriteMessage(mt, data)
		})
		srv := httptest.NewServer(api.StreamMiddleware(echo, "echo"))
		defer srv.Close()

		Convey("When a client upgrades", func() {
			before := endpointErrors("echo", "upgrade_failed")
			conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
			So(err, ShouldBeNil)
			defer conn.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusSwitchingProtocols)

			Convey("Then the hijacked connection carries messages", func() {
				So(conn.WriteMessage(websocket.TextMessage, []byte("hi")), ShouldBeNil)
				_, data, err := conn.ReadMessage()
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, "hi")
				So(endpointErrors("echo", "upgrade_failed"), ShouldEqual, before)
			})
		})

		Convey("When a plain request arrives", func() {
			before := endpointErrors("echo", "upgrade_failed")
			resp, err := http.Get(srv.URL)
			So(err, ShouldBeNil)
			_ = resp.Body.Close()

			Convey("Then it is counted as a failed upgrade", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(endpointErrors("echo", "upgrade_failed"), ShouldEqual, before+1)
			})
		})
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Given kind helpers", t, func() {
		cause := errors.New("boom")

		Convey("Then NewKind keeps the kind matchable", func() {
			err := api.NewKind("op", api.ErrNoScene)
			So(errors.Is(err, api.ErrNoScene), ShouldBeTrue)
			So(err.Error(), ShouldStartWith, "op: ")
		})

		Convey("And WrapKind keeps kind and cause matchable", func() {
			err := api.WrapKind("op", api.ErrBadRequest, cause)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
		})
	})
}
