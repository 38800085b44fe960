package display

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/bodytrack/internal/domain/geom"
	"github.com/okian/bodytrack/internal/domain/render"
	"github.com/okian/bodytrack/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func dial(srv *httptest.Server) (*websocket.Conn, error) {
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	return conn, err
}

func TestHub(t *testing.T) {
	Convey("Given a hub served over HTTP", t, func() {
		var mu sync.Mutex
		var resized []geom.Size
		h := NewHub(
			WithLogger(logger.Nop()),
			WithSize(640, 480),
			WithOnResize(func(_ context.Context, w, ht float64) {
				mu.Lock()
				resized = append(resized, geom.Size{Width: w, Height: ht})
				mu.Unlock()
			}),
		)
		srv := httptest.NewServer(h)
		defer srv.Close()
		defer h.Close()

		conn, err := dial(srv)
		So(err, ShouldBeNil)
		defer conn.Close()
		So(eventually(func() bool { return h.ClientCount() == 1 }), ShouldBeTrue)

		Convey("When a scene is presented", func() {
			h.Clear()
			h.Draw(render.Circle(geom.Pt(10, 10), 4, render.Red, render.Red))
			h.Draw(render.Text("test", geom.Pt(200, 450), 30, render.White))
			So(h.Present(context.Background()), ShouldBeNil)

			Convey("Then the client receives it as JSON", func() {
				_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
				_, data, err := conn.ReadMessage()
				So(err, ShouldBeNil)

				var scene render.Scene
				So(json.Unmarshal(data, &scene), ShouldBeNil)
				So(scene.Seq, ShouldEqual, 1)
				So(scene.Width, ShouldEqual, 640)
				So(scene.Primitives, ShouldHaveLength, 2)
				So(scene.Primitives[1].Text, ShouldEqual, "test")
			})

			Convey("And it is kept as the last scene", func() {
				So(h.Last().Seq, ShouldEqual, 1)
				So(h.LastJSON(), ShouldNotBeEmpty)
			})
		})

		Convey("When the client reports a resize", func() {
			So(conn.WriteJSON(map[string]any{"type": "resize", "width": 1280, "height": 720}), ShouldBeNil)

			Convey("Then the callback sees the new size", func() {
				So(eventually(func() bool {
					mu.Lock()
					defer mu.Unlock()
					return len(resized) == 1
				}), ShouldBeTrue)
				w, ht := h.Size()
				So(w, ShouldEqual, 1280)
				So(ht, ShouldEqual, 720)
			})
		})

		Convey("When the client sends junk and a bad resize", func() {
			So(conn.WriteMessage(websocket.TextMessage, []byte("{nope")), ShouldBeNil)
			So(conn.WriteJSON(map[string]any{"type": "resize", "width": 0, "height": 720}), ShouldBeNil)
			So(conn.WriteJSON(map[string]any{"type": "resize", "width": 800, "height": 600}), ShouldBeNil)

			Convey("Then only the valid resize gets through and the client stays", func() {
				So(eventually(func() bool {
					mu.Lock()
					defer mu.Unlock()
					return len(resized) == 1
				}), ShouldBeTrue)
				mu.Lock()
				So(resized[0], ShouldResemble, geom.Size{Width: 800, Height: 600})
				mu.Unlock()
				So(h.ClientCount(), ShouldEqual, 1)
			})
		})

		Convey("When the client disconnects", func() {
			_ = conn.Close()

			Convey("Then it is unregistered", func() {
				So(eventually(func() bool { return h.ClientCount() == 0 }), ShouldBeTrue)
			})
		})

		Convey("When the hub is closed", func() {
			So(h.Close(), ShouldBeNil)

			Convey("Then Present fails", func() {
				So(errors.Is(h.Present(context.Background()), render.ErrSinkClosed), ShouldBeTrue)
				So(h.ClientCount(), ShouldEqual, 0)
			})
		})
	})
}
