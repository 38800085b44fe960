package sensor

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/bodytrack/internal/domain/skeleton"
	"github.com/okian/bodytrack/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type collector struct {
	mu     sync.Mutex
	frames []skeleton.Frame
}

func (c *collector) deliver(f skeleton.Frame) {
	c.mu.Lock()
	c.frames = append(c.frames, f)
	c.mu.Unlock()
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func (c *collector) last() skeleton.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames[len(c.frames)-1]
}

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

func TestPose(t *testing.T) {
	Convey("A synthetic pose reports every joint", t, func() {
		j := Pose(0, 1, 1500*time.Millisecond)
		for id := skeleton.HipCenter; id <= skeleton.FootRight; id++ {
			_, ok := j[id]
			So(ok, ShouldBeTrue)
		}
		So(j[skeleton.Head].Y, ShouldBeGreaterThan, j[skeleton.HipCenter].Y)
		So(j[skeleton.HandLeft].X, ShouldBeLessThan, j[skeleton.HandRight].X)
	})

	Convey("Bodies are spread apart by slot", t, func() {
		a := Pose(0, 2, 0)[skeleton.HipCenter]
		b := Pose(1, 2, 0)[skeleton.HipCenter]
		So(b.X-a.X, ShouldBeGreaterThan, 0.5)
	})
}

func TestSynthetic(t *testing.T) {
	Convey("Given a synthetic source with two bodies", t, func() {
		s := NewSynthetic(WithBodies(2), WithRate(200), WithSyntheticLogger(logger.Nop()),
			WithDropout(time.Second, 200*time.Millisecond))

		Convey("Then frames report every slot and track only the configured ones", func() {
			f := s.Frame(7, time.Unix(1, 0), 100*time.Millisecond)
			So(f.Seq, ShouldEqual, 7)
			So(f.Bodies, ShouldHaveLength, SlotCount)
			So(f.Bodies[0].State, ShouldEqual, skeleton.Tracked)
			So(f.Bodies[1].State, ShouldEqual, skeleton.Tracked)
			So(f.Bodies[2].State, ShouldEqual, skeleton.NotTracked)
			So(f.Bodies[2].Joints, ShouldBeEmpty)
		})

		Convey("Then slot 0 drops out at the end of each period", func() {
			f := s.Frame(1, time.Unix(1, 0), 900*time.Millisecond)
			So(f.Bodies[0].State, ShouldEqual, skeleton.NotTracked)
			So(f.Bodies[1].State, ShouldEqual, skeleton.Tracked)
		})

		Convey("When started", func() {
			c := &collector{}
			So(s.Start(context.Background(), c.deliver), ShouldBeNil)
			defer s.Close()

			Convey("Then frames arrive with increasing sequence numbers", func() {
				So(eventually(func() bool { return c.count() >= 3 }), ShouldBeTrue)
				c.mu.Lock()
				So(c.frames[1].Seq, ShouldEqual, c.frames[0].Seq+1)
				c.mu.Unlock()
			})

			Convey("And starting again fails", func() {
				So(errors.Is(s.Start(context.Background(), c.deliver), ErrAlreadyStarted), ShouldBeTrue)
			})

			Convey("And Close stops delivery", func() {
				So(s.Close(), ShouldBeNil)
				n := c.count()
				time.Sleep(30 * time.Millisecond)
				So(c.count(), ShouldEqual, n)
			})
		})
	})
}

func TestUnavailable(t *testing.T) {
	Convey("The placeholder source never starts", t, func() {
		var u Unavailable
		So(errors.Is(u.Start(context.Background(), func(skeleton.Frame) {}), skeleton.ErrSensorUnavailable), ShouldBeTrue)
		So(u.Close(), ShouldBeNil)
	})
}

func TestBridge(t *testing.T) {
	Convey("Given a bridge served over HTTP", t, func() {
		stamp := time.Unix(42, 0)
		b := NewBridge(WithBridgeLogger(logger.Nop()), WithBridgeClock(func() time.Time { return stamp }))
		srv := httptest.NewServer(b)
		defer srv.Close()
		url := "ws" + strings.TrimPrefix(srv.URL, "http")
		ctx := context.Background()

		Convey("When a publisher connects before Start", func() {
			_, err := Dial(ctx, url)

			Convey("Then the connection is refused", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When started with a publisher connected", func() {
			c := &collector{}
			So(b.Start(ctx, c.deliver), ShouldBeNil)
			pub, err := Dial(ctx, url)
			So(err, ShouldBeNil)
			defer pub.Close()
			So(eventually(func() bool { return b.Publishers() == 1 }), ShouldBeTrue)

			Convey("Then published frames are delivered and stamped", func() {
				f := NewSynthetic(WithSyntheticLogger(logger.Nop())).Frame(3, time.Time{}, 0)
				So(pub.Publish(ctx, f), ShouldBeNil)
				So(eventually(func() bool { return c.count() == 1 }), ShouldBeTrue)

				got := c.last()
				So(got.Seq, ShouldEqual, 3)
				So(got.Timestamp.Equal(stamp), ShouldBeTrue)
				So(got.Bodies[0].Joints[skeleton.HandLeft], ShouldResemble, f.Bodies[0].Joints[skeleton.HandLeft])
			})

			Convey("Then malformed messages are skipped without dropping the publisher", func() {
				pub.mu.Lock()
				So(pub.conn.WriteMessage(websocket.TextMessage, []byte(`{"bodies":[{"state":"dancing"}]}`)), ShouldBeNil)
				pub.mu.Unlock()
				So(pub.Publish(ctx, skeleton.Frame{Seq: 9}), ShouldBeNil)
				So(eventually(func() bool { return c.count() == 1 }), ShouldBeTrue)
				So(c.last().Seq, ShouldEqual, 9)
				So(b.Publishers(), ShouldEqual, 1)
			})

			Convey("Then Close disconnects the publisher", func() {
				So(b.Close(), ShouldBeNil)
				So(b.Publishers(), ShouldEqual, 0)
			})
		})
	})
}
