package healthhandler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/theapemachine/busrpc/apperr"
	"github.com/theapemachine/busrpc/health"
	"github.com/theapemachine/busrpc/wire"
)

type stubProber struct{ err error }

func (s stubProber) Ping(ctx context.Context) error { return s.err }

func checkMsg() *wire.BusMessage {
	return &wire.BusMessage{Type: wire.Infra, Resource: Resource, Action: "CHECK"}
}

func TestHealthHandler(t *testing.T) {
	Convey("Given a health handler", t, func() {
		Convey("When the store is reachable", func() {
			h := New(stubProber{})
			out, err := h.Handle(context.Background(), checkMsg())

			Convey("Then it reports Healthy/Healthy", func() {
				So(err, ShouldBeNil)
				var snap health.Snapshot
				So(json.Unmarshal([]byte(out), &snap), ShouldBeNil)
				So(snap.Status, ShouldEqual, health.Healthy)
				So(snap.DB, ShouldEqual, health.Healthy)
			})
		})

		Convey("When the store cleanly reports it cannot connect", func() {
			h := New(stubProber{err: health.ErrCannotConnect})
			out, err := h.Handle(context.Background(), checkMsg())

			Convey("Then it reports Healthy/Degraded", func() {
				So(err, ShouldBeNil)
				var snap health.Snapshot
				So(json.Unmarshal([]byte(out), &snap), ShouldBeNil)
				So(snap.Status, ShouldEqual, health.Healthy)
				So(snap.DB, ShouldEqual, health.Degraded)
			})
		})

		Convey("When the probe fails unexpectedly", func() {
			h := New(stubProber{err: errors.New("boom")})
			out, err := h.Handle(context.Background(), checkMsg())

			Convey("Then it reports Unhealthy/Unhealthy and never surfaces the error", func() {
				So(err, ShouldBeNil)
				var snap health.Snapshot
				So(json.Unmarshal([]byte(out), &snap), ShouldBeNil)
				So(snap.Status, ShouldEqual, health.Unhealthy)
				So(snap.DB, ShouldEqual, health.Unhealthy)
			})
		})

		Convey("When the action is not CHECK", func() {
			h := New(stubProber{})
			msg := checkMsg()
			msg.Action = "PING"
			_, err := h.Handle(context.Background(), msg)

			Convey("Then it fails with ACTION_NOT_IMPLEMENTED", func() {
				So(err, ShouldNotBeNil)
				ae, ok := apperr.As(err)
				So(ok, ShouldBeTrue)
				So(ae.Code(), ShouldEqual, "ACTION_NOT_IMPLEMENTED")
			})
		})
	})
}
