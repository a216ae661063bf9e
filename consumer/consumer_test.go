package consumer

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/theapemachine/busrpc/router"
	"github.com/theapemachine/busrpc/wire"
)

type echoHandler struct{}

func (echoHandler) Type() wire.MessageType { return wire.Data }
func (echoHandler) Resource() string       { return "Users" }
func (echoHandler) Handle(ctx context.Context, msg *wire.BusMessage) (string, error) {
	return "ok", nil
}

func TestProcessLivenessUnderPoison(t *testing.T) {
	Convey("Given a router with one registered handler", t, func() {
		r, err := router.New(echoHandler{})
		So(err, ShouldBeNil)

		Convey("When k malformed payloads are processed", func() {
			poison := [][]byte{
				[]byte(`not json at all`),
				[]byte(`{"resource":"Users"}`), // missing action
				[]byte(`{"type":"BOGUS","resource":"Users","action":"GET"}`),
			}
			for _, body := range poison {
				env := Process(context.Background(), r, body)
				So(env.OK, ShouldBeFalse)
				So(env.Error, ShouldNotBeNil)
			}

			Convey("Then a subsequent valid request still succeeds", func() {
				valid := []byte(`{"type":"DATA","resource":"Users","action":"LIST"}`)
				env := Process(context.Background(), r, valid)
				So(env.OK, ShouldBeTrue)
				So(*env.Data, ShouldEqual, "ok")
			})
		})
	})
}

func TestProcessRoutingNotFound(t *testing.T) {
	Convey("Given a router with no handlers", t, func() {
		r, err := router.New()
		So(err, ShouldBeNil)

		Convey("When routing to an unregistered resource", func() {
			body := []byte(`{"type":"DATA","resource":"Ghost","action":"LIST"}`)
			env := Process(context.Background(), r, body)

			Convey("Then it fails with SERVICE_NOT_FOUND", func() {
				So(env.OK, ShouldBeFalse)
				So(env.Error.Code, ShouldEqual, "SERVICE_NOT_FOUND")
			})
		})
	})
}

func TestProcessDeserializeError(t *testing.T) {
	Convey("Given any router", t, func() {
		r, _ := router.New(echoHandler{})

		Convey("When the payload is not valid JSON", func() {
			env := Process(context.Background(), r, []byte(`{{{`))

			Convey("Then it fails with DESERIALIZE_ERROR", func() {
				So(env.OK, ShouldBeFalse)
				So(env.Error.Code, ShouldEqual, "DESERIALIZE_ERROR")
			})
		})
	})
}
