package crudhandler

import (
	"context"
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/theapemachine/busrpc/apperr"
	"github.com/theapemachine/busrpc/entity"
	"github.com/theapemachine/busrpc/store"
	"github.com/theapemachine/busrpc/wire"
)

type User struct {
	entity.Base
	Name string `json:"name"`
}

func strp(s string) *string { return &s }
func idp(id int64) *int64   { return &id }

func newHandler() (*Handler[*User], *store.Memory[*User]) {
	st := store.NewMemory[*User]()
	return New[*User]("Users", st), st
}

func TestCreate(t *testing.T) {
	Convey("Given a Users CRUD handler over a store seeded to last-id=7", t, func() {
		h, st := newHandler()
		// seed the store to last-id=7 per the spec's scenario table
		for i := 0; i < 7; i++ {
			_, _ = st.Add(context.Background(), &User{Name: "seed"})
		}

		Convey("When sending CREATE with a valid body", func() {
			msg := &wire.BusMessage{Type: wire.Data, Resource: "Users", Action: "CREATE", Data: strp(`{"name":"Ada"}`)}
			out, err := h.Handle(context.Background(), msg)

			Convey("Then it returns the generated id and persists the entity", func() {
				So(err, ShouldBeNil)
				So(out, ShouldEqual, "8")

				stored, ok, _ := st.FindByID(context.Background(), 8)
				So(ok, ShouldBeTrue)
				So(stored.Name, ShouldEqual, "Ada")
				So(stored.CreatedAt.IsZero(), ShouldBeFalse)
			})
		})

		Convey("When sending CREATE with no data", func() {
			msg := &wire.BusMessage{Type: wire.Data, Resource: "Users", Action: "CREATE"}
			_, err := h.Handle(context.Background(), msg)

			Convey("Then it fails with DATA_MANDATORY", func() {
				ae, ok := apperr.As(err)
				So(ok, ShouldBeTrue)
				So(ae.Code(), ShouldEqual, "DATA_MANDATORY")
			})
		})
	})
}

func TestGet(t *testing.T) {
	Convey("Given a Users CRUD handler", t, func() {
		h, _ := newHandler()

		Convey("When getting a non-existent id", func() {
			msg := &wire.BusMessage{Type: wire.Data, Resource: "Users", Action: "GET", ID: idp(999)}
			_, err := h.Handle(context.Background(), msg)

			Convey("Then it fails with NOT_FOUND", func() {
				ae, ok := apperr.As(err)
				So(ok, ShouldBeTrue)
				So(ae.Kind(), ShouldEqual, apperr.NotFound)
				So(ae.Code(), ShouldEqual, "NOT_FOUND")
			})
		})

		Convey("When getting without an id", func() {
			msg := &wire.BusMessage{Type: wire.Data, Resource: "Users", Action: "GET"}
			_, err := h.Handle(context.Background(), msg)

			Convey("Then it fails with ID_MANDATORY", func() {
				ae, ok := apperr.As(err)
				So(ok, ShouldBeTrue)
				So(ae.Code(), ShouldEqual, "ID_MANDATORY")
			})
		})

		Convey("When getting an existing id", func() {
			create := &wire.BusMessage{Type: wire.Data, Resource: "Users", Action: "CREATE", Data: strp(`{"name":"Grace"}`)}
			idStr, err := h.Handle(context.Background(), create)
			So(err, ShouldBeNil)

			get := &wire.BusMessage{Type: wire.Data, Resource: "Users", Action: "GET", ID: idp(1)}
			out, err := h.Handle(context.Background(), get)

			Convey("Then it returns the encoded entity", func() {
				So(err, ShouldBeNil)
				var got User
				So(json.Unmarshal([]byte(out), &got), ShouldBeNil)
				So(got.Name, ShouldEqual, "Grace")
				So(idStr, ShouldEqual, "1")
			})
		})
	})
}

func TestList(t *testing.T) {
	Convey("Given a store with two users", t, func() {
		h, _ := newHandler()
		_, _ = h.Handle(context.Background(), &wire.BusMessage{Type: wire.Data, Resource: "Users", Action: "CREATE", Data: strp(`{"name":"A"}`)})
		_, _ = h.Handle(context.Background(), &wire.BusMessage{Type: wire.Data, Resource: "Users", Action: "CREATE", Data: strp(`{"name":"B"}`)})

		Convey("When sending LIST", func() {
			out, err := h.Handle(context.Background(), &wire.BusMessage{Type: wire.Data, Resource: "Users", Action: "LIST"})

			Convey("Then it returns the whole set", func() {
				So(err, ShouldBeNil)
				var got []User
				So(json.Unmarshal([]byte(out), &got), ShouldBeNil)
				So(len(got), ShouldEqual, 2)
			})
		})
	})
}

func TestUpdate(t *testing.T) {
	Convey("Given an existing user", t, func() {
		h, _ := newHandler()
		_, _ = h.Handle(context.Background(), &wire.BusMessage{Type: wire.Data, Resource: "Users", Action: "CREATE", Data: strp(`{"name":"A"}`)})

		Convey("When UPDATE is missing its data", func() {
			msg := &wire.BusMessage{Type: wire.Data, Resource: "Users", Action: "UPDATE", ID: idp(1)}
			_, err := h.Handle(context.Background(), msg)

			Convey("Then it fails with DATA_MANDATORY", func() {
				ae, ok := apperr.As(err)
				So(ok, ShouldBeTrue)
				So(ae.Code(), ShouldEqual, "DATA_MANDATORY")
			})
		})

		Convey("When UPDATE has id and data", func() {
			msg := &wire.BusMessage{Type: wire.Data, Resource: "Users", Action: "UPDATE", ID: idp(1), Data: strp(`{"name":"Renamed"}`)}
			out, err := h.Handle(context.Background(), msg)

			Convey("Then it returns true and persists the change", func() {
				So(err, ShouldBeNil)
				So(out, ShouldEqual, "true")

				get, _ := h.Handle(context.Background(), &wire.BusMessage{Type: wire.Data, Resource: "Users", Action: "GET", ID: idp(1)})
				var got User
				So(json.Unmarshal([]byte(get), &got), ShouldBeNil)
				So(got.Name, ShouldEqual, "Renamed")
			})
		})
	})
}

func TestDelete(t *testing.T) {
	Convey("Given an existing user", t, func() {
		h, _ := newHandler()
		_, _ = h.Handle(context.Background(), &wire.BusMessage{Type: wire.Data, Resource: "Users", Action: "CREATE", Data: strp(`{"name":"A"}`)})

		Convey("When DELETE targets a missing id", func() {
			_, err := h.Handle(context.Background(), &wire.BusMessage{Type: wire.Data, Resource: "Users", Action: "DELETE", ID: idp(999)})

			Convey("Then it fails with NOT_FOUND and does not mutate the store", func() {
				ae, ok := apperr.As(err)
				So(ok, ShouldBeTrue)
				So(ae.Code(), ShouldEqual, "NOT_FOUND")

				_, getErr := h.Handle(context.Background(), &wire.BusMessage{Type: wire.Data, Resource: "Users", Action: "GET", ID: idp(1)})
				So(getErr, ShouldBeNil)
			})
		})

		Convey("When DELETE targets the existing id", func() {
			out, err := h.Handle(context.Background(), &wire.BusMessage{Type: wire.Data, Resource: "Users", Action: "DELETE", ID: idp(1)})

			Convey("Then it returns true and removes the entity", func() {
				So(err, ShouldBeNil)
				So(out, ShouldEqual, "true")

				_, err := h.Handle(context.Background(), &wire.BusMessage{Type: wire.Data, Resource: "Users", Action: "GET", ID: idp(1)})
				ae, ok := apperr.As(err)
				So(ok, ShouldBeTrue)
				So(ae.Code(), ShouldEqual, "NOT_FOUND")
			})
		})
	})
}

func TestUnknownAction(t *testing.T) {
	Convey("Given a handler", t, func() {
		h, _ := newHandler()

		Convey("When the action is unrecognized", func() {
			_, err := h.Handle(context.Background(), &wire.BusMessage{Type: wire.Data, Resource: "Users", Action: "PATCH"})

			Convey("Then it fails with ACTION_NOT_IMPLEMENTED", func() {
				ae, ok := apperr.As(err)
				So(ok, ShouldBeTrue)
				So(ae.Code(), ShouldEqual, "ACTION_NOT_IMPLEMENTED")
			})
		})
	})
}
