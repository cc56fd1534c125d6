package secret

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/zalando/go-keyring"
)

func init() {
	keyring.MockInit()
}

func TestDSN(t *testing.T) {
	Convey("Given an empty keyring", t, func() {
		So(DeleteDSN(), ShouldBeNil)

		Convey("DSN reports not found", func() {
			_, err := DSN()
			So(err, ShouldEqual, ErrNotFound)
		})

		Convey("A stored DSN can be read back and deleted", func() {
			So(SetDSN("postgres://student@db.example.com/portal"), ShouldBeNil)

			dsn, err := DSN()
			So(err, ShouldBeNil)
			So(dsn, ShouldEqual, "postgres://student@db.example.com/portal")

			So(DeleteDSN(), ShouldBeNil)
			_, err = DSN()
			So(err, ShouldEqual, ErrNotFound)
		})

		Convey("An empty DSN is rejected", func() {
			So(SetDSN(""), ShouldNotBeNil)
		})
	})
}
