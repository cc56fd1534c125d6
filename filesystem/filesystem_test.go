package filesystem

import (
	"testing"

	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func TestApi(t *testing.T) {
	Convey("Filesystem API", t, func() {
		Convey("Should default to OsFs", func() {
			SetOsFs()
			So(API().Name(), ShouldEqual, "OsFs")
		})

		Convey("Should switch to MemMapFs", func() {
			SetMemMapFs()
			So(API().Name(), ShouldEqual, "MemMapFS")
		})
	})
}

func TestWriteAtomic(t *testing.T) {
	Convey("Given an in-memory filesystem", t, func() {
		SetMemMapFs()
		path := "/data/live.json"

		Convey("WriteAtomic creates missing directories", func() {
			So(WriteAtomic(path, []byte("[]"), 0o644), ShouldBeNil)
			So(string(lo.Must(API().ReadFile(path))), ShouldEqual, "[]")
		})

		Convey("WriteAtomic replaces existing contents and leaves no temp files", func() {
			So(WriteAtomic(path, []byte("first"), 0o644), ShouldBeNil)
			So(WriteAtomic(path, []byte("second"), 0o644), ShouldBeNil)
			So(string(lo.Must(API().ReadFile(path))), ShouldEqual, "second")

			entries := lo.Must(API().ReadDir("/data"))
			So(entries, ShouldHaveLength, 1)
		})
	})
}
