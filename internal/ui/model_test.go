package ui

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestModel(t *testing.T) {
	Convey("Given a notification model", t, func() {
		m := &Model{}

		Convey("When nothing was notified", func() {
			Convey("Then the view should be untouched", func() {
				So(m.View("a\nb"), ShouldEqual, "a\nb")
			})
		})

		Convey("When a notification arrives", func() {
			cmd := m.Update(NotificationMsg("Enrolled"))

			Convey("Then it should be appended to the last line", func() {
				So(cmd, ShouldNotBeNil)
				So(m.Current(), ShouldEqual, "Enrolled")
				So(m.View("a\nb"), ShouldEqual, "a\nb  \033[90mEnrolled\033[0m")
			})

			Convey("And its own timer fires", func() {
				m.Update(ClearNotificationMsg{at: m.notifiedAt})

				Convey("Then it should be cleared", func() {
					So(m.Current(), ShouldBeEmpty)
				})
			})

			Convey("And an older timer fires", func() {
				m.Update(ClearNotificationMsg{})

				Convey("Then it should stay", func() {
					So(m.Current(), ShouldEqual, "Enrolled")
				})
			})
		})

		Convey("When Notify runs", func() {
			Convey("Then it should produce a notification message", func() {
				So(Notify("hi")(), ShouldEqual, NotificationMsg("hi"))
			})
		})
	})
}
