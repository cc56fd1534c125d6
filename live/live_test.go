package live

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/padhai-cli/padhai/filesystem"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEvaluate(t *testing.T) {
	Convey("Given the current time", t, func() {
		now := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
		at := func(d time.Duration) *time.Time { return lo.ToPtr(now.Add(d)) }

		Convey("When a lecture starts later", func() {
			info := Evaluate(Lecture{ScheduledTime: at(2*time.Hour + 15*time.Minute + 30*time.Second)}, now)

			Convey("Then it should count down in hours and minutes", func() {
				So(info.Status, ShouldEqual, Upcoming)
				So(info.Message, ShouldEqual, "Starts in 2h 15m")
				So(info.CanJoin(), ShouldBeFalse)
				So(info.Time, ShouldNotBeEmpty)
			})
		})

		Convey("When a lecture started within the hour", func() {
			info := Evaluate(Lecture{ScheduledTime: at(-59 * time.Minute)}, now)

			Convey("Then it should be live", func() {
				So(info.Status, ShouldEqual, Live)
				So(info.Message, ShouldEqual, "Live Now")
				So(info.CanJoin(), ShouldBeTrue)
			})
		})

		Convey("When a lecture starts exactly now", func() {
			info := Evaluate(Lecture{ScheduledTime: at(0)}, now)

			Convey("Then it should be live", func() {
				So(info.Message, ShouldEqual, "Live Now")
			})
		})

		Convey("When a lecture started an hour or more ago", func() {
			Convey("Then the live flag should decide", func() {
				So(Evaluate(Lecture{ScheduledTime: at(-time.Hour)}, now).Message, ShouldEqual, "Offline")
				info := Evaluate(Lecture{ScheduledTime: at(-3 * time.Hour), IsLive: true}, now)
				So(info.Status, ShouldEqual, Live)
				So(info.Message, ShouldEqual, "Available Now")
			})
		})

		Convey("When a lecture is unscheduled", func() {
			Convey("Then only the live flag should matter", func() {
				So(Evaluate(Lecture{IsLive: true}, now).Message, ShouldEqual, "Available Now")
				info := Evaluate(Lecture{}, now)
				So(info.Status, ShouldEqual, Offline)
				So(info.Status.String(), ShouldEqual, "offline")
				So(info.Time, ShouldBeEmpty)
			})
		})

		Convey("Then the instructor initials should be shown", func() {
			So(Lecture{Instructor: "prof. pravesh coderz"}.Initials(), ShouldEqual, "PP")
		})
	})
}

func TestStore(t *testing.T) {
	Convey("Given a live store", t, func() {
		filesystem.SetMemMapFs()
		store := NewStore(filepath.Join(os.TempDir(), "padhai", "live.json"))

		Convey("When nothing was saved", func() {
			lectures, err := store.Load()

			Convey("Then the schedule should be empty", func() {
				So(err, ShouldBeNil)
				So(lectures, ShouldBeEmpty)
			})
		})

		Convey("When lectures are added", func() {
			later := time.Now().Add(time.Hour)
			sooner := time.Now().Add(time.Minute)

			_, err := store.Add(Lecture{Title: "Unscheduled", VideoURL: "https://youtu.be/dQw4w9WgXcQ", Instructor: "A B"})
			So(err, ShouldBeNil)
			second, err := store.Add(Lecture{Title: "Later", VideoURL: "https://x/a.m3u8", Instructor: "A B", ScheduledTime: &later})
			So(err, ShouldBeNil)
			_, err = store.Add(Lecture{Title: "Sooner", VideoURL: "https://x/b.m3u8", Instructor: "A B", ScheduledTime: &sooner})
			So(err, ShouldBeNil)

			Convey("Then they should get ids and load in schedule order", func() {
				So(second.ID, ShouldNotBeEmpty)
				So(second.CreatedAt.IsZero(), ShouldBeFalse)

				lectures, err := store.Load()
				So(err, ShouldBeNil)
				So(lo.Map(lectures, func(l Lecture, _ int) string { return l.Title }), ShouldResemble, []string{"Sooner", "Later", "Unscheduled"})
			})

			Convey("And one is removed", func() {
				So(store.Remove(second.ID), ShouldBeNil)

				Convey("Then it should be gone", func() {
					lectures, err := store.Load()
					So(err, ShouldBeNil)
					So(lectures, ShouldHaveLength, 2)
				})

				Convey("Then removing it again should be not found", func() {
					So(errors.Is(store.Remove(second.ID), ErrNotFound), ShouldBeTrue)
				})
			})
		})

		Convey("When a lecture is missing required fields", func() {
			_, err := store.Add(Lecture{Title: "No video", Instructor: "A"})

			Convey("Then it should be refused", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestWatch(t *testing.T) {
	Convey("Given a live store on disk", t, func() {
		filesystem.SetOsFs()
		Reset(filesystem.SetMemMapFs)

		dir := t.TempDir()
		store := NewStore(filepath.Join(dir, "live.json"))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		updates := make(chan []Lecture, 4)
		err := Watch(ctx, store, 50*time.Millisecond, func(lectures []Lecture, err error) {
			if err == nil {
				updates <- lectures
			}
		})
		So(err, ShouldBeNil)

		Convey("When another process saves a lecture", func() {
			_, err := NewStore(store.Path()).Add(Lecture{Title: "Optics", VideoURL: "https://x/o.m3u8", Instructor: "R K"})
			So(err, ShouldBeNil)

			Convey("Then the watcher should deliver the new schedule", func() {
				select {
				case lectures := <-updates:
					So(lectures, ShouldHaveLength, 1)
					So(lectures[0].Title, ShouldEqual, "Optics")
				case <-time.After(3 * time.Second):
					So("no update", ShouldBeEmpty)
				}
			})
		})
	})
}
