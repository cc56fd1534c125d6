package mini

import (
	"context"
	"errors"
	"testing"

	"github.com/padhai-cli/padhai/catalog"
	"github.com/padhai-cli/padhai/filesystem"
	"github.com/padhai-cli/padhai/history"
	"github.com/padhai-cli/padhai/key"
	"github.com/padhai-cli/padhai/media"
	"github.com/padhai-cli/padhai/playback"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
	viper.Set(key.IconsVariant, "plain")
	viper.Set(key.PlayerCompletionPercentage, 80)
}

func TestStates(t *testing.T) {
	Convey("Given a mini session", t, func() {
		m := newMini(context.Background(), &Options{})
		m.setState(batchesSearchState)

		Convey("When moving forward and back", func() {
			m.newState(batchSelectState)
			m.newState(lectureSelectState)
			m.previousState()

			Convey("Then it should return to the batch list", func() {
				So(m.state, ShouldEqual, batchSelectState)
			})
		})

		Convey("When leaving the player", func() {
			m.newState(lectureSelectState)
			m.newState(watchState)
			m.newState(quitState)
			m.previousState()

			Convey("Then the player should not be revisited", func() {
				So(m.state, ShouldEqual, lectureSelectState)
			})
		})

		Convey("When quitting", func() {
			m.newState(quitState)

			Convey("Then the loop should end", func() {
				So(errors.Is(m.handleState(), errQuit), ShouldBeTrue)
			})
		})

		Convey("When continuing with an empty history", func() {
			So(history.Clear(), ShouldBeNil)
			m.setState(historySelectState)

			Convey("Then it should fall back to searching", func() {
				So(m.handleState(), ShouldBeNil)
				So(m.state, ShouldEqual, batchesSearchState)
			})
		})
	})
}

func TestPlayerClosed(t *testing.T) {
	Convey("Given a mini session", t, func() {
		m := newMini(context.Background(), &Options{})

		Convey("When nothing native is mounted", func() {
			Convey("Then the player should not count as closed", func() {
				So(m.playerClosed(), ShouldBeFalse)
			})
		})

		Convey("When the player window is open", func() {
			exit := make(chan struct{})
			m.playerExit = exit

			Convey("Then it should be reported once it exits", func() {
				So(m.playerClosed(), ShouldBeFalse)
				close(exit)
				So(m.playerClosed(), ShouldBeTrue)
			})
		})
	})
}

func TestLabels(t *testing.T) {
	Convey("Given catalog entries", t, func() {
		url, weeks := "https://youtu.be/dQw4w9WgXcQ", 8
		free := true

		Convey("When labelling a batch", func() {
			label := batchLabel(catalog.Batch{Name: "NEET 2027", Price: 99900, DurationWeeks: &weeks})

			Convey("Then it should include price and duration", func() {
				So(label, ShouldEqual, "NEET 2027 • ₹999.00 • 8 weeks")
			})
		})

		Convey("When labelling lectures", func() {
			paid := subjectLecture{Lecture: catalog.Lecture{Title: "Optics", VideoURL: &url}, subject: "Physics"}
			open := subjectLecture{Lecture: catalog.Lecture{Title: "Cells", VideoURL: &url, IsFree: &free}, subject: "Biology"}
			empty := subjectLecture{Lecture: catalog.Lecture{Title: "Notes"}, subject: "Biology"}

			Convey("Then paid lectures should be locked until enrolled", func() {
				So(lectureLabel(paid, false), ShouldEqual, "[locked] Physics: Optics")
				So(lectureLabel(paid, true), ShouldEqual, "Physics: Optics")
			})

			Convey("Then free and videoless lectures should be marked", func() {
				So(lectureLabel(open, false), ShouldEqual, "Biology: Cells (free)")
				So(lectureLabel(empty, false), ShouldEqual, "Biology: Notes (no video)")
			})
		})

		Convey("When labelling history", func() {
			So(entryLabel(&history.Entry{Title: "Optics", BatchName: "NEET", WatchedPercentage: 42}), ShouldEqual, "NEET • Optics (42%)")
			So(entryLabel(&history.Entry{Title: "Optics", WatchedPercentage: 90}), ShouldEqual, "Optics (watched)")
		})
	})
}

func TestFlatten(t *testing.T) {
	Convey("Given lectures grouped by subject", t, func() {
		grouped := []catalog.SubjectLectures{
			{Subject: catalog.Subject{Name: "Physics"}, Lectures: []catalog.Lecture{{ID: "a"}, {ID: "b"}}},
			{Subject: catalog.Subject{Name: "Chemistry"}, Lectures: []catalog.Lecture{{ID: "c"}}},
		}

		Convey("When flattened", func() {
			lectures := flatten(grouped)

			Convey("Then the order and subjects should be kept", func() {
				So(lectures, ShouldHaveLength, 3)
				So(lectures[1].ID, ShouldEqual, "b")
				So(lectures[2].subject, ShouldEqual, "Chemistry")
			})
		})

		Convey("When limited", func() {
			So(limit([]int{1, 2, 3}, 2), ShouldResemble, []int{1, 2})
			So(limit([]int{1, 2, 3}, 0), ShouldHaveLength, 3)
			So(limit([]int{1}, 5), ShouldHaveLength, 1)
		})
	})
}

func TestControls(t *testing.T) {
	Convey("Given the player menu", t, func() {
		m := newMini(context.Background(), &Options{})
		native := playback.Snapshot{
			State: playback.StateMounted,
			Title: "Optics",
			Ref:   media.Classify("https://cdn.example.com/optics.mp4"),
			Ready: true,
		}

		Convey("When a native video is ready", func() {
			binds := m.controls(native)

			Convey("Then playback controls should be offered", func() {
				So(binds, ShouldResemble, []*bind{toggle, mute, fullscreen, back})
			})
		})

		Convey("When loading failed", func() {
			failed := native
			failed.LoadErr = &playback.LoadError{URL: native.Ref.URL, Err: errors.New("404")}

			Convey("Then retry should be offered", func() {
				So(m.controls(failed)[0], ShouldEqual, retry)
				So(describe(failed), ShouldContainSubstring, "404")
			})
		})

		Convey("When the video is embedded", func() {
			embedded := playback.Snapshot{
				State: playback.StateMounted,
				Title: "Intro",
				Ref:   media.Classify("https://youtu.be/dQw4w9WgXcQ"),
			}

			Convey("Then only refresh and back should be offered", func() {
				So(m.controls(embedded), ShouldResemble, []*bind{refresh, back})
				So(describe(embedded), ShouldContainSubstring, "opened in your browser")
			})
		})

		Convey("When a playlist surrounds the lecture", func() {
			url := "https://cdn.example.com/a.mp4"
			m.playlist = catalog.NewPlaylist([]catalog.SubjectLectures{{
				Lectures: []catalog.Lecture{{ID: "a", VideoURL: &url}, {ID: "b", VideoURL: &url}, {ID: "c", VideoURL: &url}},
			}}, "b")

			Convey("Then both directions should be offered", func() {
				binds := m.controls(native)
				So(binds, ShouldContain, next)
				So(binds, ShouldContain, prev)
			})
		})

		Convey("When the next lecture is locked", func() {
			url := "https://cdn.example.com/a.mp4"
			free := true
			m.playlist = catalog.NewPlaylist([]catalog.SubjectLectures{{
				Lectures: []catalog.Lecture{
					{ID: "a", VideoURL: &url, IsFree: &free},
					{ID: "b", VideoURL: &url},
				},
			}}, "a")
			m.enrolled = false

			So(m.step(1, nil, &position{}), ShouldBeNil)

			Convey("Then the playlist should stay on the current lecture", func() {
				current, ok := m.playlist.Current()
				So(ok, ShouldBeTrue)
				So(current.ID, ShouldEqual, "a")
				So(m.playlist.HasNext(), ShouldBeTrue)
			})
		})
	})
}
