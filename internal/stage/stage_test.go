package stage

import (
	"testing"
	"time"

	"github.com/padhai-cli/padhai/key"
	"github.com/padhai-cli/padhai/media"
	"github.com/padhai-cli/padhai/playback"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

type nopElement struct{}

func (nopElement) SetTitle(string) error  { return nil }
func (nopElement) SetSource(string) error { return nil }
func (nopElement) Play() error            { return nil }
func (nopElement) Pause() error           { return nil }
func (nopElement) SetMuted(bool) error    { return nil }
func (nopElement) Reset() error           { return nil }

type nopPlatform struct{}

func (nopPlatform) SupportsNativeHLS() bool  { return true }
func (nopPlatform) RequestFullscreen() error { return nil }
func (nopPlatform) ExitFullscreen() error    { return nil }
func (nopPlatform) IsFullscreen() bool       { return false }

func (nopPlatform) OnFullscreenChange(func(bool)) (func(), error) {
	return func() {}, nil
}

type embedRecorder struct {
	embedded []string
}

func (r *embedRecorder) Embed(ref media.Reference, _ string) error {
	r.embedded = append(r.embedded, ref.EmbedURL)
	return nil
}

func (r *embedRecorder) Placeholder(string) error { return nil }

func TestDecoderConfig(t *testing.T) {
	Convey("Given decoder settings", t, func() {
		viper.Set(key.DecoderBackBuffer, 30*time.Second)
		viper.Set(key.DecoderWorker, false)
		viper.Set(key.DecoderLowLatency, true)

		Convey("Then they should be read into the decoder config", func() {
			cfg := DecoderConfig()
			So(cfg.BackBuffer, ShouldEqual, 30*time.Second)
			So(cfg.EnableWorker, ShouldBeFalse)
			So(cfg.LowLatency, ShouldBeTrue)
		})
	})
}

func TestSnapshots(t *testing.T) {
	Convey("Given a session with a snapshot channel", t, func() {
		renderer := &embedRecorder{}
		session, err := playback.New(playback.Options{
			Element:  nopElement{},
			Platform: nopPlatform{},
			Renderer: renderer,
		})
		So(err, ShouldBeNil)

		snaps, err := Snapshots(session)
		So(err, ShouldBeNil)

		Convey("When several changes happen before anyone reads", func() {
			So(session.Mount(media.Classify("https://youtu.be/dQw4w9WgXcQ"), "First"), ShouldBeNil)
			So(session.Mount(media.Classify("https://vimeo.com/76979871"), "Second"), ShouldBeNil)

			Convey("Then only the latest should be kept", func() {
				snap := <-snaps
				So(snap.Title, ShouldEqual, "Second")
				So(snap.Ref.Kind, ShouldEqual, media.KindVimeo)
				So(renderer.embedded, ShouldHaveLength, 2)

				select {
				case <-snaps:
					So("stale snapshot", ShouldBeEmpty)
				default:
				}
			})
		})

		Convey("When the session is unmounted", func() {
			So(session.Unmount(), ShouldBeNil)

			Convey("Then the last snapshot should arrive and the channel close", func() {
				snap, ok := <-snaps
				So(ok, ShouldBeTrue)
				So(snap.State, ShouldEqual, playback.StateUnmounted)

				_, ok = <-snaps
				So(ok, ShouldBeFalse)
			})
		})
	})
}
