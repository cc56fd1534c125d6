package hls

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	gohlslib "github.com/bluenviron/gohlslib/v2"
	"github.com/bluenviron/gohlslib/v2/pkg/codecs"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
	"github.com/padhai-cli/padhai/playback"
	. "github.com/smartystreets/goconvey/convey"
)

var testSPS = []byte{
	0x67, 0x42, 0xc0, 0x28, 0xd9, 0x00, 0x78, 0x02,
	0x27, 0xe5, 0x84, 0x00, 0x00, 0x03, 0x00, 0x04,
	0x00, 0x00, 0x03, 0x00, 0xf0, 0x3c, 0x60, 0xc9,
	0x20,
}

// newOrigin serves a finished stream of ten seconds of H264 and AAC, one
// IDR frame every half second.
func newOrigin(t *testing.T) *httptest.Server {
	video := &gohlslib.Track{Codec: &codecs.H264{SPS: testSPS, PPS: []byte{0x08}}}
	audio := &gohlslib.Track{Codec: &codecs.MPEG4Audio{Config: mpeg4audio.AudioSpecificConfig{
		Type:         mpeg4audio.ObjectTypeAACLC,
		SampleRate:   44100,
		ChannelCount: 2,
	}}}

	muxer := &gohlslib.Muxer{
		Variant:            gohlslib.MuxerVariantFMP4,
		SegmentCount:       7,
		SegmentMinDuration: time.Second,
		Tracks:             []*gohlslib.Track{video, audio},
	}
	if err := muxer.Start(); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	for i := range 20 {
		ntp := start.Add(time.Duration(i) * 500 * time.Millisecond)
		if err := muxer.WriteH264(video, ntp, int64(i)*45000, [][]byte{testSPS, {0x08}, {0x05}}); err != nil {
			t.Fatal(err)
		}
		if err := muxer.WriteMPEG4Audio(audio, ntp, int64(i)*22050, [][]byte{{0x01, 0x02, 0x03, 0x04}}); err != nil {
			t.Fatal(err)
		}
	}

	server := httptest.NewServer(http.HandlerFunc(muxer.Handle))
	t.Cleanup(func() {
		server.Close()
		muxer.Close()
	})
	return server
}

type sourceRecorder struct {
	mu  sync.Mutex
	src string
}

func (s *sourceRecorder) SetTitle(string) error { return nil }
func (s *sourceRecorder) Play() error           { return nil }
func (s *sourceRecorder) Pause() error          { return nil }
func (s *sourceRecorder) SetMuted(bool) error   { return nil }
func (s *sourceRecorder) Reset() error          { return nil }

func (s *sourceRecorder) SetSource(src string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src = src
	return nil
}

func (s *sourceRecorder) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src
}

func TestSegmentCount(t *testing.T) {
	Convey("Given back buffer durations", t, func() {
		Convey("Then short buffers keep the minimum segment count", func() {
			So(segmentCount(0), ShouldEqual, minSegmentCount)
			So(segmentCount(3*time.Second), ShouldEqual, minSegmentCount)
		})

		Convey("Then long buffers keep one segment per second, rounded up", func() {
			So(segmentCount(90*time.Second), ShouldEqual, 90)
			So(segmentCount(10500*time.Millisecond), ShouldEqual, 11)
		})
	})
}

func TestDecoder(t *testing.T) {
	Convey("Given a decoder on a relay", t, func() {
		relay := NewRelay("")
		Reset(func() {
			_ = relay.Close(context.Background())
		})

		errs := make(chan error, 1)
		parsed := make(chan struct{}, 1)
		events := playback.DecoderEvents{
			OnManifestParsed: func() { parsed <- struct{}{} },
			OnError:          func(err error) { errs <- err },
		}

		factory := NewFactory(relay, nil)
		dec, err := factory(playback.DefaultDecoderConfig(), events)
		So(err, ShouldBeNil)

		el := &sourceRecorder{}

		Convey("When it is loaded before being attached", func() {
			err := dec.Load("http://127.0.0.1:1/index.m3u8")

			Convey("Then it should refuse", func() {
				So(err, ShouldEqual, ErrNotAttached)
			})
		})

		Convey("When it is attached", func() {
			So(dec.Attach(el), ShouldBeNil)

			Convey("Then the element should point at the relay", func() {
				So(el.Source(), ShouldStartWith, "http://127.0.0.1:")
				So(el.Source(), ShouldEndWith, "/index.m3u8")
				So(relay.Routes(), ShouldEqual, 1)
			})

			Convey("And the manifest is missing", func() {
				origin := httptest.NewServer(http.NotFoundHandler())
				defer origin.Close()

				So(dec.Load(origin.URL+"/index.m3u8"), ShouldBeNil)

				Convey("Then an error should be reported", func() {
					select {
					case err := <-errs:
						So(err, ShouldNotBeNil)
					case <-time.After(5 * time.Second):
						So("no error event", ShouldBeEmpty)
					}
					dec.Destroy()
				})
			})

			Convey("And then destroyed", func() {
				dec.Destroy()

				Convey("Then the route should be gone", func() {
					So(relay.Routes(), ShouldEqual, 0)
				})

				Convey("Then it should not load again", func() {
					So(dec.Load("http://127.0.0.1:1/index.m3u8"), ShouldEqual, ErrDecoderClosed)
				})

				Convey("Then destroying again should be harmless", func() {
					So(dec.Destroy, ShouldNotPanic)
				})
			})
		})

		Convey("When it is destroyed while loading", func() {
			stall := make(chan struct{})
			origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-stall:
				case <-r.Context().Done():
				}
				http.NotFound(w, r)
			}))
			defer origin.Close()
			defer close(stall)

			So(dec.Attach(el), ShouldBeNil)
			So(dec.Load(origin.URL+"/index.m3u8"), ShouldBeNil)
			dec.Destroy()

			Convey("Then no event should follow", func() {
				select {
				case <-errs:
					So("error after destroy", ShouldBeEmpty)
				case <-parsed:
					So("manifest after destroy", ShouldBeEmpty)
				case <-time.After(200 * time.Millisecond):
				}
			})
		})
	})
}

func TestDecoderStream(t *testing.T) {
	Convey("Given a decoder with a worker on a playable stream", t, func() {
		relay := NewRelay("")
		Reset(func() {
			_ = relay.Close(context.Background())
		})

		origin := newOrigin(t)

		errs := make(chan error, 1)
		parsed := make(chan struct{}, 1)
		cfg := playback.DefaultDecoderConfig()
		cfg.EnableWorker = true

		dec, err := New(cfg, playback.DecoderEvents{
			OnManifestParsed: func() { parsed <- struct{}{} },
			OnError:          func(err error) { errs <- err },
		}, relay, nil)
		So(err, ShouldBeNil)

		el := &sourceRecorder{}
		So(dec.Attach(el), ShouldBeNil)
		So(dec.Load(origin.URL+"/index.m3u8"), ShouldBeNil)

		Convey("When the manifest has been read", func() {
			select {
			case <-parsed:
			case err := <-errs:
				So(err, ShouldBeNil)
			case <-time.After(10 * time.Second):
				So("no manifest event", ShouldBeEmpty)
			}

			client := &http.Client{Timeout: 10 * time.Second}

			Convey("Then the relay should serve a playlist", func() {
				res, err := client.Get(el.Source())
				So(err, ShouldBeNil)
				body, err := io.ReadAll(res.Body)
				_ = res.Body.Close()

				So(err, ShouldBeNil)
				So(res.StatusCode, ShouldEqual, http.StatusOK)
				So(string(body), ShouldStartWith, "#EXTM3U")
				dec.Destroy()
			})

			Convey("Then the playlist should be gone once destroyed", func() {
				dec.Destroy()

				res, err := client.Get(el.Source())
				So(err, ShouldBeNil)
				_ = res.Body.Close()
				So(res.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestWorker(t *testing.T) {
	Convey("Given a worker", t, func() {
		w := newWorker(4)

		Convey("When tasks are submitted", func() {
			done := make(chan int, 3)
			for i := range 3 {
				So(w.submit(func() { done <- i }), ShouldBeTrue)
			}

			Convey("Then they should run in order", func() {
				So(<-done, ShouldEqual, 0)
				So(<-done, ShouldEqual, 1)
				So(<-done, ShouldEqual, 2)
				w.stop()
			})
		})

		Convey("When it is stopped", func() {
			w.stop()

			Convey("Then submissions should be refused", func() {
				So(w.submit(func() {}), ShouldBeFalse)
			})
		})
	})
}
