package playback

import (
	"errors"
	"sync"
	"testing"

	"github.com/padhai-cli/padhai/media"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeElement struct {
	mu      sync.Mutex
	calls   []string
	source  string
	title   string
	failSrc error
}

func (e *fakeElement) record(call string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, call)
}

func (e *fakeElement) SetTitle(title string) error {
	e.mu.Lock()
	e.title = title
	e.mu.Unlock()
	e.record("title")
	return nil
}

func (e *fakeElement) SetSource(src string) error {
	e.mu.Lock()
	e.source = src
	err := e.failSrc
	e.mu.Unlock()
	e.record("source")
	return err
}

func (e *fakeElement) Play() error               { e.record("play"); return nil }
func (e *fakeElement) Pause() error              { e.record("pause"); return nil }
func (e *fakeElement) SetMuted(muted bool) error { e.record("mute"); return nil }

func (e *fakeElement) Reset() error {
	e.mu.Lock()
	e.source = ""
	e.mu.Unlock()
	e.record("reset")
	return nil
}

func (e *fakeElement) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func (e *fakeElement) Source() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.source
}

type fakePlatform struct {
	mu           sync.Mutex
	native       bool
	fullscreen   bool
	requestErr   error
	requests     int
	exits        int
	listener     func(bool)
	subscribed   int
	unsubscribed bool
}

func (p *fakePlatform) SupportsNativeHLS() bool { return p.native }

func (p *fakePlatform) RequestFullscreen() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests++
	return p.requestErr
}

func (p *fakePlatform) ExitFullscreen() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exits++
	return nil
}

func (p *fakePlatform) IsFullscreen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fullscreen
}

func (p *fakePlatform) OnFullscreenChange(fn func(bool)) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = fn
	p.subscribed++
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.unsubscribed = true
		p.listener = nil
	}, nil
}

func (p *fakePlatform) subscriptions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subscribed
}

// emit simulates the platform changing fullscreen on its own.
func (p *fakePlatform) emit(fullscreen bool) {
	p.mu.Lock()
	p.fullscreen = fullscreen
	fn := p.listener
	p.mu.Unlock()
	if fn != nil {
		fn(fullscreen)
	}
}

type fakeRenderer struct {
	mu           sync.Mutex
	embeds       []string
	placeholders int
	err          error
}

func (r *fakeRenderer) Embed(ref media.Reference, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embeds = append(r.embeds, ref.EmbedURL)
	return r.err
}

func (r *fakeRenderer) Placeholder(string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placeholders++
	return nil
}

// fakeDecoders hands out decoders and tracks how many are attached at once.
type fakeDecoders struct {
	mu       sync.Mutex
	created  []*fakeDecoder
	attached int
	maxLive  int
	loadErr  error
	lastCfg  DecoderConfig
}

func (f *fakeDecoders) factory(cfg DecoderConfig, events DecoderEvents) (Decoder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := &fakeDecoder{owner: f, events: events}
	f.created = append(f.created, d)
	f.lastCfg = cfg
	return d, nil
}

func (f *fakeDecoders) get(i int) *fakeDecoder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created[i]
}

func (f *fakeDecoders) live() (attached, maxLive int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attached, f.maxLive
}

type fakeDecoder struct {
	owner     *fakeDecoders
	events    DecoderEvents
	url       string
	destroyed bool
}

func (d *fakeDecoder) Attach(el Element) error {
	d.owner.mu.Lock()
	d.owner.attached++
	if d.owner.attached > d.owner.maxLive {
		d.owner.maxLive = d.owner.attached
	}
	d.owner.mu.Unlock()
	return el.SetSource("http://127.0.0.1/relay/index.m3u8")
}

func (d *fakeDecoder) Load(url string) error {
	d.owner.mu.Lock()
	defer d.owner.mu.Unlock()
	d.url = url
	return d.owner.loadErr
}

func (d *fakeDecoder) Destroy() {
	d.owner.mu.Lock()
	defer d.owner.mu.Unlock()
	if !d.destroyed {
		d.destroyed = true
		d.owner.attached--
	}
}

type fixture struct {
	element  *fakeElement
	platform *fakePlatform
	renderer *fakeRenderer
	decoders *fakeDecoders
	session  *Session
}

func newFixture(autoplay bool) *fixture {
	f := &fixture{
		element:  &fakeElement{},
		platform: &fakePlatform{},
		renderer: &fakeRenderer{},
		decoders: &fakeDecoders{},
	}

	s, err := New(Options{
		Element:       f.element,
		Platform:      f.platform,
		Renderer:      f.renderer,
		NewDecoder:    f.decoders.factory,
		DecoderConfig: DefaultDecoderConfig(),
		Autoplay:      autoplay,
	})
	if err != nil {
		panic(err)
	}
	f.session = s
	return f
}

func (f *fixture) snapshot() Snapshot {
	snap, err := f.session.Snapshot()
	So(err, ShouldBeNil)
	return snap
}

const (
	streamA = "https://cdn.example.com/a/master.m3u8"
	streamB = "https://cdn.example.com/b/master.m3u8?token=abc"
)

func TestNew(t *testing.T) {
	Convey("New requires its collaborators", t, func() {
		_, err := New(Options{})
		So(err, ShouldNotBeNil)

		_, err = New(Options{Element: &fakeElement{}, Platform: &fakePlatform{}})
		So(err, ShouldNotBeNil)
	})

	Convey("A new session is idle", t, func() {
		f := newFixture(false)
		defer f.session.Unmount()
		So(f.snapshot().State, ShouldEqual, StateIdle)
		So(f.snapshot().State.String(), ShouldEqual, "Idle")
	})
}

func TestMountHLS(t *testing.T) {
	Convey("Given a session on a runtime without native HLS", t, func() {
		f := newFixture(true)
		defer f.session.Unmount()

		So(f.session.Mount(media.Classify(streamA), "Algebra"), ShouldBeNil)

		Convey("A decoder is created with the default config, attached and loading", func() {
			snap := f.snapshot()
			So(snap.State, ShouldEqual, StateMounted)
			So(snap.Decoding, ShouldBeTrue)
			So(snap.Ready, ShouldBeFalse)
			So(f.decoders.created, ShouldHaveLength, 1)
			So(f.decoders.get(0).url, ShouldEqual, streamA)
			So(f.decoders.lastCfg, ShouldResemble, DefaultDecoderConfig())
			So(f.element.Source(), ShouldEqual, "http://127.0.0.1/relay/index.m3u8")
		})

		Convey("Play is only issued after the manifest is parsed", func() {
			So(f.element.Calls(), ShouldNotContain, "play")

			f.decoders.get(0).events.OnManifestParsed()
			snap := f.snapshot()
			So(snap.Ready, ShouldBeTrue)
			So(snap.Playing, ShouldBeTrue)

			calls := f.element.Calls()
			So(calls[len(calls)-1], ShouldEqual, "play")
		})

		Convey("A decoder error becomes a retryable load error", func() {
			boom := errors.New("manifest 404")
			f.decoders.get(0).events.OnError(boom)

			snap := f.snapshot()
			So(snap.LoadErr, ShouldNotBeNil)
			So(errors.Is(snap.LoadErr, boom), ShouldBeTrue)
			So(snap.LoadErr.URL, ShouldEqual, streamA)
			So(snap.LoadErr.Error(), ShouldStartWith, "video load error")
			So(snap.Playing, ShouldBeFalse)

			Convey("Retry mounts the same reference with a fresh decoder", func() {
				So(f.session.Retry(), ShouldBeNil)

				snap := f.snapshot()
				So(snap.LoadErr, ShouldBeNil)
				So(snap.Ref.URL, ShouldEqual, streamA)
				So(f.decoders.created, ShouldHaveLength, 2)
				So(f.decoders.get(0).destroyed, ShouldBeTrue)
				So(f.decoders.get(1).url, ShouldEqual, streamA)
			})

			Convey("Mounting the same reference again starts over", func() {
				So(f.session.Mount(media.Classify(streamA), "Algebra"), ShouldBeNil)

				snap := f.snapshot()
				So(snap.LoadErr, ShouldBeNil)
				So(snap.Decoding, ShouldBeTrue)
				So(f.decoders.created, ShouldHaveLength, 2)
				So(f.decoders.get(0).destroyed, ShouldBeTrue)
				So(f.decoders.get(1).url, ShouldEqual, streamA)
			})
		})

		Convey("Unmount releases the decoder before returning", func() {
			So(f.session.Unmount(), ShouldBeNil)
			So(f.decoders.get(0).destroyed, ShouldBeTrue)

			attached, _ := f.decoders.live()
			So(attached, ShouldEqual, 0)
			So(f.platform.unsubscribed, ShouldBeTrue)
		})
	})

	Convey("Given a runtime with native HLS", t, func() {
		f := newFixture(true)
		f.platform.native = true
		defer f.session.Unmount()

		So(f.session.Mount(media.Classify(streamA), "Algebra"), ShouldBeNil)

		Convey("The element plays the manifest directly without a decoder", func() {
			snap := f.snapshot()
			So(snap.Decoding, ShouldBeFalse)
			So(snap.Ready, ShouldBeTrue)
			So(snap.Playing, ShouldBeTrue)
			So(f.decoders.created, ShouldBeEmpty)
			So(f.element.Source(), ShouldEqual, streamA)
		})
	})

	Convey("Given no decoder factory", t, func() {
		s, err := New(Options{Element: &fakeElement{}, Platform: &fakePlatform{}, Renderer: &fakeRenderer{}})
		So(err, ShouldBeNil)
		defer s.Unmount()

		So(s.Mount(media.Classify(streamA), ""), ShouldBeNil)
		snap, _ := s.Snapshot()
		So(errors.Is(snap.LoadErr, ErrNoDecoder), ShouldBeTrue)
	})

	Convey("Given a decoder that cannot load", t, func() {
		f := newFixture(false)
		f.decoders.loadErr = errors.New("bad url")
		defer f.session.Unmount()

		So(f.session.Mount(media.Classify(streamA), ""), ShouldBeNil)
		So(f.snapshot().LoadErr, ShouldNotBeNil)
	})
}

func TestRemount(t *testing.T) {
	Convey("Given a mounted HLS stream", t, func() {
		f := newFixture(false)
		defer f.session.Unmount()
		So(f.session.Mount(media.Classify(streamA), "A"), ShouldBeNil)
		first := f.snapshot().Epoch

		Convey("Switching URLs never leaves two decoders attached", func() {
			So(f.session.Mount(media.Classify(streamB), "B"), ShouldBeNil)
			So(f.session.Mount(media.Classify(streamA), "A"), ShouldBeNil)

			attached, maxLive := f.decoders.live()
			So(attached, ShouldEqual, 1)
			So(maxLive, ShouldEqual, 1)
			So(f.decoders.get(0).destroyed, ShouldBeTrue)
			So(f.decoders.get(1).destroyed, ShouldBeTrue)
			So(f.decoders.get(2).destroyed, ShouldBeFalse)
			So(f.snapshot().Epoch, ShouldBeGreaterThan, first)
		})

		Convey("Mount, unmount, mount on a new session keeps one decoder alive", func() {
			So(f.session.Unmount(), ShouldBeNil)

			s2, err := New(Options{
				Element:    f.element,
				Platform:   f.platform,
				Renderer:   f.renderer,
				NewDecoder: f.decoders.factory,
			})
			So(err, ShouldBeNil)
			defer s2.Unmount()

			So(s2.Mount(media.Classify(streamB), "B"), ShouldBeNil)
			attached, maxLive := f.decoders.live()
			So(attached, ShouldEqual, 1)
			So(maxLive, ShouldEqual, 1)
		})

		Convey("A stale decoder error is ignored after a remount", func() {
			old := f.decoders.get(0)
			So(f.session.Mount(media.Classify(streamB), "B"), ShouldBeNil)

			old.events.OnError(errors.New("late failure"))
			old.events.OnManifestParsed()

			snap := f.snapshot()
			So(snap.LoadErr, ShouldBeNil)
			So(snap.Ready, ShouldBeFalse)
			So(snap.Ref.URL, ShouldEqual, streamB)

			Convey("While the current decoder's error still applies", func() {
				f.decoders.get(1).events.OnError(errors.New("current failure"))
				So(f.snapshot().LoadErr, ShouldNotBeNil)
			})
		})

		Convey("A decoder event after unmount is dropped", func() {
			d := f.decoders.get(0)
			So(f.session.Unmount(), ShouldBeNil)

			So(func() { d.events.OnError(errors.New("late")) }, ShouldNotPanic)
			_, err := f.session.Snapshot()
			So(err, ShouldEqual, ErrSessionClosed)
		})

		Convey("Mounting the same URL only updates the title", func() {
			So(f.session.Mount(media.Classify(streamA), "A (revised)"), ShouldBeNil)

			snap := f.snapshot()
			So(snap.Epoch, ShouldEqual, first)
			So(snap.Title, ShouldEqual, "A (revised)")
			So(f.decoders.created, ShouldHaveLength, 1)
		})

		Convey("Switching to a direct file drops the decoder", func() {
			So(f.session.Mount(media.Classify("https://cdn.example.com/lesson1.mp4"), "L1"), ShouldBeNil)

			snap := f.snapshot()
			So(snap.Decoding, ShouldBeFalse)
			So(f.decoders.get(0).destroyed, ShouldBeTrue)
			So(f.element.Source(), ShouldEqual, "https://cdn.example.com/lesson1.mp4")
		})
	})
}

func TestMountOtherKinds(t *testing.T) {
	Convey("Given a session", t, func() {
		f := newFixture(false)
		defer f.session.Unmount()

		Convey("A direct file binds the element and can be controlled", func() {
			So(f.session.Mount(media.Classify("https://cdn.example.com/lesson1.mp4"), "Lesson 1"), ShouldBeNil)
			So(f.element.Source(), ShouldEqual, "https://cdn.example.com/lesson1.mp4")
			So(f.element.title, ShouldEqual, "Lesson 1")
			So(f.snapshot().Playing, ShouldBeFalse)

			So(f.session.TogglePlay(), ShouldBeNil)
			So(f.snapshot().Playing, ShouldBeTrue)
			So(f.session.TogglePlay(), ShouldBeNil)
			So(f.snapshot().Playing, ShouldBeFalse)

			So(f.session.ToggleMute(), ShouldBeNil)
			So(f.snapshot().Muted, ShouldBeTrue)
		})

		Convey("A failing element source is a load error", func() {
			f.element.failSrc = errors.New("unsupported codec")
			So(f.session.Mount(media.Classify("https://cdn.example.com/lesson1.mkv"), ""), ShouldBeNil)
			So(f.snapshot().LoadErr, ShouldNotBeNil)
			So(f.session.TogglePlay(), ShouldEqual, ErrNotReady)
		})

		Convey("YouTube is embedded and not controllable from here", func() {
			So(f.session.Mount(media.Classify("https://youtu.be/dQw4w9WgXcQ"), "Intro"), ShouldBeNil)
			So(f.renderer.embeds, ShouldHaveLength, 1)
			So(f.renderer.embeds[0], ShouldStartWith, "https://www.youtube.com/embed/dQw4w9WgXcQ")
			So(f.decoders.created, ShouldBeEmpty)
			So(f.session.TogglePlay(), ShouldEqual, ErrEmbedded)
		})

		Convey("An embed failure does not break the session", func() {
			f.renderer.err = errors.New("no browser")
			So(f.session.Mount(media.Classify("https://vimeo.com/76979871"), ""), ShouldBeNil)

			snap := f.snapshot()
			So(snap.State, ShouldEqual, StateMounted)
			So(snap.LoadErr, ShouldBeNil)
		})

		Convey("An empty URL shows the placeholder", func() {
			So(f.session.Mount(media.Classify(""), "Missing"), ShouldBeNil)
			So(f.renderer.placeholders, ShouldEqual, 1)
			So(f.renderer.embeds, ShouldBeEmpty)
			So(f.snapshot().Placeholder, ShouldBeTrue)
		})

		Convey("A non-web fallback URL is never embedded", func() {
			So(f.session.Mount(media.Classify("javascript:alert(1)"), ""), ShouldBeNil)
			So(f.renderer.embeds, ShouldBeEmpty)
			So(f.renderer.placeholders, ShouldEqual, 1)
		})

		Convey("Controls before mounting report nothing mounted", func() {
			So(f.session.TogglePlay(), ShouldEqual, ErrNotMounted)
			So(f.session.Retry(), ShouldEqual, ErrNotMounted)
		})
	})
}

func TestFullscreen(t *testing.T) {
	Convey("Given a mounted session", t, func() {
		f := newFixture(false)
		defer f.session.Unmount()
		So(f.session.Mount(media.Classify("https://cdn.example.com/lesson1.mp4"), ""), ShouldBeNil)

		Convey("Toggling requests fullscreen without setting the flag", func() {
			So(f.session.ToggleFullscreen(), ShouldBeNil)
			So(f.platform.requests, ShouldEqual, 1)
			So(f.snapshot().Fullscreen, ShouldBeFalse)

			Convey("The flag follows the platform notification", func() {
				f.platform.emit(true)
				So(f.snapshot().Fullscreen, ShouldBeTrue)

				Convey("Toggling again exits", func() {
					So(f.session.ToggleFullscreen(), ShouldBeNil)
					So(f.platform.exits, ShouldEqual, 1)
				})
			})
		})

		Convey("Leaving fullscreen outside the controller is mirrored", func() {
			f.platform.emit(true)
			f.platform.emit(false)
			So(f.snapshot().Fullscreen, ShouldBeFalse)
		})

		Convey("A denied request is swallowed and the flag stays false", func() {
			f.platform.requestErr = errors.New("denied")
			So(f.session.ToggleFullscreen(), ShouldBeNil)
			So(f.snapshot().Fullscreen, ShouldBeFalse)
			So(f.snapshot().State, ShouldEqual, StateMounted)
		})

		Convey("Unmount removes the subscription", func() {
			So(f.session.Unmount(), ShouldBeNil)
			So(f.platform.unsubscribed, ShouldBeTrue)
			So(func() { f.platform.emit(true) }, ShouldNotPanic)
		})
	})

	Convey("Given a session showing an embed", t, func() {
		f := newFixture(false)
		defer f.session.Unmount()
		So(f.session.Mount(media.Classify("https://youtu.be/dQw4w9WgXcQ"), "Intro"), ShouldBeNil)
		So(f.session.Mount(media.Classify(""), "Missing"), ShouldBeNil)

		Convey("Fullscreen is not watched yet", func() {
			So(f.platform.subscriptions(), ShouldEqual, 0)
		})

		Convey("The first native source subscribes once", func() {
			So(f.session.Mount(media.Classify("https://cdn.example.com/lesson1.mp4"), ""), ShouldBeNil)
			So(f.session.Mount(media.Classify(streamA), ""), ShouldBeNil)
			So(f.platform.subscriptions(), ShouldEqual, 1)

			f.platform.emit(true)
			So(f.snapshot().Fullscreen, ShouldBeTrue)
		})
	})
}

func TestUnmount(t *testing.T) {
	Convey("Given an unmounted session", t, func() {
		f := newFixture(false)
		So(f.session.Unmount(), ShouldBeNil)

		Convey("Unmount is idempotent", func() {
			So(f.session.Unmount(), ShouldBeNil)
		})

		Convey("It is terminal", func() {
			So(f.session.Mount(media.Classify(streamA), ""), ShouldEqual, ErrSessionClosed)
			So(f.session.ToggleFullscreen(), ShouldEqual, ErrSessionClosed)
			So(f.decoders.created, ShouldBeEmpty)
		})
	})
}

func TestSubscribeAndNavigate(t *testing.T) {
	Convey("Given a session with navigation callbacks", t, func() {
		var next, previous int
		var mu sync.Mutex
		var states []State

		s, err := New(Options{
			Element:    &fakeElement{},
			Platform:   &fakePlatform{},
			Renderer:   &fakeRenderer{},
			OnNext:     func() { next++ },
			OnPrevious: func() { previous++ },
		})
		So(err, ShouldBeNil)

		So(s.Subscribe(func(snap Snapshot) {
			mu.Lock()
			defer mu.Unlock()
			states = append(states, snap.State)
		}), ShouldBeNil)

		Convey("Subscribers see every transition", func() {
			So(s.Mount(media.Classify("https://cdn.example.com/lesson1.mp4"), ""), ShouldBeNil)
			So(s.Unmount(), ShouldBeNil)

			mu.Lock()
			defer mu.Unlock()
			So(states, ShouldResemble, []State{StateMounted, StateUnmounted})
		})

		Convey("Navigation callbacks run until the session closes", func() {
			So(s.HasNext(), ShouldBeTrue)
			So(s.HasPrevious(), ShouldBeTrue)
			So(s.Next(), ShouldBeTrue)
			So(s.Previous(), ShouldBeTrue)
			So(next, ShouldEqual, 1)
			So(previous, ShouldEqual, 1)

			So(s.Unmount(), ShouldBeNil)
			So(s.Next(), ShouldBeFalse)
			So(next, ShouldEqual, 1)
		})
	})
}
