package playback

import (
	"errors"

	"github.com/padhai-cli/padhai/log"
	"github.com/padhai-cli/padhai/media"
)

// Options wires a Session to its collaborators.
type Options struct {
	Element  Element
	Platform Platform
	Renderer Renderer

	// NewDecoder is used for HLS when the platform cannot play it natively.
	NewDecoder    DecoderFactory
	DecoderConfig DecoderConfig

	// Autoplay issues Play as soon as the source is ready.
	Autoplay bool

	// OnNext and OnPrevious let the host chain lectures. Either may be nil.
	OnNext     func()
	OnPrevious func()
}

// Session is the controller for one mounted player.
//
// All state is owned by a single goroutine. Public methods run on it and
// wait for completion; decoder and fullscreen callbacks are queued to it.
// Methods must not be called from a Subscribe callback.
type Session struct {
	opts Options
	loop *loop
	log  log.Entry

	state State
	epoch uint64
	ref   media.Reference
	title string

	decoder     Decoder
	bound       bool
	ready       bool
	placeholder bool
	loadErr     *LoadError

	playing    bool
	muted      bool
	fullscreen bool

	subscribed  bool
	unsubscribe func()
	subscribers []func(Snapshot)
}

// New creates an idle session.
func New(opts Options) (*Session, error) {
	switch {
	case opts.Element == nil:
		return nil, errors.New("playback: element is required")
	case opts.Platform == nil:
		return nil, errors.New("playback: platform is required")
	case opts.Renderer == nil:
		return nil, errors.New("playback: renderer is required")
	}

	return &Session{
		opts: opts,
		loop: newLoop(),
		log:  log.For("playback"),
	}, nil
}

// Subscribe registers fn to receive a snapshot after every state change.
// fn runs on the session goroutine.
func (s *Session) Subscribe(fn func(Snapshot)) error {
	return s.loop.call(func() {
		s.subscribers = append(s.subscribers, fn)
	})
}

// Snapshot returns the current state.
func (s *Session) Snapshot() (snap Snapshot, err error) {
	err = s.loop.call(func() {
		snap = s.snapshot()
	})
	return
}

// Mount binds ref to its render target. Mounting a different URL while
// mounted tears the previous target down completely first. Mounting the
// URL that is already mounted only updates the title, unless that mount
// failed, in which case it is torn down and mounted again.
func (s *Session) Mount(ref media.Reference, title string) error {
	var err error
	callErr := s.loop.call(func() {
		switch s.state {
		case StateUnmounted:
			err = ErrSessionClosed
			return
		case StateMounted:
			if ref.URL == s.ref.URL && s.loadErr == nil {
				s.retitle(title)
				s.notify()
				return
			}
			s.teardown()
		}

		s.state = StateMounted
		s.mount(ref, title)
		s.notify()
	})
	if callErr != nil {
		return callErr
	}
	return err
}

// Retry tears down and mounts the current reference again.
func (s *Session) Retry() error {
	var err error
	callErr := s.loop.call(func() {
		if s.state != StateMounted {
			err = ErrNotMounted
			return
		}
		s.teardown()
		s.mount(s.ref, s.title)
		s.notify()
	})
	if callErr != nil {
		return callErr
	}
	return err
}

// Unmount releases everything the session holds. It is terminal and idempotent.
func (s *Session) Unmount() error {
	err := s.loop.call(func() {
		s.teardown()
		if s.unsubscribe != nil {
			s.unsubscribe()
			s.unsubscribe = nil
		}
		s.epoch++
		s.state = StateUnmounted
		s.notify()
		s.subscribers = nil
		s.loop.shutdown()
	})
	if errors.Is(err, ErrSessionClosed) {
		return nil
	}
	return err
}

// TogglePlay pauses or resumes the native element.
func (s *Session) TogglePlay() error {
	return s.control(func() error {
		if s.playing {
			if err := s.opts.Element.Pause(); err != nil {
				return err
			}
			s.playing = false
			return nil
		}
		return s.play()
	})
}

// ToggleMute flips the mute state of the native element.
func (s *Session) ToggleMute() error {
	return s.control(func() error {
		if err := s.opts.Element.SetMuted(!s.muted); err != nil {
			return err
		}
		s.muted = !s.muted
		return nil
	})
}

// ToggleFullscreen asks the platform to enter or leave fullscreen.
// Failures are logged and leave the fullscreen flag untouched; the flag only
// follows platform notifications.
func (s *Session) ToggleFullscreen() error {
	return s.loop.call(func() {
		if s.state != StateMounted {
			return
		}

		var err error
		if s.opts.Platform.IsFullscreen() {
			err = s.opts.Platform.ExitFullscreen()
		} else {
			err = s.opts.Platform.RequestFullscreen()
		}

		if err != nil {
			s.log.WithError(err).Warn("fullscreen request failed")
		}
	})
}

// Next invokes the host's next callback, reporting whether there was one.
func (s *Session) Next() bool {
	return s.navigate(s.opts.OnNext)
}

// Previous invokes the host's previous callback, reporting whether there was one.
func (s *Session) Previous() bool {
	return s.navigate(s.opts.OnPrevious)
}

// HasNext reports whether a next callback is wired.
func (s *Session) HasNext() bool {
	return s.opts.OnNext != nil
}

// HasPrevious reports whether a previous callback is wired.
func (s *Session) HasPrevious() bool {
	return s.opts.OnPrevious != nil
}

// navigate runs fn on the caller's goroutine so it may call Mount.
func (s *Session) navigate(fn func()) bool {
	if fn == nil {
		return false
	}
	if _, err := s.Snapshot(); err != nil {
		return false
	}
	fn()
	return true
}

// control runs fn against the native element of a ready, non-embedded source.
func (s *Session) control(fn func() error) error {
	var err error
	callErr := s.loop.call(func() {
		switch {
		case s.state != StateMounted:
			err = ErrNotMounted
		case s.ref.Kind.Iframe():
			err = ErrEmbedded
		case !s.bound:
			err = ErrNotReady
		default:
			err = fn()
		}
		s.notify()
	})
	if callErr != nil {
		return callErr
	}
	return err
}

func (s *Session) mount(ref media.Reference, title string) {
	s.epoch++
	s.ref = ref
	s.title = title

	l := s.log.With("epoch", s.epoch).With("kind", ref.Kind)
	l.Infof("mounting %q", ref.URL)

	switch ref.Kind {
	case media.KindHLS:
		s.subscribeFullscreen()
		if s.opts.Platform.SupportsNativeHLS() {
			s.bindSource(ref.URL)
			return
		}
		s.attachDecoder(ref.URL)
	case media.KindDirectFile:
		s.subscribeFullscreen()
		s.bindSource(ref.URL)
	default:
		s.render(ref, title)
	}
}

func (s *Session) render(ref media.Reference, title string) {
	if ref.Embeddable() {
		if err := s.opts.Renderer.Embed(ref, title); err != nil {
			// Embed pages give no load signal; a failed launch is only logged.
			s.log.WithError(err).Warn("embed failed")
		}
		return
	}

	if !ref.Empty {
		s.log.Warnf("refusing to embed %q", ref.URL)
	}

	s.placeholder = true
	if err := s.opts.Renderer.Placeholder(title); err != nil {
		s.log.WithError(err).Warn("placeholder failed")
	}
}

func (s *Session) bindSource(src string) {
	s.retitle(s.title)
	s.bound = true

	if err := s.opts.Element.SetSource(src); err != nil {
		s.fail(err)
		return
	}

	s.ready = true
	s.autoplay()
}

func (s *Session) attachDecoder(src string) {
	if s.opts.NewDecoder == nil {
		s.fail(ErrNoDecoder)
		return
	}

	epoch := s.epoch
	events := DecoderEvents{
		OnManifestParsed: func() {
			s.loop.post(func() { s.manifestParsed(epoch) })
		},
		OnError: func(err error) {
			s.loop.post(func() { s.decoderFailed(epoch, err) })
		},
	}

	decoder, err := s.opts.NewDecoder(s.opts.DecoderConfig, events)
	if err != nil {
		s.fail(err)
		return
	}
	s.decoder = decoder

	s.retitle(s.title)
	s.bound = true

	if err = decoder.Attach(s.opts.Element); err != nil {
		s.fail(err)
		return
	}

	if err = decoder.Load(src); err != nil {
		s.fail(err)
	}
}

func (s *Session) manifestParsed(epoch uint64) {
	if s.stale(epoch) {
		s.log.With("epoch", epoch).Debug("dropping stale manifest event")
		return
	}

	s.ready = true
	s.autoplay()
	s.notify()
}

func (s *Session) decoderFailed(epoch uint64, err error) {
	if s.stale(epoch) {
		s.log.With("epoch", epoch).WithError(err).Debug("dropping stale decoder error")
		return
	}

	s.fail(err)
	s.notify()
}

func (s *Session) stale(epoch uint64) bool {
	return s.state != StateMounted || epoch != s.epoch
}

func (s *Session) fail(err error) {
	s.log.WithError(err).Errorf("failed to load %q", s.ref.URL)
	s.loadErr = &LoadError{URL: s.ref.URL, Err: err}
	s.ready = false
	s.playing = false
}

func (s *Session) autoplay() {
	if !s.opts.Autoplay {
		return
	}
	if err := s.play(); err != nil {
		s.log.WithError(err).Warn("autoplay failed")
	}
}

func (s *Session) play() error {
	if !s.ready {
		return ErrNotReady
	}
	if err := s.opts.Element.Play(); err != nil {
		return err
	}
	s.playing = true
	return nil
}

func (s *Session) retitle(title string) {
	s.title = title
	if !s.ref.Kind.Iframe() {
		if err := s.opts.Element.SetTitle(title); err != nil {
			s.log.WithError(err).Debug("set title failed")
		}
	}
}

// teardown releases the decoder and unloads the element. No event from the
// released decoder is applied afterwards because the next mount bumps the epoch.
func (s *Session) teardown() {
	if s.decoder != nil {
		s.decoder.Destroy()
		s.decoder = nil
	}

	if s.bound {
		if err := s.opts.Element.Reset(); err != nil {
			s.log.WithError(err).Warn("element reset failed")
		}
	}

	s.bound = false
	s.ready = false
	s.playing = false
	s.placeholder = false
	s.loadErr = nil
}

// subscribeFullscreen runs once, on the first mount that uses the native
// element, so embeds and placeholders never start the player window.
func (s *Session) subscribeFullscreen() {
	if s.subscribed {
		return
	}
	s.subscribed = true

	unsubscribe, err := s.opts.Platform.OnFullscreenChange(func(fullscreen bool) {
		s.loop.post(func() {
			if s.state != StateMounted || s.fullscreen == fullscreen {
				return
			}
			s.fullscreen = fullscreen
			s.notify()
		})
	})
	if err != nil {
		s.log.WithError(err).Warn("fullscreen notifications unavailable")
		return
	}
	s.unsubscribe = unsubscribe
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		State:       s.state,
		Epoch:       s.epoch,
		Ref:         s.ref,
		Title:       s.title,
		Playing:     s.playing,
		Muted:       s.muted,
		Fullscreen:  s.fullscreen,
		Ready:       s.ready,
		Decoding:    s.decoder != nil,
		Placeholder: s.placeholder,
		LoadErr:     s.loadErr,
	}
}

func (s *Session) notify() {
	if len(s.subscribers) == 0 {
		return
	}
	snap := s.snapshot()
	for _, fn := range s.subscribers {
		fn(snap)
	}
}
