// Package playback owns the lifecycle of one mounted lecture player.
//
// A Session binds a media.Reference to a render target: an embed page for
// provider and unknown links, the native media element for direct files and
// HLS the element can read itself, or the native element fed by a stream
// decoder otherwise. Collaborators are injected so the session can be driven
// by fakes in tests.
package playback

import (
	"errors"
	"fmt"
	"time"

	"github.com/padhai-cli/padhai/media"
)

var (
	ErrSessionClosed = errors.New("playback session closed")
	ErrNotMounted    = errors.New("nothing is mounted")
	ErrNotReady      = errors.New("media is not ready yet")
	ErrEmbedded      = errors.New("embedded videos are controlled in the browser")
	ErrNoDecoder     = errors.New("no stream decoder available")
)

// Element is the native media element.
type Element interface {
	SetTitle(title string) error
	SetSource(src string) error
	Play() error
	Pause() error
	SetMuted(muted bool) error

	// Reset unloads the current source.
	Reset() error
}

// Platform exposes the capabilities of the host runtime.
type Platform interface {
	// SupportsNativeHLS reports whether the element can play HLS manifests without a decoder.
	SupportsNativeHLS() bool

	RequestFullscreen() error
	ExitFullscreen() error
	IsFullscreen() bool

	// OnFullscreenChange registers fn for fullscreen changes made by anyone,
	// including the user leaving fullscreen from the player window.
	OnFullscreenChange(fn func(fullscreen bool)) (unsubscribe func(), err error)
}

// Renderer shows pages the session cannot play itself.
type Renderer interface {
	Embed(ref media.Reference, title string) error
	Placeholder(title string) error
}

// DecoderConfig tunes a stream decoder.
type DecoderConfig struct {
	// BackBuffer is how much already played media is retained for seeking back.
	BackBuffer time.Duration

	// EnableWorker moves demuxing off the fetch goroutine.
	EnableWorker bool

	// LowLatency selects low-latency buffering.
	LowLatency bool
}

// DefaultDecoderConfig retains 90 seconds with worker offload and low latency enabled.
func DefaultDecoderConfig() DecoderConfig {
	return DecoderConfig{
		BackBuffer:   90 * time.Second,
		EnableWorker: true,
		LowLatency:   true,
	}
}

// DecoderEvents are the asynchronous notifications a decoder emits.
// Both may be called from any goroutine.
type DecoderEvents struct {
	OnManifestParsed func()
	OnError          func(err error)
}

// Decoder fetches and demuxes a stream and feeds it to an Element.
type Decoder interface {
	// Attach binds the decoder output to el. It completes before Load is called.
	Attach(el Element) error

	// Load starts fetching url. Progress is reported through DecoderEvents.
	Load(url string) error

	// Destroy stops all network activity and frees buffers before returning.
	// No event is emitted after Destroy returns.
	Destroy()
}

// DecoderFactory creates a decoder that reports to events.
type DecoderFactory func(cfg DecoderConfig, events DecoderEvents) (Decoder, error)

// LoadError is the retryable failure shown in place of the video.
type LoadError struct {
	URL string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("video load error: %v", e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	State State
	Epoch uint64
	Ref   media.Reference
	Title string

	Playing    bool
	Muted      bool
	Fullscreen bool

	// Ready is set once the source can accept play commands.
	Ready bool

	// Decoding is set while a stream decoder is attached.
	Decoding bool

	// Placeholder is set when no video could be shown.
	Placeholder bool

	LoadErr *LoadError
}
