// Package hls is the stream decoder used when the player cannot read HLS
// manifests itself.
//
// A Decoder pulls the remote stream with a gohlslib client, remuxes every
// supported track into a gohlslib muxer, and serves the result to the player
// through a loopback Relay.
package hls

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	gohlslib "github.com/bluenviron/gohlslib/v2"
	"github.com/bluenviron/gohlslib/v2/pkg/codecs"
	"github.com/padhai-cli/padhai/log"
	"github.com/padhai-cli/padhai/playback"
)

var (
	ErrDecoderClosed = errors.New("decoder closed")
	ErrNotAttached   = errors.New("decoder is not attached")
	ErrNoTracks      = errors.New("stream has no supported tracks")
)

const (
	segmentMinDuration = time.Second
	minSegmentCount    = 7
	workerQueueSize    = 512
)

// segmentCount is the number of segments kept so that at least backBuffer of
// played media stays available to seek back into.
func segmentCount(backBuffer time.Duration) int {
	n := int(math.Ceil(float64(backBuffer) / float64(segmentMinDuration)))
	if n < minSegmentCount {
		return minSegmentCount
	}
	return n
}

func variant(lowLatency bool) gohlslib.MuxerVariant {
	if lowLatency {
		return gohlslib.MuxerVariantLowLatency
	}
	return gohlslib.MuxerVariantFMP4
}

// Decoder implements playback.Decoder.
type Decoder struct {
	cfg    playback.DecoderConfig
	events playback.DecoderEvents
	relay  *Relay
	http   *http.Client
	log    log.Entry

	mu      sync.Mutex
	closed  bool
	id      string
	client  *gohlslib.Client
	muxer   *gohlslib.Muxer
	worker  *worker
	written uint64

	ready chan struct{}
	done  chan struct{}
}

// NewFactory returns a playback.DecoderFactory producing decoders served by relay.
func NewFactory(relay *Relay, httpClient *http.Client) playback.DecoderFactory {
	return func(cfg playback.DecoderConfig, events playback.DecoderEvents) (playback.Decoder, error) {
		return New(cfg, events, relay, httpClient)
	}
}

// New creates an unattached decoder.
func New(cfg playback.DecoderConfig, events playback.DecoderEvents, relay *Relay, httpClient *http.Client) (*Decoder, error) {
	if relay == nil {
		return nil, errors.New("hls: relay is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Decoder{
		cfg:    cfg,
		events: events,
		relay:  relay,
		http:   httpClient,
		log:    log.For("hls"),
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// Attach registers the decoder output on the relay and points el at it.
// The relay holds requests until the first tracks are muxed.
func (d *Decoder) Attach(el playback.Element) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDecoderClosed
	}

	id, err := d.relay.Register(http.HandlerFunc(d.serve))
	if err != nil {
		d.mu.Unlock()
		return err
	}
	d.id = id
	d.log = d.log.With("route", id)
	d.mu.Unlock()

	return el.SetSource(d.relay.URL(id))
}

// Load starts pulling url.
func (d *Decoder) Load(url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case d.closed:
		return ErrDecoderClosed
	case d.id == "":
		return ErrNotAttached
	case d.client != nil:
		return errors.New("hls: already loading")
	}

	if d.cfg.EnableWorker {
		d.worker = newWorker(workerQueueSize)
	}

	client := &gohlslib.Client{
		URI:        url,
		HTTPClient: d.http,
		OnTracks:   d.onTracks,
	}
	if err := client.Start(); err != nil {
		return fmt.Errorf("starting HLS client: %w", err)
	}
	d.client = client

	d.log.Infof("loading %q", url)
	go d.watch(client)

	return nil
}

// Destroy stops fetching, frees the muxer and removes the relay route.
// Events are never emitted after it returns.
func (d *Decoder) Destroy() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.done)
	id, client, w := d.id, d.client, d.worker
	d.mu.Unlock()

	if id != "" {
		d.relay.Unregister(id)
	}
	if client != nil {
		client.Close()
	}
	if w != nil {
		w.stop()
	}

	d.mu.Lock()
	muxer := d.muxer
	d.muxer = nil
	written := d.written
	d.mu.Unlock()

	if muxer != nil {
		muxer.Close()
	}

	d.log.Infof("destroyed after %d writes", written)
}

// emit delivers an event unless the decoder has been destroyed.
func (d *Decoder) emit(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || fn == nil {
		return
	}
	fn()
}

func (d *Decoder) watch(client *gohlslib.Client) {
	err := client.Wait2()
	if err == nil || errors.Is(err, gohlslib.ErrClientEOS) || errors.Is(err, context.Canceled) {
		return
	}

	d.emit(func() {
		if d.events.OnError != nil {
			d.events.OnError(err)
		}
	})
}

// onTracks builds the muxer once the client has read the manifest and
// discovered the tracks, then reports the manifest as parsed.
func (d *Decoder) onTracks(tracks []*gohlslib.Track) error {
	muxer := &gohlslib.Muxer{
		Variant:            variant(d.cfg.LowLatency),
		SegmentCount:       segmentCount(d.cfg.BackBuffer),
		SegmentMinDuration: segmentMinDuration,
	}

	d.mu.Lock()
	client := d.client
	d.mu.Unlock()

	for _, track := range tracks {
		out := &gohlslib.Track{Codec: track.Codec}

		switch track.Codec.(type) {
		case *codecs.H264:
			client.OnDataH26x(track, func(pts int64, _ int64, au [][]byte) {
				ntp := time.Now()
				d.dispatch(func() error { return muxer.WriteH264(out, ntp, pts, au) })
			})
		case *codecs.H265:
			client.OnDataH26x(track, func(pts int64, _ int64, au [][]byte) {
				ntp := time.Now()
				d.dispatch(func() error { return muxer.WriteH265(out, ntp, pts, au) })
			})
		case *codecs.MPEG4Audio:
			client.OnDataMPEG4Audio(track, func(pts int64, aus [][]byte) {
				ntp := time.Now()
				d.dispatch(func() error { return muxer.WriteMPEG4Audio(out, ntp, pts, aus) })
			})
		case *codecs.Opus:
			client.OnDataOpus(track, func(pts int64, packets [][]byte) {
				ntp := time.Now()
				d.dispatch(func() error { return muxer.WriteOpus(out, ntp, pts, packets) })
			})
		default:
			d.log.Warnf("skipping unsupported codec %T", track.Codec)
			continue
		}

		muxer.Tracks = append(muxer.Tracks, out)
	}

	if len(muxer.Tracks) == 0 {
		return ErrNoTracks
	}

	if err := muxer.Start(); err != nil {
		return fmt.Errorf("starting HLS muxer: %w", err)
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		muxer.Close()
		return ErrDecoderClosed
	}
	d.muxer = muxer
	close(d.ready)
	d.mu.Unlock()

	d.log.Infof("muxing %d tracks", len(muxer.Tracks))

	d.emit(func() {
		if d.events.OnManifestParsed != nil {
			d.events.OnManifestParsed()
		}
	})
	return nil
}

// dispatch runs a muxer write inline or on the worker.
func (d *Decoder) dispatch(write func() error) {
	run := func() {
		if err := write(); err != nil {
			d.log.WithError(err).Debug("muxer write failed")
			return
		}
		d.mu.Lock()
		d.written++
		d.mu.Unlock()
	}

	d.mu.Lock()
	w := d.worker
	d.mu.Unlock()

	if w == nil {
		run()
		return
	}
	w.submit(run)
}

// serve hands relay requests to the muxer once it exists.
func (d *Decoder) serve(w http.ResponseWriter, r *http.Request) {
	select {
	case <-d.ready:
	case <-d.done:
		http.Error(w, ErrDecoderClosed.Error(), http.StatusServiceUnavailable)
		return
	case <-r.Context().Done():
		return
	}

	d.mu.Lock()
	muxer := d.muxer
	d.mu.Unlock()

	if muxer == nil {
		http.Error(w, ErrDecoderClosed.Error(), http.StatusServiceUnavailable)
		return
	}
	muxer.Handle(w, r)
}
