// Package stage assembles playback sessions from the configured player,
// the browser used for embeds and the local stream relay.
package stage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/padhai-cli/padhai/hls"
	"github.com/padhai-cli/padhai/key"
	"github.com/padhai-cli/padhai/log"
	"github.com/padhai-cli/padhai/media"
	"github.com/padhai-cli/padhai/network"
	"github.com/padhai-cli/padhai/playback"
	"github.com/padhai-cli/padhai/player"
	"github.com/spf13/viper"
)

const (
	closeTimeout  = 3 * time.Second
	resumeRetries = 10
	resumeDelay   = 500 * time.Millisecond
)

// Stage owns the long-lived playback collaborators. Sessions come and go,
// the player process and the relay stay until Close.
type Stage struct {
	Player  player.Player
	Browser *player.Browser
	Relay   *hls.Relay

	resolver *media.Resolver
	log      log.Entry
}

// New builds a stage from the current configuration.
// Browser notices are written to out, which may be nil.
func New(out io.Writer) (*Stage, error) {
	p, err := player.New("")
	if err != nil {
		return nil, err
	}

	return &Stage{
		Player:   p,
		Browser:  player.NewBrowser(viper.GetString(key.PlayerBrowser), out),
		Relay:    hls.NewRelay(viper.GetString(key.DecoderListen)),
		resolver: media.NewResolver(viper.GetString(key.PlayerOrigin)),
		log:      log.For("stage"),
	}, nil
}

// DecoderConfig reads the decoder tuning from the configuration.
func DecoderConfig() playback.DecoderConfig {
	return playback.DecoderConfig{
		BackBuffer:   viper.GetDuration(key.DecoderBackBuffer),
		EnableWorker: viper.GetBool(key.DecoderWorker),
		LowLatency:   viper.GetBool(key.DecoderLowLatency),
	}
}

// Resolve classifies a lecture URL with the configured embed origin.
func (s *Stage) Resolve(url string) media.Reference {
	return s.resolver.Classify(url)
}

// Session creates an idle session bound to the stage. Either navigation
// callback may be nil.
func (s *Stage) Session(onNext, onPrevious func()) (*playback.Session, error) {
	return playback.New(playback.Options{
		Element:       s.Player,
		Platform:      s.Player,
		Renderer:      s.Browser,
		NewDecoder:    hls.NewFactory(s.Relay, network.Client),
		DecoderConfig: DecoderConfig(),
		Autoplay:      viper.GetBool(key.PlayerAutoplay),
		OnNext:        onNext,
		OnPrevious:    onPrevious,
	})
}

// Resume seeks the player to pos, retrying while it is still opening the file.
func (s *Stage) Resume(ctx context.Context, pos float64) error {
	var err error
	for range resumeRetries {
		err = s.Player.Seek(pos)
		if err == nil || errors.Is(err, player.ErrUnsupported) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(resumeDelay):
		}
	}

	return err
}

// Close stops the player and the relay.
func (s *Stage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	s.log.Info("closing")
	return errors.Join(s.Player.Close(), s.Relay.Close(ctx))
}

// Snapshots subscribes to session and returns a channel holding only the
// most recent snapshot. The channel is closed after the session unmounts.
func Snapshots(session *playback.Session) (<-chan playback.Snapshot, error) {
	ch := make(chan playback.Snapshot, 1)

	err := session.Subscribe(func(snap playback.Snapshot) {
		// the session goroutine is the only sender
		select {
		case <-ch:
		default:
		}
		ch <- snap

		if snap.State == playback.StateUnmounted {
			close(ch)
		}
	})
	if err != nil {
		return nil, err
	}

	return ch, nil
}
