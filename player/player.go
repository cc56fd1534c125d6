// Package player drives the external media players that stand in for the
// native video element.
//
// The primary backend is mpv over its JSON-IPC socket. IINA is supported on
// macOS with a reduced control surface. Embedded provider pages are handed to
// the browser instead.
package player

import (
	"errors"
	"fmt"

	"github.com/padhai-cli/padhai/key"
	"github.com/padhai-cli/padhai/playback"
	"github.com/spf13/viper"
)

const (
	MPVName  = "mpv"
	IINAName = "iina"
)

// ErrUnsupported is returned for controls the backend does not expose.
var ErrUnsupported = errors.New("not supported by this player")

// Player is a native element together with the platform it runs on.
type Player interface {
	playback.Element
	playback.Platform

	// StartProgress calls fn about once a second with the playback position
	// and duration in seconds until StopProgress is called or the player exits.
	StartProgress(fn func(pos, duration float64))
	StopProgress()

	// Seek moves to an absolute position in seconds.
	Seek(seconds float64) error

	// Wait is closed when the player process exits.
	Wait() <-chan struct{}

	Close() error
}

// Names lists the accepted values of player.default.
func Names() []string {
	return []string{MPVName, IINAName}
}

// New returns the player named by name, or the configured default when name is empty.
func New(name string) (Player, error) {
	if name == "" {
		name = viper.GetString(key.Player)
	}

	switch name {
	case MPVName:
		return NewMPV(), nil
	case IINAName:
		return NewIINA(), nil
	default:
		return nil, fmt.Errorf("unknown player %q", name)
	}
}
