// Package network provides the shared HTTP client used for stream fetches and update checks.
package network

import (
	"net/http"
	"time"

	"github.com/padhai-cli/padhai/constant"
)

// Client is shared across the application. It has no overall timeout because
// live playlists and segments are fetched for as long as a stream plays;
// callers bound requests with contexts instead.
var Client = &http.Client{
	Transport: &userAgent{next: newTransport()},
}

func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 32
	t.MaxIdleConnsPerHost = 8
	t.IdleConnTimeout = 30 * time.Second
	t.ResponseHeaderTimeout = 20 * time.Second
	return t
}

type userAgent struct {
	next http.RoundTripper
}

func (u *userAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", constant.UserAgent)
	}
	return u.next.RoundTrip(req)
}
