// Package media classifies lecture video URLs into playback strategies.
//
// Classification is pure: it never touches the network and the same URL
// always yields the same Reference.
package media

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultOrigin is the hosting origin passed to YouTube when none is configured.
const DefaultOrigin = "http://localhost"

const youtubeIDLength = 11

var (
	youtubePattern = regexp.MustCompile(`^.*(youtu.be\/|v\/|u\/\w\/|embed\/|watch\?v=|&v=)([^#&?]*).*`)
	vimeoPattern   = regexp.MustCompile(`(?i)(?:vimeo)\.com.*(?:videos|video|channels|)\/([\d]+)`)
	hlsPattern     = regexp.MustCompile(`(?i)\.m3u8$`)
	directPattern  = regexp.MustCompile(`(?i)\.(mp4|webm|ogg|mov|avi|wmv|flv|mkv)$`)
)

// Reference is an immutable description of a playable source.
type Reference struct {
	URL        string `json:"url" jsonschema:"description=URL as entered in the catalog"`
	Kind       Kind   `json:"kind" jsonschema:"enum=youtube,enum=vimeo,enum=hls,enum=direct,enum=custom"`
	EmbedURL   string `json:"embed_url,omitempty" jsonschema:"description=Page to embed for youtube/vimeo/custom kinds"`
	ProviderID string `json:"provider_id,omitempty" jsonschema:"description=Video id on YouTube or Vimeo"`
	Empty      bool   `json:"empty,omitempty" jsonschema:"description=Set when there is no video to show"`
}

// Embeddable reports whether the embed URL may be handed to a browser.
// Only absolute http(s) URLs qualify; anything else renders the placeholder.
func (r Reference) Embeddable() bool {
	if !r.Kind.Iframe() || r.Empty || r.EmbedURL == "" || strings.HasPrefix(r.EmbedURL, "-") {
		return false
	}

	u, err := url.Parse(r.EmbedURL)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Resolver classifies URLs on behalf of a hosting origin.
type Resolver struct {
	origin string
}

// NewResolver returns a resolver whose YouTube embeds carry origin.
func NewResolver(origin string) *Resolver {
	if origin == "" {
		origin = DefaultOrigin
	}
	return &Resolver{origin: origin}
}

var defaultResolver = NewResolver(DefaultOrigin)

// Classify resolves rawURL with the default origin.
func Classify(rawURL string) Reference {
	return defaultResolver.Classify(rawURL)
}

// Classify maps rawURL to exactly one kind. Rules are tried in order and the
// first match wins: YouTube, Vimeo, HLS, direct file, then the fallback.
func (r *Resolver) Classify(rawURL string) Reference {
	ref := Reference{URL: rawURL}

	if id, ok := youtubeID(rawURL); ok {
		ref.Kind = KindYouTube
		ref.ProviderID = id
		ref.EmbedURL = "https://www.youtube.com/embed/" + id + "?enablejsapi=1&origin=" + url.QueryEscape(r.origin)
		return ref
	}

	if m := vimeoPattern.FindStringSubmatch(rawURL); m != nil {
		ref.Kind = KindVimeo
		ref.ProviderID = m[1]
		ref.EmbedURL = "https://player.vimeo.com/video/" + m[1]
		return ref
	}

	path := urlPath(rawURL)

	if hlsPattern.MatchString(path) {
		ref.Kind = KindHLS
		return ref
	}

	if directPattern.MatchString(path) {
		ref.Kind = KindDirectFile
		return ref
	}

	ref.Kind = KindFallback
	if strings.TrimSpace(rawURL) == "" {
		ref.Empty = true
	} else {
		ref.EmbedURL = rawURL
	}
	return ref
}

// youtubeID extracts the video id. A captured id that is not exactly
// eleven characters long is not a YouTube match.
func youtubeID(rawURL string) (string, bool) {
	m := youtubePattern.FindStringSubmatch(rawURL)
	if m == nil || utf8.RuneCountInString(m[2]) != youtubeIDLength {
		return "", false
	}
	return m[2], true
}

// urlPath is the path of rawURL without query or fragment. Text that does
// not parse is cut at the first '?' or '#'.
func urlPath(rawURL string) string {
	if u, err := url.Parse(strings.TrimSpace(rawURL)); err == nil {
		return u.Path
	}

	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
