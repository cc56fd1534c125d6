package media

import (
	"fmt"
	"strings"
)

// Kind is the rendering strategy a media URL resolves to.
type Kind string

const (
	KindYouTube    Kind = "youtube"
	KindVimeo      Kind = "vimeo"
	KindHLS        Kind = "hls"
	KindDirectFile Kind = "direct"
	KindFallback   Kind = "custom"
)

// Kinds lists every kind in classification order.
func Kinds() []Kind {
	return []Kind{KindYouTube, KindVimeo, KindHLS, KindDirectFile, KindFallback}
}

// Label is the human readable name shown in the player badge.
func (k Kind) Label() string {
	switch k {
	case KindYouTube:
		return "YouTube Video"
	case KindVimeo:
		return "Vimeo Video"
	case KindHLS:
		return "HLS Live Stream"
	case KindDirectFile:
		return "Direct Video"
	case KindFallback:
		return "External Video Link"
	default:
		return "Unknown"
	}
}

// Iframe reports whether the kind is rendered through an embed page
// rather than a native media element.
func (k Kind) Iframe() bool {
	switch k {
	case KindYouTube, KindVimeo, KindFallback:
		return true
	default:
		return false
	}
}

// ParseKind parses a kind name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown media kind %q", s)
}
