package player

import (
	"fmt"
	"io"

	"github.com/padhai-cli/padhai/icon"
	"github.com/padhai-cli/padhai/log"
	"github.com/padhai-cli/padhai/media"
	"github.com/padhai-cli/padhai/open"
	"github.com/padhai-cli/padhai/style"
)

// Browser renders embed pages by opening them in a web browser.
type Browser struct {
	// App is the browser to use; empty means the system default.
	App string

	// Out receives the placeholder notice. Nil discards it.
	Out io.Writer

	// start is swapped in tests.
	start func(target, app string) error
}

func NewBrowser(app string, out io.Writer) *Browser {
	return &Browser{App: app, Out: out, start: open.StartWith}
}

// Embed opens the provider's embed page.
func (b *Browser) Embed(ref media.Reference, title string) error {
	log.For("browser").Infof("opening %s embed for %q", ref.Kind, title)
	if err := b.start(ref.EmbedURL, b.App); err != nil {
		return fmt.Errorf("open embed page: %w", err)
	}
	b.print("%s Opened %s in the browser\n", icon.Get(icon.Link), style.Bold(title))
	return nil
}

// Placeholder reports that there is nothing to show.
func (b *Browser) Placeholder(title string) error {
	b.print("%s %s\n", icon.Get(icon.Video), style.Faint(fmt.Sprintf("No video available for %q", title)))
	return nil
}

func (b *Browser) print(format string, args ...any) {
	if b.Out == nil {
		return
	}
	_, _ = fmt.Fprintf(b.Out, format, args...)
}
