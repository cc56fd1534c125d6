// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wrap"
	"github.com/padhai-cli/padhai/color"
	"github.com/padhai-cli/padhai/icon"
	"github.com/padhai-cli/padhai/playback"
	"github.com/padhai-cli/padhai/style"
	"github.com/padhai-cli/padhai/util"
)

var (
	listExtraPaddingStyle = lipgloss.NewStyle().Padding(1, 2, 1, 0)
	paddingStyle          = lipgloss.NewStyle().Padding(1, 2)
)

func (b *statefulBubble) View() string {
	var output string

	switch b.state {
	case loadingState:
		output = b.viewLoading()
	case batchesState:
		output = listExtraPaddingStyle.Render(b.batchesC.View())
	case searchState:
		output = b.viewSearch()
	case lecturesState:
		output = listExtraPaddingStyle.Render(b.lecturesC.View())
	case booksState:
		output = listExtraPaddingStyle.Render(b.booksC.View())
	case liveState:
		output = listExtraPaddingStyle.Render(b.liveC.View())
	case historyState:
		output = listExtraPaddingStyle.Render(b.historyC.View())
	case playerState:
		output = b.viewPlayer()
	case errorState:
		output = b.viewError()
	default:
		output = "Unknown state"
	}

	return b.notifier.View(output)
}

func (b *statefulBubble) viewLoading() string {
	return b.renderLines(
		true,
		[]string{
			style.Title("Loading"),
			"",
			b.spinnerC.View() + " " + b.progressStatus,
		},
	)
}

func (b *statefulBubble) viewSearch() string {
	lines := []string{
		style.Title("Search Batches"),
		"",
		b.inputC.View(),
		"",
		style.Faint(util.Quantify(len(b.batches), "batch", "batches") + " available"),
	}

	if suggestion, ok := b.searchSuggestion.Get(); ok {
		lines = append(lines, style.Faint("Previously searched: ")+suggestion)
	}

	return b.renderLines(true, lines)
}

func (b *statefulBubble) viewPlayer() string {
	snap := b.snapshot
	truncate := style.Truncate(b.width)

	header := style.Title("Now Playing")
	if snap.State == playback.StateMounted {
		header += " " + style.KindBadge(snap.Ref.Kind.Label())
	}

	lines := []string{
		header,
		"",
		truncate(fmt.Sprintf("%s %s", icon.Get(icon.Video), style.Fg(color.Purple)(snap.Title))),
		"",
	}

	lines = append(lines, b.playerStatus(snap)...)

	if b.duration > 0 && !snap.Ref.Kind.Iframe() {
		lines = append(lines,
			"",
			b.progressC.ViewAs(util.Clamp(b.position/b.duration, 0, 1)),
			style.Faint(b.progressStatus),
		)
	}

	if b.playlist != nil && b.playlist.Len() > 0 {
		lines = append(lines, "")
		if b.playlist.HasNext() {
			lines = append(lines, style.Faint("n  next lecture"))
		}
		if b.playlist.HasPrevious() {
			lines = append(lines, style.Faint("p  previous lecture"))
		}
	}

	return b.renderLines(true, lines)
}

// playerStatus describes what the session is doing.
func (b *statefulBubble) playerStatus(snap playback.Snapshot) []string {
	switch {
	case snap.State != playback.StateMounted:
		return []string{b.spinnerC.View() + " " + b.progressStatus}
	case snap.LoadErr != nil:
		return []string{
			style.Error(icon.Get(icon.Fail) + " Failed to load video"),
			wrap.String(style.Faint(snap.LoadErr.Err.Error()), b.width),
			"",
			"Press " + style.Bold("r") + " to retry",
		}
	case snap.Placeholder:
		return []string{style.Faint("No video available for this lecture")}
	case snap.Ref.Kind.Iframe():
		return []string{icon.Get(icon.Link) + " Opened in your browser"}
	case !snap.Ready:
		status := "Loading video..."
		if snap.Decoding {
			status = "Preparing stream..."
		}
		return []string{b.spinnerC.View() + " " + status}
	}

	var flags []string
	if snap.Playing {
		flags = append(flags, style.Fg(color.Green)("Playing"))
	} else {
		flags = append(flags, style.Fg(color.Yellow)("Paused"))
	}
	if snap.Muted {
		flags = append(flags, "Muted")
	}
	if snap.Fullscreen {
		flags = append(flags, "Fullscreen")
	}
	if snap.Decoding {
		flags = append(flags, style.Faint("via local relay"))
	}

	return []string{strings.Join(flags, " • ")}
}

func (b *statefulBubble) viewError() string {
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	errorBody := errorStyle.Render(b.lastError.Error())
	errorMsg := wrap.String(errorBody, b.width)
	return b.renderLines(
		true,
		append([]string{
			style.ErrorTitle("Error"),
			"",
			icon.Get(icon.Fail) + " An error occurred:",
			"",
		},
			errorMsg,
		),
	)
}

func (b *statefulBubble) renderLines(addHelp bool, lines []string) string {
	h := len(lines)
	l := strings.Join(lines, "\n")
	if addHelp {
		if b.height > h {
			l += strings.Repeat("\n", b.height-h)
		}
		l += b.helpC.View(b.keymap)
	}

	return paddingStyle.Render(l)
}
