// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/padhai-cli/padhai/catalog"
	"github.com/padhai-cli/padhai/history"
	"github.com/padhai-cli/padhai/icon"
	"github.com/padhai-cli/padhai/key"
	"github.com/padhai-cli/padhai/live"
	"github.com/padhai-cli/padhai/media"
	"github.com/padhai-cli/padhai/style"
	"github.com/spf13/viper"
)

// lectureItem is a lecture together with what the list needs to decorate it.
type lectureItem struct {
	lecture catalog.Lecture
	subject string
	locked  bool
	watched *history.Entry
}

// listItem implements the list.Item interface, wrapping various domain models for terminal display.
type listItem struct {
	internal interface{}
	marked   bool
}

func (t *listItem) getMark() string {
	switch t.internal.(type) {
	case *lectureItem:
		return lipgloss.NewStyle().Bold(true).Foreground(style.AccentColor).Render(icon.Get(icon.Mark))
	case *catalog.Batch:
		return icon.Get(icon.Success)
	default:
		return ""
	}
}

// Title retrieves the primary display text for the list item.
func (t *listItem) Title() (title string) {
	switch e := t.internal.(type) {
	case *lectureItem:
		var sb strings.Builder

		if e.locked {
			sb.WriteString(icon.Get(icon.Lock))
			sb.WriteString(" ")
		}
		sb.WriteString(e.lecture.Title)
		if e.lecture.Free() {
			sb.WriteString(" ")
			sb.WriteString(style.FreeBadge("Free"))
		}

		title = sb.String()
	case *live.Lecture:
		info := live.Evaluate(*e, time.Now())
		title = fmt.Sprintf("%s %s", statusBadge(info.Status), e.Title)
	default:
		title = t.FilterValue()
	}

	if title != "" && t.marked {
		title = fmt.Sprintf("%s %s", title, t.getMark())
	}

	return
}

// Description retrieves the secondary metadata for the list item.
func (t *listItem) Description() (description string) {
	switch e := t.internal.(type) {
	case *catalog.Batch:
		var parts []string

		if e.BatchType != nil && *e.BatchType != "" {
			parts = append(parts, *e.BatchType)
		}
		parts = append(parts, lipgloss.NewStyle().Foreground(style.PriceColor).Render(e.PriceLabel()))
		if e.DurationWeeks != nil && *e.DurationWeeks > 0 {
			parts = append(parts, lipgloss.NewStyle().Foreground(style.FaintColor).Render(fmt.Sprintf("%d weeks", *e.DurationWeeks)))
		}
		if e.StartDate != nil {
			parts = append(parts, lipgloss.NewStyle().Foreground(style.FaintColor).Render("from "+e.StartDate.Format("2 Jan 2006")))
		}

		description = strings.Join(parts, " • ")
	case *lectureItem:
		parts := []string{e.subject}

		if d := e.lecture.Duration(); d > 0 {
			parts = append(parts, d.String())
		}
		if url := e.lecture.URL(); url != "" {
			parts = append(parts, media.Classify(url).Kind.Label())
			if viper.GetBool(key.TUIShowURLs) {
				parts = append(parts, style.Faint(url))
			}
		} else {
			parts = append(parts, style.Faint("no video"))
		}
		if e.watched != nil {
			parts = append(parts, progressLabel(e.watched))
		}

		description = strings.Join(parts, " • ")
	case *catalog.Book:
		if e.Description != nil {
			description = *e.Description
		}
		if e.PDFURL == nil || *e.PDFURL == "" {
			description = strings.TrimSpace(description + " " + style.Faint("(no pdf)"))
		}
	case *live.Lecture:
		info := live.Evaluate(*e, time.Now())
		parts := []string{e.Instructor, info.Message}
		if info.Time != "" {
			parts = append(parts, info.Time)
		}
		description = strings.Join(parts, " • ")
	case *history.Entry:
		description = strings.Join([]string{e.BatchName, e.Subject}, " • ") + progressLabel(e)
	}

	return
}

// FilterValue returns the string used for real-time list filtering and searching.
func (t *listItem) FilterValue() string {
	switch e := t.internal.(type) {
	case *catalog.Batch:
		return e.Name
	case *lectureItem:
		return e.lecture.Title
	case *catalog.Book:
		return e.Title
	case *live.Lecture:
		return e.Title
	case *history.Entry:
		return e.Title
	case string:
		return e
	default:
		return ""
	}
}

func progressLabel(e *history.Entry) string {
	switch {
	case e.Completed():
		return lipgloss.NewStyle().Foreground(style.SuccessColor).Render(" (Watched)")
	case e.WatchedPercentage > 0:
		return lipgloss.NewStyle().Foreground(style.WarningColor).Render(fmt.Sprintf(" (%.0f%%)", e.WatchedPercentage))
	default:
		return ""
	}
}

func statusBadge(s live.Status) string {
	switch s {
	case live.Live:
		return style.LiveBadge(icon.Get(icon.Live) + " " + s.String())
	case live.Upcoming:
		return style.UpcomingBadge(s.String())
	default:
		return style.OfflineBadge(s.String())
	}
}
