// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Init starts the initial data loads and the live schedule watcher.
func (b *statefulBubble) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textinput.Blink,
		b.loadBatches(),
		b.loadLive(),
		b.watchLive(),
		tickLive(),
	}

	if b.state == historyState {
		cmds = append(cmds, b.loadHistory())
	}

	return tea.Batch(cmds...)
}
