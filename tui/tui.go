// Package tui provides the primary terminal user interface implementation.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/padhai-cli/padhai/catalog"
)

// Options encapsulates the runtime configuration for the terminal user interface.
type Options struct {
	Store  *catalog.Store
	UserID string

	// Continue opens the watch history instead of the batch list.
	Continue bool
	// Live opens the live lecture schedule instead of the batch list.
	Live bool
}

// Run initializes and executes the primary Bubble Tea application loop.
func Run(options *Options) error {
	bubble := newBubble(options)
	defer bubble.shutdown()

	switch {
	case options.Continue:
		bubble.newState(historyState)
	case options.Live:
		bubble.newState(liveState)
	default:
		bubble.newState(batchesState)
	}

	program := tea.NewProgram(bubble, tea.WithAltScreen())
	bubble.send = program.Send

	_, err := program.Run()
	return err
}
