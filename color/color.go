// Package color provides a curated palette of ANSI colors for CLI output.
package color

import "github.com/charmbracelet/lipgloss"

// New initializes a lipgloss.Color from a string value.
func New(value string) lipgloss.Color {
	return lipgloss.Color(value)
}

var (
	Red    = New("1")
	Green  = New("2")
	Yellow = New("3")
	Blue   = New("4")
	Purple = New("5")
	Cyan   = New("6")
)

var (
	HiRed   = New("9")
	HiGreen = New("10")
)

var (
	Orange = New("#ffb703")
	Gray   = New("#808080")
)
