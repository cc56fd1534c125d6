package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/padhai-cli/padhai/color"
	"github.com/padhai-cli/padhai/constant"
	"github.com/padhai-cli/padhai/icon"
	"github.com/padhai-cli/padhai/key"
	"github.com/padhai-cli/padhai/player"
	"github.com/padhai-cli/padhai/style"
	"github.com/spf13/viper"
)

// CheckDependencies verifies that the configured player can be launched.
// Embedded videos only need a browser, so this is checked before anything native plays.
func CheckDependencies() {
	dep := viper.GetString(key.Player)
	binary := dep
	if dep == player.IINAName {
		if runtime.GOOS != constant.Darwin {
			printMissingDependencyError(dep, "IINA is only available on macOS, use mpv instead")
			os.Exit(1)
		}
		binary = "open"
	}

	if _, err := exec.LookPath(binary); err != nil {
		printMissingDependencyError(dep, "")
		os.Exit(1)
	}
}

func installCommand(dep string) string {
	switch runtime.GOOS {
	case constant.Darwin:
		if dep == player.IINAName {
			return "brew install --cask iina"
		}
		return "brew install " + dep
	case constant.Linux:
		return "sudo apt install " + dep
	case constant.Windows:
		return "scoop install " + dep
	}
	return ""
}

func printMissingDependencyError(dep, hint string) {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color.HiRed).
		Padding(1, 2).
		Margin(1, 0)

	title := style.New().Bold(true).Foreground(color.HiRed).Render(fmt.Sprintf("%s Error: Missing Dependency", icon.Get(icon.Fail)))
	body := style.New().Foreground(style.Text).Render(fmt.Sprintf("The player '%s' was not found in your PATH.", dep))

	suggestion := hint
	if suggestion == "" {
		if install := installCommand(dep); install != "" {
			suggestion = fmt.Sprintf("To install it, try running:\n  %s", style.New().Foreground(style.AccentColor).Bold(true).Render(install))
		}
	}

	fmt.Println(box.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"\n",
			body,
			"\n",
			suggestion,
		),
	))
}
