// Package open hands URLs and files to the desktop: the default handler or a named application.
package open

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/padhai-cli/padhai/constant"
)

// ErrUnsafeTarget is returned for inputs that could be read as command options.
var ErrUnsafeTarget = errors.New("refusing to open target")

// Start opens input with the default handler without waiting for it.
func Start(input string) error {
	return StartWith(input, "")
}

// StartWith opens input with app, or with the default handler when app is empty.
func StartWith(input, app string) error {
	if err := check(input); err != nil {
		return err
	}

	cmd, ok := command(input, app)
	if !ok {
		return fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}
	return cmd.Start()
}

func check(input string) error {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, "-") {
		return ErrUnsafeTarget
	}

	if u, err := url.Parse(input); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		switch strings.ToLower(u.Scheme) {
		case "http", "https", "file":
		default:
			return fmt.Errorf("%w: scheme %q", ErrUnsafeTarget, u.Scheme)
		}
	}
	return nil
}

func command(input, app string) (*exec.Cmd, bool) {
	if app != "" {
		return commandWith(input, app)
	}

	switch runtime.GOOS {
	case constant.Windows:
		rundll := filepath.Join(os.Getenv("SYSTEMROOT"), "System32", "rundll32.exe")
		return exec.Command(rundll, "url.dll,FileProtocolHandler", input), true
	case constant.Darwin:
		return exec.Command("open", input), true
	case constant.Linux:
		return exec.Command("xdg-open", input), true
	case constant.Android:
		return exec.Command("termux-open", input), true
	default:
		return nil, false
	}
}

func commandWith(input, app string) (*exec.Cmd, bool) {
	switch runtime.GOOS {
	case constant.Windows:
		// cmd's start treats & as a command separator.
		escaped := strings.ReplaceAll(input, "&", "^&")
		return exec.Command("cmd", "/C", "start", "", app, escaped), true
	case constant.Darwin:
		return exec.Command("open", "-a", app, input), true
	case constant.Linux:
		return exec.Command(app, input), true
	case constant.Android:
		return exec.Command("termux-open", "--choose", input), true
	default:
		return nil, false
	}
}
