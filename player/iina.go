package player

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"sync"

	"github.com/padhai-cli/padhai/constant"
)

// IINA launches the macOS IINA app through LaunchServices. It exposes no
// control socket, so only loading a source is supported; the user drives
// playback from the IINA window.
type IINA struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	exited chan struct{}
	title  string
}

func NewIINA() *IINA {
	return &IINA{exited: make(chan struct{})}
}

// args builds the open(1) invocation; IINA takes mpv options prefixed with --mpv-.
func (p *IINA) args(target string) []string {
	args := []string{"-a", "IINA", "--args"}
	if p.title != "" {
		args = append(args, "--mpv-force-media-title="+p.title)
	}
	return append(args, target)
}

func (p *IINA) SetTitle(title string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.title = sanitizeTitle(title)
	return nil
}

func (p *IINA) SetSource(src string) error {
	if runtime.GOOS != constant.Darwin {
		return errors.New("IINA is only supported on macOS")
	}

	target, err := sanitizeMediaTarget(src)
	if err != nil {
		return fmt.Errorf("invalid media target: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	cmd := exec.Command("open", p.args(target)...)
	if err = cmd.Start(); err != nil {
		return fmt.Errorf("LaunchServices failed to invoke IINA: %w", err)
	}

	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()

	p.cmd, p.exited = cmd, exited
	return nil
}

// Play is a no-op: IINA starts playing as soon as it opens a file.
func (p *IINA) Play() error { return nil }

func (p *IINA) Pause() error { return ErrUnsupported }

func (p *IINA) SetMuted(bool) error { return ErrUnsupported }

func (p *IINA) Reset() error { return nil }

func (p *IINA) Seek(float64) error { return ErrUnsupported }

func (p *IINA) SupportsNativeHLS() bool { return true }

func (p *IINA) RequestFullscreen() error { return ErrUnsupported }

func (p *IINA) ExitFullscreen() error { return ErrUnsupported }

func (p *IINA) IsFullscreen() bool { return false }

func (p *IINA) StartProgress(func(pos, duration float64)) {}

func (p *IINA) StopProgress() {}

func (p *IINA) OnFullscreenChange(func(bool)) (func(), error) {
	return nil, ErrUnsupported
}

func (p *IINA) Wait() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exited
}

func (p *IINA) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	return nil
}
