package player

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/padhai-cli/padhai/constant"
	"github.com/padhai-cli/padhai/key"
	"github.com/padhai-cli/padhai/log"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

const (
	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
	progressInterval  = time.Second
)

// ErrNotRunning is returned when a control is used before mpv was started.
var ErrNotRunning = errors.New("mpv is not running")

// MPV is a long-lived mpv process controlled over JSON-IPC. It is started
// idle on first use and loads each new source into the same window.
type MPV struct {
	log log.Entry

	// proc guards the process fields below.
	proc       sync.Mutex
	socketPath string
	cmd        *exec.Cmd
	exited     chan struct{}
	title      string
	nativeHLS  *bool

	progressMu   sync.Mutex
	progressStop chan struct{}

	fullscreen fullscreenWatch

	// mu serializes IPC requests.
	mu sync.Mutex
}

// NewMPV creates an mpv player. No process is started until it is needed.
func NewMPV() *MPV {
	return &MPV{
		log:    log.For("mpv"),
		exited: make(chan struct{}),
	}
}

// Wait returns a channel that is closed when the mpv process exits.
func (m *MPV) Wait() <-chan struct{} {
	m.proc.Lock()
	defer m.proc.Unlock()
	return m.exited
}

// Socket is the IPC socket path, empty before the first start.
func (m *MPV) Socket() string {
	m.proc.Lock()
	defer m.proc.Unlock()
	return m.socketPath
}

// IsRunning reports whether the mpv process is alive.
func (m *MPV) IsRunning() bool {
	m.proc.Lock()
	defer m.proc.Unlock()
	return m.running()
}

func (m *MPV) running() bool {
	if m.cmd == nil {
		return false
	}
	select {
	case <-m.exited:
		return false
	default:
		return true
	}
}

// ensure starts an idle mpv window unless one is already running.
func (m *MPV) ensure() error {
	m.proc.Lock()
	defer m.proc.Unlock()

	if m.running() {
		return nil
	}

	if m.socketPath == "" {
		randomBytes := make([]byte, 4)
		if _, err := rand.Read(randomBytes); err != nil {
			return fmt.Errorf("generate socket name: %w", err)
		}
		m.socketPath = filepath.Join(os.TempDir(), fmt.Sprintf("%s-%x.sock", constant.Padhai, randomBytes))
	}

	// Only the socket and window options are passed so the user's mpv.conf still applies.
	args := []string{
		"--no-terminal",
		"--really-quiet",
		"--idle=yes",
		"--force-window=yes",
		"--input-ipc-server=" + m.socketPath,
	}
	if m.title != "" {
		args = append(args, "--force-media-title="+m.title, "--title="+m.title)
	}

	cmd := exec.Command("mpv", args...)
	cmd.SysProcAttr = detached()
	cmd.Stdin, cmd.Stdout, cmd.Stderr = nil, nil, nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}

	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		m.fullscreen.exited()
		close(exited)
	}()

	m.cmd = cmd
	m.exited = exited
	m.nativeHLS = nil

	if err := waitForSocket(m.socketPath, exited); err != nil {
		select {
		case <-exited:
		default:
			m.log.Warn("killing mpv: socket never became ready")
			_ = terminate(cmd)
		}
		return fmt.Errorf("mpv socket not ready: %w", err)
	}

	m.log.Infof("started mpv on %s", m.socketPath)
	if err := m.fullscreen.arm(m.socketPath); err != nil {
		m.log.WithError(err).Warn("cannot observe fullscreen")
	}
	return nil
}

func waitForSocket(path string, exited <-chan struct{}) error {
	for range socketWaitRetries {
		time.Sleep(socketWaitDelay)

		select {
		case <-exited:
			return errors.New("mpv exited before socket was ready")
		default:
		}

		conn, err := net.Dial("unix", path)
		if err == nil {
			_ = conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", path, socketWaitRetries)
}

// SetTitle sets the window and media title. Before mpv starts the title is
// remembered and passed on launch.
func (m *MPV) SetTitle(title string) error {
	title = sanitizeTitle(title)

	m.proc.Lock()
	m.title = title
	running := m.running()
	m.proc.Unlock()

	if !running {
		return nil
	}
	return m.Set("force-media-title", title)
}

// SetSource loads src into mpv, replacing whatever is playing. Playback
// starts paused so that play stays an explicit command.
func (m *MPV) SetSource(src string) error {
	target, err := sanitizeMediaTarget(src)
	if err != nil {
		return fmt.Errorf("invalid media target: %w", err)
	}

	if err = m.ensure(); err != nil {
		return err
	}

	if err = m.Set("pause", true); err != nil {
		return err
	}

	_, err = m.sendCommand("loadfile", target, "replace")
	return err
}

func (m *MPV) Play() error {
	return m.Set("pause", false)
}

func (m *MPV) Pause() error {
	return m.Set("pause", true)
}

func (m *MPV) SetMuted(muted bool) error {
	return m.Set("mute", muted)
}

// Reset unloads the current file. The window stays open and idle.
func (m *MPV) Reset() error {
	if !m.IsRunning() {
		return nil
	}
	_, err := m.sendCommand("stop")
	return err
}

// SupportsNativeHLS follows player.native_hls. In auto mode the libavformat
// demuxer list of the running mpv is checked for hls.
func (m *MPV) SupportsNativeHLS() bool {
	switch viper.GetString(key.PlayerNativeHLS) {
	case "always":
		return true
	case "never":
		return false
	}

	m.proc.Lock()
	cached := m.nativeHLS
	m.proc.Unlock()
	if cached != nil {
		return *cached
	}

	if err := m.ensure(); err != nil {
		m.log.WithError(err).Warn("cannot probe demuxers")
		return false
	}

	data, err := m.sendCommand("get_property", "demuxer-lavf-list")
	if err != nil {
		m.log.WithError(err).Warn("cannot probe demuxers")
		return false
	}

	demuxers, _ := data.([]any)
	supported := lo.Contains(demuxers, any("hls"))

	m.proc.Lock()
	m.nativeHLS = &supported
	m.proc.Unlock()

	m.log.Infof("native hls: %t", supported)
	return supported
}

func (m *MPV) RequestFullscreen() error {
	if !m.IsRunning() {
		return ErrNotRunning
	}
	return m.Set("fullscreen", true)
}

func (m *MPV) ExitFullscreen() error {
	if !m.IsRunning() {
		return ErrNotRunning
	}
	return m.Set("fullscreen", false)
}

func (m *MPV) IsFullscreen() bool {
	if !m.IsRunning() {
		return false
	}
	data, err := m.sendCommand("get_property", "fullscreen")
	if err != nil {
		return false
	}
	fullscreen, _ := data.(bool)
	return fullscreen
}

// OnFullscreenChange observes the fullscreen property, so changes made from
// the mpv window itself are reported too. The subscription survives mpv
// restarts; fn is called with false whenever the window closes.
func (m *MPV) OnFullscreenChange(fn func(fullscreen bool)) (func(), error) {
	if err := m.ensure(); err != nil {
		return nil, err
	}

	id := m.fullscreen.add(fn)
	if err := m.fullscreen.arm(m.Socket()); err != nil {
		m.fullscreen.remove(id)
		return nil, err
	}
	return func() { m.fullscreen.remove(id) }, nil
}

// Seek moves playback to the given absolute position in seconds.
func (m *MPV) Seek(seconds float64) error {
	_, err := m.sendCommand("seek", seconds, "absolute")
	return err
}

// Position returns the current playback position and the media duration in
// seconds. Duration is zero for live streams.
func (m *MPV) Position() (pos, duration float64, err error) {
	if pos, err = m.floatProperty("time-pos"); err != nil {
		return 0, 0, err
	}
	duration, _ = m.floatProperty("duration")
	return pos, duration, nil
}

// StartProgress polls the position once a second.
func (m *MPV) StartProgress(fn func(pos, duration float64)) {
	m.progressMu.Lock()
	defer m.progressMu.Unlock()

	if m.progressStop != nil {
		return
	}

	stop := make(chan struct{})
	m.progressStop = stop
	exited := m.Wait()

	go func() {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-exited:
				m.progressMu.Lock()
				if m.progressStop == stop {
					m.progressStop = nil
				}
				m.progressMu.Unlock()
				return
			case <-ticker.C:
				pos, duration, err := m.Position()
				if err != nil {
					continue
				}
				fn(pos, duration)
			}
		}
	}()
}

func (m *MPV) StopProgress() {
	m.progressMu.Lock()
	defer m.progressMu.Unlock()

	if m.progressStop != nil {
		close(m.progressStop)
		m.progressStop = nil
	}
}

// Close quits mpv and removes the socket.
func (m *MPV) Close() error {
	m.StopProgress()

	m.proc.Lock()
	cmd, exited, socket := m.cmd, m.exited, m.socketPath
	m.proc.Unlock()

	if cmd == nil {
		return nil
	}

	_, _ = m.sendCommand("quit")

	select {
	case <-exited:
	case <-time.After(3 * time.Second):
		_ = terminate(cmd)
	}

	_ = os.Remove(socket)
	return nil
}

// Set writes an mpv property.
func (m *MPV) Set(property string, value any) error {
	_, err := m.sendCommand("set_property", property, value)
	return err
}

func (m *MPV) floatProperty(name string) (float64, error) {
	data, err := m.sendCommand("get_property", name)
	if err != nil {
		return 0, err
	}

	val, ok := data.(float64)
	if !ok {
		return 0, fmt.Errorf("property %s: expected number, got %T", name, data)
	}
	return val, nil
}

// sanitizeMediaTarget rejects anything mpv could read as an option or a
// protocol other than http(s) and local files.
func sanitizeMediaTarget(link string) (string, error) {
	l := strings.TrimSpace(link)
	switch {
	case l == "":
		return "", errors.New("empty URL")
	case strings.ContainsAny(l, "\x00\n\r"):
		return "", errors.New("invalid control characters in URL")
	case strings.HasPrefix(l, "-"):
		return "", errors.New("url must not start with '-'")
	}

	if !strings.Contains(l, "://") {
		return filepath.Clean(l), nil
	}

	u, err := url.Parse(l)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return l, nil
	default:
		return "", fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
	}
}

func sanitizeTitle(title string) string {
	t := strings.NewReplacer("\n", " ", "\r", " ", "\t", " ", "\x00", "").Replace(title)
	return strings.TrimSpace(t)
}
