// Package shell is the host side of the bridge: it owns the window and
// serves environment, clipboard, pin, tray and notification requests.
package shell

import (
	"errors"
	"sync"

	"dictate/bridge"
	"dictate/log"
)

// Window is the one application window.
type Window interface {
	Show()
	Hide()
	Focus()
	SetAlwaysOnTop(on bool) error
	AlwaysOnTop() bool
}

type Options struct {
	Window       Window
	LookupEnv    func(name string) (string, bool)
	Copy         func(text string) error
	Notify       func(title, body string) error
	SetTrayState func(bridge.TaskbarState)
}

type Shell struct {
	opts   Options
	bridge *bridge.Bridge

	mu       sync.Mutex
	quitting bool
	state    bridge.TaskbarState
}

func New(b *bridge.Bridge, opts Options) *Shell {
	if opts.Window == nil {
		opts.Window = &HeadlessWindow{}
	}
	return &Shell{opts: opts, bridge: b, state: bridge.Idle}
}

func (s *Shell) Window() Window { return s.opts.Window }

func (s *Shell) GetEnvVar(name string) (string, bool) {
	if s.opts.LookupEnv == nil {
		return "", false
	}
	return s.opts.LookupEnv(name)
}

func (s *Shell) CopyToClipboard(text string) error {
	if s.opts.Copy == nil {
		return errors.New("no clipboard")
	}
	return s.opts.Copy(text)
}

// ToggleAlwaysOnTop flips the pin and returns the new value.
func (s *Shell) ToggleAlwaysOnTop() bool {
	w := s.opts.Window
	on := !w.AlwaysOnTop()
	if err := w.SetAlwaysOnTop(on); err != nil {
		log.Warnf("always on top: %v", err)
		return w.AlwaysOnTop()
	}
	return on
}

func (s *Shell) SetTaskbarState(state bridge.TaskbarState) error {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	s.mu.Unlock()
	if changed {
		log.Infof("taskbar_state %s", state)
	}
	if s.opts.SetTrayState != nil {
		s.opts.SetTrayState(state)
	}
	return nil
}

func (s *Shell) TaskbarState() bridge.TaskbarState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Shell) ShowNotification(n bridge.Notification) error {
	if s.opts.Notify == nil {
		return nil
	}
	return s.opts.Notify(n.Title, n.Body)
}

// TrayClicked forwards a tray left-click to the bridge subscribers.
func (s *Shell) TrayClicked() {
	s.bridge.EmitTrayClick()
}

// ShowWindow handles "Show Window" and tray double-clicks.
func (s *Shell) ShowWindow() {
	s.opts.Window.Show()
	s.opts.Window.Focus()
}

// CloseRequested hides the window instead of closing it, unless the app
// is quitting. It reports whether the close should go ahead.
func (s *Shell) CloseRequested() bool {
	s.mu.Lock()
	quitting := s.quitting
	s.mu.Unlock()
	if quitting {
		return true
	}
	s.opts.Window.Hide()
	return false
}

func (s *Shell) Quit() {
	s.mu.Lock()
	s.quitting = true
	s.mu.Unlock()
}

var _ bridge.Handler = (*Shell)(nil)
