//go:build linux

package hotkey

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	evKey          = 1
	inputEventSize = 24 // struct input_event on 64-bit
	inputDir       = "/dev/input"
	sysInputDir    = "/sys/class/input"
)

var errNoKeyboard = errors.New("no keyboard devices found (is user in 'input' group?)")

// evdevHotkey reads every keyboard under /dev/input directly, so it works
// on Wayland and without a display server.
type evdevHotkey struct {
	keydown chan struct{}
	keyup   chan struct{}

	mu    sync.Mutex
	files []*os.File
}

func New() Hotkey {
	return &evdevHotkey{
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
}

func (h *evdevHotkey) Register() error {
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return errNoKeyboard
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		h.files = append(h.files, f)
		go h.readEvents(f)
	}
	if len(h.files) == 0 {
		return fmt.Errorf("could not open any of %d keyboard devices (run: sudo usermod -aG input $USER, then re-login)", len(keyboards))
	}
	return nil
}

// readEvents runs until the file is closed by Unregister.
func (h *evdevHotkey) readEvents(f *os.File) {
	buf := make([]byte, inputEventSize*16)
	var combo comboState
	for {
		n, err := f.Read(buf)
		if err != nil {
			return
		}
		for i := 0; i+inputEventSize <= n; i += inputEventSize {
			if binary.LittleEndian.Uint16(buf[i+16:]) != evKey {
				continue
			}
			code := binary.LittleEndian.Uint16(buf[i+18:])
			value := int32(binary.LittleEndian.Uint32(buf[i+20:]))
			down, up := combo.feed(code, value)
			if down {
				signal(h.keydown)
			}
			if up {
				signal(h.keyup)
			}
		}
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (h *evdevHotkey) Unregister() {
	h.mu.Lock()
	files := h.files
	h.files = nil
	h.mu.Unlock()
	for _, f := range files {
		f.Close()
	}
}

func (h *evdevHotkey) Keydown() <-chan struct{} { return h.keydown }
func (h *evdevHotkey) Keyup() <-chan struct{}   { return h.keyup }

// findKeyboards returns the event devices that can produce a space key.
func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, err
	}
	var keyboards []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		caps, err := os.ReadFile(filepath.Join(sysInputDir, e.Name(), "device", "capabilities", "key"))
		if err != nil || !hasKey(string(caps), keySpace) {
			continue
		}
		keyboards = append(keyboards, filepath.Join(inputDir, e.Name()))
	}
	return keyboards, nil
}

func Diagnose() (string, error) {
	keyboards, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", errNoKeyboard
	}

	opened := 0
	for _, path := range keyboards {
		if f, err := os.Open(path); err == nil {
			f.Close()
			opened++
		}
	}
	if opened == 0 {
		return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(keyboards))
	}
	return fmt.Sprintf("%d keyboard(s) found, %d readable", len(keyboards), opened), nil
}
