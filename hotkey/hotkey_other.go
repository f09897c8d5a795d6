//go:build !linux

package hotkey

import (
	"fmt"
	"sync"

	"golang.design/x/hotkey"
)

// osHotkey uses the platform's global shortcut API. On macOS it must be
// registered from a program started through mainthread.Init.
type osHotkey struct {
	hk      *hotkey.Hotkey
	keydown chan struct{}
	keyup   chan struct{}
	stop    chan struct{}
	once    sync.Once
}

func New() Hotkey {
	return &osHotkey{
		hk:      hotkey.New([]hotkey.Modifier{hotkey.ModCtrl, hotkey.ModShift}, hotkey.KeySpace),
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
}

func (h *osHotkey) Register() error {
	if err := h.hk.Register(); err != nil {
		return fmt.Errorf("register %s: %w", Combo, err)
	}
	go h.forward()
	return nil
}

func (h *osHotkey) forward() {
	for {
		select {
		case <-h.hk.Keydown():
			signal(h.keydown)
		case <-h.hk.Keyup():
			signal(h.keyup)
		case <-h.stop:
			return
		}
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (h *osHotkey) Unregister() {
	h.once.Do(func() {
		close(h.stop)
		h.hk.Unregister()
	})
}

func (h *osHotkey) Keydown() <-chan struct{} { return h.keydown }
func (h *osHotkey) Keyup() <-chan struct{}   { return h.keyup }

// Diagnose registers and releases the shortcut once, which fails when
// another program owns it.
func Diagnose() (string, error) {
	hk := hotkey.New([]hotkey.Modifier{hotkey.ModCtrl, hotkey.ModShift}, hotkey.KeySpace)
	if err := hk.Register(); err != nil {
		return "", fmt.Errorf("%s unavailable: %w", Combo, err)
	}
	hk.Unregister()
	return Combo + " available", nil
}
