package shell

import "sync"

// HeadlessWindow stands in for a real window in terminal builds. It only
// remembers visibility and the pin.
type HeadlessWindow struct {
	mu      sync.Mutex
	visible bool
	focused bool
	onTop   bool
}

func (w *HeadlessWindow) Show() {
	w.mu.Lock()
	w.visible = true
	w.mu.Unlock()
}

func (w *HeadlessWindow) Hide() {
	w.mu.Lock()
	w.visible, w.focused = false, false
	w.mu.Unlock()
}

func (w *HeadlessWindow) Focus() {
	w.mu.Lock()
	w.focused = w.visible
	w.mu.Unlock()
}

func (w *HeadlessWindow) SetAlwaysOnTop(on bool) error {
	w.mu.Lock()
	w.onTop = on
	w.mu.Unlock()
	return nil
}

func (w *HeadlessWindow) AlwaysOnTop() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.onTop
}

func (w *HeadlessWindow) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

func (w *HeadlessWindow) Focused() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.focused
}
