// Package hotkey watches the global Ctrl+Shift+Space shortcut.
package hotkey

// Combo is the shortcut as shown to users.
const Combo = "Ctrl+Shift+Space"

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}
