//go:build !darwin && !gui

package tray

func createMenu() {}

// onMainThread runs fn in place. Only macOS needs the tray on the main
// thread, and the Linux entry point never starts a mainthread loop.
func onMainThread(fn func()) { fn() }
