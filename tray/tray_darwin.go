//go:build darwin && !gui

package tray

import (
	"github.com/energye/systray"
	"golang.design/x/hotkey/mainthread"
)

func createMenu() { systray.CreateMenu() }

// onMainThread runs fn on the Cocoa main thread served by mainthread.Init.
func onMainThread(fn func()) { mainthread.Call(fn) }
