//go:build gui

package main

import (
	"fmt"
	"os"

	"dictate/gui"
	"dictate/shell"
	"dictate/tray"
)

var guiApp *gui.App

// initGUI gives the main thread to fyne; run starts once the window is up.
func initGUI() {
	guiApp = gui.NewApp(tray.AppIcon(), run)
	tray.SetDriver(guiApp)
	if err := gui.Run(guiApp); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func guiWindow() shell.Window {
	if guiApp == nil {
		return nil
	}
	return guiApp
}

// wireGUI connects the window's controls to a and returns the window as a
// display, or nil when running without one.
func wireGUI(a *app, quit func()) EventSink {
	if guiApp == nil {
		return nil
	}
	guiApp.OnRecord(a.wf.Toggle)
	guiApp.OnPin(a.bridge.ToggleAlwaysOnTop)
	guiApp.OnClose(a.shell.CloseRequested)
	guiApp.OnQuit(quit)
	guiApp.SetRecordEnabled(a.configured())
	return guiApp
}

func quitGUI() {
	if guiApp != nil {
		guiApp.Quit()
	}
}
