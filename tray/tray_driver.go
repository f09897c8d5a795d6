//go:build gui

package tray

// Driver is the GUI toolkit's tray. The gui package installs one before
// calling Init.
type Driver interface {
	SetIcon(png []byte)
	SetTooltip(msg string)
}

var driver Driver

func SetDriver(d Driver) { driver = d }

// Init marks the tray ready; the GUI owns the event loop.
func Init() <-chan struct{} {
	markReady()
	return quitCh
}

// Click and ShowWindow let GUI menu items reuse the tray's callbacks.
func Click()      { click() }
func ShowWindow() { showWindow() }

func setIcon(png []byte) {
	if driver != nil {
		driver.SetIcon(png)
	}
}

func setTooltip(msg string) {
	if driver != nil {
		driver.SetTooltip(msg)
	}
}
