//go:build gui

// Package gui is the desktop window: a status line, an input level meter,
// the last transcript and record and pin buttons. It also stands in for the
// system tray, since fyne owns the event loop in GUI builds.
package gui

import (
	"errors"
	"fmt"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
	"github.com/go-gl/glfw/v3.3/glfw"

	"dictate/log"
	"dictate/tray"
	"dictate/workflow"
)

const (
	appID = "io.dictate.gui"
	title = "dictate"

	labelRecord = "Start Recording"
	labelStop   = "Stop Recording"
	labelCancel = "Cancel"
	labelPin    = "Pin"
	labelUnpin  = "Unpin"
)

var errNoNativeWindow = errors.New("gui: no native window")

type App struct {
	fyneApp fyne.App
	window  fyne.Window
	icon    []byte
	onReady func()

	status     *widget.Label
	level      *widget.ProgressBar
	transcript *widget.Entry
	device     *widget.Label
	metrics    *widget.Label
	record     *widget.Button
	pin        *widget.Button

	trayMenu   *fyne.Menu
	trayRecord *fyne.MenuItem

	mu       sync.Mutex
	onRecord func()
	onPin    func() bool
	onClose  func() bool
	onQuit   func()
	pinned   bool
}

// NewApp prepares the window. onReady runs in its own goroutine once the
// event loop has started.
func NewApp(icon []byte, onReady func()) *App {
	return &App{icon: icon, onReady: onReady}
}

func (a *App) OnRecord(fn func()) {
	a.mu.Lock()
	a.onRecord = fn
	a.mu.Unlock()
}

// OnPin receives the pin button; fn returns the new always-on-top state.
func (a *App) OnPin(fn func() bool) {
	a.mu.Lock()
	a.onPin = fn
	a.mu.Unlock()
}

// OnClose decides whether the close button quits (true) or only hides.
func (a *App) OnClose(fn func() bool) {
	a.mu.Lock()
	a.onClose = fn
	a.mu.Unlock()
}

func (a *App) OnQuit(fn func()) {
	a.mu.Lock()
	a.onQuit = fn
	a.mu.Unlock()
}

// Run builds the window and blocks in the fyne event loop.
func Run(a *App) error {
	a.fyneApp = app.NewWithID(appID)
	a.fyneApp.Settings().SetTheme(&dictateTheme{})
	icon := fyne.NewStaticResource("dictate.png", a.icon)
	a.fyneApp.SetIcon(icon)

	if desk, ok := a.fyneApp.(desktop.App); ok {
		// fyne delivers no tray clicks, so the first menu item is the click
		a.trayRecord = fyne.NewMenuItem(labelRecord, tray.Click)
		show := fyne.NewMenuItem("Show Window", tray.ShowWindow)
		quit := fyne.NewMenuItem("Quit", a.quit)
		quit.IsQuit = true
		a.trayMenu = fyne.NewMenu(title, a.trayRecord, show, fyne.NewMenuItemSeparator(), quit)
		desk.SetSystemTrayMenu(a.trayMenu)
		desk.SetSystemTrayIcon(icon)
	}

	a.window = a.fyneApp.NewWindow(title)
	a.window.SetContent(a.build())
	a.window.Resize(fyne.NewSize(420, 320))
	a.window.SetCloseIntercept(a.closeRequested)

	a.fyneApp.Lifecycle().SetOnStarted(func() {
		if a.onReady != nil {
			go a.onReady()
		}
	})

	a.window.Show()
	a.fyneApp.Run()
	return nil
}

func (a *App) build() fyne.CanvasObject {
	a.status = widget.NewLabel(workflow.StatusReady)
	a.status.TextStyle = fyne.TextStyle{Bold: true}
	a.status.Wrapping = fyne.TextWrapWord

	a.level = widget.NewProgressBar()
	a.level.TextFormatter = func() string { return "" }

	a.transcript = widget.NewMultiLineEntry()
	a.transcript.Wrapping = fyne.TextWrapWord
	a.transcript.SetPlaceHolder("No transcriptions yet")

	a.device = widget.NewLabel("")
	a.metrics = widget.NewLabel("")

	a.record = widget.NewButton(labelRecord, a.clickRecord)
	a.record.Importance = widget.HighImportance
	a.pin = widget.NewButton(labelPin, a.clickPin)

	top := container.NewVBox(a.status, a.level)
	bottom := container.NewVBox(
		a.metrics,
		container.NewHBox(a.device, layout.NewSpacer(), a.pin, a.record),
	)
	return container.NewBorder(top, bottom, nil, nil, a.transcript)
}

func (a *App) clickRecord() {
	a.mu.Lock()
	fn := a.onRecord
	a.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// clickPin leaves the UI thread: the pin round-trips through the bridge,
// which calls back into SetAlwaysOnTop.
func (a *App) clickPin() {
	a.mu.Lock()
	fn := a.onPin
	a.mu.Unlock()
	if fn == nil {
		return
	}
	go func() {
		on := fn()
		fyne.Do(func() { a.pin.SetText(pinLabel(on)) })
	}()
}

func (a *App) closeRequested() {
	a.mu.Lock()
	fn := a.onClose
	a.mu.Unlock()
	if fn == nil || fn() {
		a.fyneApp.Quit()
	}
}

func (a *App) quit() {
	a.mu.Lock()
	fn := a.onQuit
	a.mu.Unlock()
	if fn != nil {
		fn()
		return
	}
	a.fyneApp.Quit()
}

// Quit ends the event loop.
func (a *App) Quit() {
	if a.fyneApp != nil {
		fyne.Do(a.fyneApp.Quit)
	}
}

func (a *App) Show() {
	fyne.Do(func() {
		if a.window != nil {
			a.window.Show()
		}
	})
}

func (a *App) Hide() {
	fyne.Do(func() {
		if a.window != nil {
			a.window.Hide()
		}
	})
}

func (a *App) Focus() {
	fyne.Do(func() {
		if a.window != nil {
			a.window.RequestFocus()
		}
	})
}

// SetAlwaysOnTop must not be called from the UI thread.
func (a *App) SetAlwaysOnTop(on bool) error {
	err := errNoNativeWindow
	fyne.DoAndWait(func() {
		glfwWin := glfw.GetCurrentContext()
		if glfwWin == nil {
			return
		}
		value := glfw.False
		if on {
			value = glfw.True
		}
		glfwWin.SetAttrib(glfw.Floating, value)
		err = nil
	})
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.pinned = on
	a.mu.Unlock()
	return nil
}

func (a *App) AlwaysOnTop() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pinned
}

func pinLabel(on bool) string {
	if on {
		return labelUnpin
	}
	return labelPin
}

// SetIcon and SetTooltip make the App the tray's driver.
func (a *App) SetIcon(png []byte) {
	fyne.Do(func() {
		if desk, ok := a.fyneApp.(desktop.App); ok {
			desk.SetSystemTrayIcon(fyne.NewStaticResource("tray.png", png))
		}
	})
}

// SetTooltip shows msg as the window title; fyne trays have no tooltip.
func (a *App) SetTooltip(msg string) {
	fyne.Do(func() {
		if a.window != nil {
			a.window.SetTitle(msg)
		}
	})
}

// SetRecordEnabled greys out recording when no API key is configured.
func (a *App) SetRecordEnabled(on bool) {
	fyne.Do(func() {
		if on {
			a.record.Enable()
		} else {
			a.record.Disable()
		}
	})
}

func (a *App) Status(st workflow.Status) {
	label, clickLabel := labelRecord, labelRecord
	switch workflow.NextAction(st.Phase) {
	case workflow.ActionStop:
		label, clickLabel = labelStop, labelStop
	case workflow.ActionCancel:
		clickLabel = labelCancel
	}
	fyne.Do(func() {
		a.status.SetText(st.Text)
		a.record.SetText(label)
		if st.Phase != workflow.Listening {
			a.level.SetValue(0)
		}
		if a.trayRecord != nil && a.trayRecord.Label != clickLabel {
			a.trayRecord.Label = clickLabel
			a.trayMenu.Refresh()
		}
	})
}

func (a *App) Transcript(text string) {
	fyne.Do(func() { a.transcript.SetText(text) })
}

// Level scales RMS so normal speech fills most of the bar.
func (a *App) Level(level float64) {
	v := min(level*4, 1)
	fyne.Do(func() { a.level.SetValue(v) })
}

func (a *App) Job(m log.JobMetrics) {
	line := fmt.Sprintf("%.1fs audio | %.0f KB | upload %.0fms | %d polls | %.1fs total",
		m.AudioLengthS, m.PayloadKB, m.UploadMs, m.Polls, m.TotalTimeMs/1000)
	fyne.Do(func() { a.metrics.SetText(line) })
}

func (a *App) Device(name string) {
	fyne.Do(func() { a.device.SetText("mic: " + name) })
}
