// Package tray owns the system tray icon: one image per taskbar state, a
// tooltip, and a small menu. Left clicks are handed to OnClick and double
// clicks to OnShowWindow; the tray never decides what a click means.
package tray

import (
	"sync"
	"time"

	"dictate/bridge"
)

const appName = "dictate"

var (
	quitCh    = make(chan struct{})
	closeOnce sync.Once

	mu        sync.Mutex
	ready     bool
	state     = bridge.Idle
	clickFn   func()
	showFn    func()
	errorSeq  int
	errorHold = 10 * time.Second

	autoPasteOn bool
	autoPasteCb func(bool)

	deviceNames []string
	deviceSel   string
	deviceCb    func(string)

	langCode string // "" = automatic
	langCb   func(string)
)

type Language struct {
	Code  string // ISO-639-1
	Label string
}

// Languages offered in the tray menu.
var Languages = []Language{
	{"", "Automatic"},
	{"en", "English"},
	{"de", "German"},
	{"es", "Spanish"},
	{"fr", "French"},
	{"it", "Italian"},
	{"nl", "Dutch"},
	{"pt", "Portuguese"},
	{"hi", "Hindi"},
	{"ja", "Japanese"},
	{"zh", "Chinese"},
	{"fi", "Finnish"},
	{"ko", "Korean"},
	{"pl", "Polish"},
	{"ru", "Russian"},
	{"tr", "Turkish"},
	{"uk", "Ukrainian"},
	{"vi", "Vietnamese"},
}

func OnClick(fn func()) {
	mu.Lock()
	clickFn = fn
	mu.Unlock()
}

func OnShowWindow(fn func()) {
	mu.Lock()
	showFn = fn
	mu.Unlock()
}

func SetAutoPaste(on bool, fn func(bool)) {
	mu.Lock()
	autoPasteOn, autoPasteCb = on, fn
	mu.Unlock()
}

func SetLanguage(code string, fn func(string)) {
	mu.Lock()
	langCode, langCb = code, fn
	mu.Unlock()
}

func SetDevices(names []string, selected string, fn func(string)) {
	mu.Lock()
	deviceNames, deviceSel, deviceCb = names, selected, fn
	mu.Unlock()
}

// Tooltip is the hover text for a state.
func Tooltip(s bridge.TaskbarState) string {
	switch s {
	case bridge.Listening:
		return appName + " - Listening"
	case bridge.Processing:
		return appName + " - Processing"
	}
	return appName + " - Idle"
}

// SetState swaps the icon and tooltip. Before Init it only records the
// state so the icon is right once the tray appears.
func SetState(s bridge.TaskbarState) {
	mu.Lock()
	state = s
	errorSeq++
	isReady := ready
	mu.Unlock()
	if isReady {
		showState(s)
	}
}

func State() bridge.TaskbarState {
	mu.Lock()
	defer mu.Unlock()
	return state
}

// SetError badges the icon and puts msg in the tooltip for a while, unless
// the state changes first.
func SetError(msg string) {
	mu.Lock()
	errorSeq++
	seq := errorSeq
	isReady := ready
	mu.Unlock()
	if !isReady {
		return
	}
	setIcon(iconError)
	setTooltip(appName + " - " + msg)
	time.AfterFunc(errorHold, func() {
		mu.Lock()
		current, s := errorSeq == seq, state
		mu.Unlock()
		if current {
			showState(s)
		}
	})
}

func showState(s bridge.TaskbarState) {
	setIcon(Icon(s))
	setTooltip(Tooltip(s))
}

func click() {
	mu.Lock()
	fn := clickFn
	mu.Unlock()
	if fn != nil {
		fn()
	}
}

func showWindow() {
	mu.Lock()
	fn := showFn
	mu.Unlock()
	if fn != nil {
		fn()
	}
}

func toggleAutoPaste() bool {
	mu.Lock()
	autoPasteOn = !autoPasteOn
	on, fn := autoPasteOn, autoPasteCb
	mu.Unlock()
	if fn != nil {
		fn(on)
	}
	return on
}

func selectLanguage(code string) {
	mu.Lock()
	langCode = code
	fn := langCb
	mu.Unlock()
	if fn != nil {
		fn(code)
	}
}

func selectDevice(name string) {
	mu.Lock()
	deviceSel = name
	fn := deviceCb
	mu.Unlock()
	if fn != nil {
		fn(name)
	}
}

func markReady() {
	mu.Lock()
	ready = true
	s := state
	mu.Unlock()
	showState(s)
}

// Done is closed when the user picks Quit.
func Done() <-chan struct{} { return quitCh }

func Quit() {
	closeOnce.Do(func() { close(quitCh) })
}
