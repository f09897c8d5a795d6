//go:build !gui

package tray

import "github.com/energye/systray"

var (
	mAutoPaste *systray.MenuItem
	langItems  []*systray.MenuItem

	externalLoop = systray.RunWithExternalLoop
)

// Init starts the tray (on the main thread where the platform needs it)
// and returns once it is up.
// The returned channel closes when the user picks Quit.
func Init() <-chan struct{} {
	start, _ := externalLoop(onReady, onExit)
	onMainThread(start)
	return quitCh
}

func setIcon(png []byte) {
	systray.SetIcon(png)
}

func setTooltip(msg string) {
	systray.SetTooltip(msg)
}

func onReady() {
	systray.SetTitle(appName)
	systray.SetOnClick(func(systray.IMenu) { click() })
	systray.SetOnDClick(func(systray.IMenu) { showWindow() })
	systray.SetOnRClick(func(menu systray.IMenu) { menu.ShowMenu() })

	mShow := systray.AddMenuItem("Show Window", "Show the dictate window")
	mShow.Click(showWindow)

	systray.AddSeparator()
	addSettings(systray.AddMenuItem("Settings", "Settings"))

	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit dictate")
	mQuit.Click(Quit)
	createMenu()

	markReady()
}

func addSettings(parent *systray.MenuItem) {
	mu.Lock()
	names, selected := deviceNames, deviceSel
	pasteOn, lang := autoPasteOn, langCode
	mu.Unlock()

	if len(names) > 0 {
		mDevices := parent.AddSubMenuItem("Microphone", "Select input device")
		items := make([]*systray.MenuItem, 0, len(names))
		for _, name := range names {
			item := mDevices.AddSubMenuItemCheckbox(name, name, name == selected)
			item.Click(func() {
				for _, it := range items {
					it.Uncheck()
				}
				item.Check()
				selectDevice(name)
			})
			items = append(items, item)
		}
	}

	mAutoPaste = parent.AddSubMenuItemCheckbox("Auto-paste", "Paste the transcript after copying", pasteOn)
	mAutoPaste.Click(func() {
		if toggleAutoPaste() {
			mAutoPaste.Check()
		} else {
			mAutoPaste.Uncheck()
		}
	})

	mLanguage := parent.AddSubMenuItem("Language", "Select transcription language")
	langItems = make([]*systray.MenuItem, 0, len(Languages))
	for i, l := range Languages {
		item := mLanguage.AddSubMenuItemCheckbox(l.Label, l.Label, l.Code == lang)
		item.Click(func() {
			for j, it := range langItems {
				if j == i {
					it.Check()
				} else {
					it.Uncheck()
				}
			}
			selectLanguage(Languages[i].Code)
		})
		langItems = append(langItems, item)
	}
}

func onExit() {
	Quit()
}
