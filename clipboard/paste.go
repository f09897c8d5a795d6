package clipboard

import (
	"runtime"
	"sync"
	"time"

	"github.com/micmonay/keybd_event"
)

var (
	kb     keybd_event.KeyBonding
	kbOnce sync.Once
	kbErr  error
)

// Init prepares the virtual keyboard. On Linux the uinput device needs a
// moment before the desktop picks it up, so call this early.
func Init() error {
	kbOnce.Do(func() {
		kb, kbErr = keybd_event.NewKeyBonding()
		if kbErr == nil && runtime.GOOS == "linux" {
			time.Sleep(2 * time.Second)
		}
	})
	return kbErr
}

// Paste sends Cmd+V on macOS and Ctrl+V elsewhere.
func Paste() error {
	if err := Init(); err != nil {
		return err
	}
	kb.SetKeys(keybd_event.VK_V)
	if useSuper(runtime.GOOS) {
		kb.HasSuper(true)
	} else {
		kb.HasCTRL(true)
	}
	return kb.Launching()
}

// Type copies text to the clipboard and pastes it.
func Type(text string) error {
	if err := Copy(text); err != nil {
		return err
	}
	return Paste()
}

func useSuper(goos string) bool {
	return goos == "darwin"
}

func PasteShortcut() string {
	if useSuper(runtime.GOOS) {
		return "Cmd+V"
	}
	return "Ctrl+V"
}
