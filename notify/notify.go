// Package notify shows desktop notifications through beeep.
package notify

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/gen2brain/beeep"
)

var (
	mu       sync.Mutex
	disabled bool
	iconPath string

	send = func(title, body, icon string) error {
		return beeep.Notify(title, body, icon)
	}
)

// Init names the sender and stores icon (PNG) in a temp file, since some
// platforms only take an icon path.
func Init(appName string, icon []byte) {
	beeep.AppName = appName
	if len(icon) == 0 {
		return
	}
	p := filepath.Join(os.TempDir(), appName+"-notify.png")
	if err := os.WriteFile(p, icon, 0644); err != nil {
		return
	}
	mu.Lock()
	iconPath = p
	mu.Unlock()
}

func SetEnabled(on bool) {
	mu.Lock()
	disabled = !on
	mu.Unlock()
}

// Notify shows title and body. A disabled notifier reports success.
func Notify(title, body string) error {
	mu.Lock()
	off, icon := disabled, iconPath
	mu.Unlock()
	if off {
		return nil
	}
	return send(title, body, icon)
}
