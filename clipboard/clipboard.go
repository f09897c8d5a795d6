// Package clipboard writes transcripts to the system clipboard and can
// synthesize the platform paste shortcut into the focused window.
package clipboard

import (
	"fmt"

	cb "github.com/atotto/clipboard"
)

func Copy(text string) error {
	if cb.Unsupported {
		return fmt.Errorf("clipboard: no clipboard utility available")
	}
	return cb.WriteAll(text)
}

func Read() (string, error) {
	return cb.ReadAll()
}

// Verify writes a marker string, reads it back and restores the previous
// contents.
func Verify() (string, error) {
	prev, _ := Read()
	const marker = "dictate clipboard check"
	if err := Copy(marker); err != nil {
		return "", err
	}
	got, err := Read()
	Copy(prev)
	if err != nil {
		return "", err
	}
	if got != marker {
		return "", fmt.Errorf("clipboard read back %q", got)
	}
	return "clipboard round trip OK", nil
}
