//go:build !linux

package doctor

import (
	"fmt"

	"dictate/clipboard"
)

func checkClipboardPaste() bool {
	header(7, "Auto-paste keystroke")

	if err := clipboard.Init(); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		fmt.Println("  Grant accessibility permission to the terminal running dictate.")
		return false
	}

	fmt.Printf("  PASS: keystroke output ready, auto-paste sends %s\n", clipboard.PasteShortcut())
	return true
}
