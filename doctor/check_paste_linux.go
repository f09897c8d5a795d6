package doctor

import (
	"fmt"

	"dictate/clipboard"
)

// checkClipboardPaste only needs uinput; auto-paste is optional.
func checkClipboardPaste() bool {
	header(7, "Auto-paste keystroke (uinput init)")

	if err := clipboard.Init(); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		fmt.Println("  Fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput")
		return false
	}

	fmt.Printf("  PASS: uinput device initialized, auto-paste sends %s\n", clipboard.PasteShortcut())
	return true
}
