package doctor

import (
	"fmt"
	"time"

	"dictate/clipboard"
)

const clipboardTimeout = 3 * time.Second

// checkClipboardCopy is the step the workflow depends on after every job:
// the transcript must land on the clipboard.
func checkClipboardCopy() bool {
	header(6, "Clipboard copy")

	type result struct {
		msg string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		msg, err := clipboard.Verify()
		ch <- result{msg, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			fmt.Printf("  FAIL: %v\n", res.err)
			fmt.Println("  The transcript will only be shown, not copied.")
			return false
		}
		fmt.Printf("  PASS: %s\n", res.msg)
		return true
	case <-time.After(clipboardTimeout):
		fmt.Printf("  FAIL: clipboard timed out after %s (clipboard tool hung, compositor not accessible?)\n", clipboardTimeout)
		return false
	}
}
