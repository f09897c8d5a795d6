//go:build !windows

package doctor

import "os/exec"

// resetTerminal undoes raw mode left behind by the device picker or the
// hotkey listener.
func resetTerminal() {
	exec.Command("stty", "sane").Run()
}
