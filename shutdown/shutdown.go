// Package shutdown delivers the signals that should end the process.
package shutdown

import "os"

// Channel returns a channel that receives the platform's termination
// signals.
func Channel() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	Notify(ch)
	return ch
}
