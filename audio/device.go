package audio

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrSelectionAborted is returned when the picker is left with Ctrl+C or q.
var ErrSelectionAborted = errors.New("device selection aborted")

// picker is the cursor over the device list; keys move it.
type picker struct {
	devices []DeviceInfo
	cursor  int
}

type pickResult int

const (
	pickNone pickResult = iota
	pickChosen
	pickAborted
)

// key applies one read from the raw terminal.
func (p *picker) key(in []byte) pickResult {
	switch string(in) {
	case "\r":
		return pickChosen
	case "\x03", "q": // Ctrl+C
		return pickAborted
	case "j", "\x1b[B":
		p.cursor = min(p.cursor+1, len(p.devices)-1)
	case "k", "\x1b[A":
		p.cursor = max(p.cursor-1, 0)
	}
	return pickNone
}

func (p *picker) render() string {
	var b strings.Builder
	b.WriteString("\r\x1b[J")
	b.WriteString("Select dictation microphone (↑/↓, Enter to confirm, q to cancel):\r\n\r\n")
	for i, d := range p.devices {
		btTag := ""
		if IsBluetooth(d.Name) {
			btTag = " \x1b[33m[⚠ Lower audio quality]\x1b[0m"
		}
		if i == p.cursor {
			fmt.Fprintf(&b, "  \x1b[1;36m▶ %s%s\x1b[0m\r\n", d.Name, btTag)
		} else {
			fmt.Fprintf(&b, "    %s%s\r\n", d.Name, btTag)
		}
	}
	return b.String()
}

// SelectDevice presents an interactive device picker and returns the selected device.
// If only one device is available, it returns that device without prompting.
func SelectDevice(ctx Context) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: enumerating devices: %v", ErrDevice, err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("%w: no capture devices found", ErrDevice)
	}
	if len(devices) == 1 {
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	p := &picker{devices: devices}
	fmt.Print(p.render())
	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
		switch p.key(buf[:n]) {
		case pickChosen:
			fmt.Print("\r\n")
			return &devices[p.cursor], nil
		case pickAborted:
			fmt.Print("\r\n")
			return nil, ErrSelectionAborted
		}
		fmt.Printf("\x1b[%dA", len(devices)+2)
		fmt.Print(p.render())
	}
}
