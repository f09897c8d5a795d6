package hotkey

import (
	"math/bits"
	"strconv"
	"strings"
)

// Linux input event codes for the combo keys.
const (
	keyLCtrl  = 29
	keyRCtrl  = 97
	keyLShift = 42
	keyRShift = 54
	keySpace  = 57
)

// Key event values.
const (
	keyRelease = 0
	keyPress   = 1
	keyRepeat  = 2
)

// comboState follows modifier and space state across raw key events and
// reports edges of the whole combo.
type comboState struct {
	ctrl, shift int // held count, both sides of the keyboard
	active      bool
}

// feed applies one key event. down is true on the event that completes the
// combo, up on the space release that ends it.
func (c *comboState) feed(code uint16, value int32) (down, up bool) {
	if value == keyRepeat {
		return false, false
	}
	pressed := value == keyPress
	switch code {
	case keyLCtrl, keyRCtrl:
		c.ctrl = held(c.ctrl, pressed)
	case keyLShift, keyRShift:
		c.shift = held(c.shift, pressed)
	case keySpace:
		switch {
		case pressed && !c.active && c.ctrl > 0 && c.shift > 0:
			c.active = true
			return true, false
		case !pressed && c.active:
			c.active = false
			return false, true
		}
	}
	return false, false
}

func held(n int, pressed bool) int {
	if pressed {
		return min(n+1, 2)
	}
	return max(n-1, 0)
}

// hasKey reports whether a sysfs capabilities/key bitmap advertises code.
// The bitmap is space separated hex words, most significant word first.
func hasKey(caps string, code int) bool {
	words := strings.Fields(caps)
	idx := code / bits.UintSize
	if idx >= len(words) {
		return false
	}
	w, err := strconv.ParseUint(words[len(words)-1-idx], 16, bits.UintSize)
	if err != nil {
		return false
	}
	return w&(1<<(code%bits.UintSize)) != 0
}
