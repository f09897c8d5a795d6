package hotkey

import (
	"sync"
	"sync/atomic"
	"time"
)

// Hybrid turns raw key events into start/stop signals. A press starts
// recording at once; if the key is held past longPress the release stops
// it (push to talk), otherwise the next press-and-release does (toggle).
type Hybrid struct {
	startCh chan struct{}
	stopCh  chan struct{}
	resetCh chan struct{}
	done    chan struct{}
	once    sync.Once
	toggle  atomic.Bool
}

func NewHybrid(hk Hotkey, longPress time.Duration) *Hybrid {
	h := &Hybrid{
		startCh: make(chan struct{}, 1),
		stopCh:  make(chan struct{}, 1),
		resetCh: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go h.run(hk, longPress)
	return h
}

func (h *Hybrid) Start() <-chan struct{} { return h.startCh }

func (h *Hybrid) StopChan() <-chan struct{} { return h.stopCh }

// IsToggle reports whether the current recording was started by a tap.
func (h *Hybrid) IsToggle() bool { return h.toggle.Load() }

// Reset tells a tap-started recording that it was stopped some other way
// (tray, window), so the next press starts again instead of stopping.
func (h *Hybrid) Reset() {
	select {
	case h.resetCh <- struct{}{}:
	default:
	}
}

func (h *Hybrid) Close() {
	h.once.Do(func() { close(h.done) })
}

func (h *Hybrid) emit(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (h *Hybrid) run(hk Hotkey, longPress time.Duration) {
	for {
		select {
		case <-hk.Keydown():
		case <-h.resetCh:
			continue
		case <-h.done:
			return
		}

		// resets queued before this press belong to the previous recording
		select {
		case <-h.resetCh:
		default:
		}
		h.toggle.Store(false)
		h.emit(h.startCh)

		timer := time.NewTimer(longPress)
		select {
		case <-timer.C:
			select {
			case <-hk.Keyup():
				h.emit(h.stopCh)
			case <-h.done:
				return
			}
			continue
		case <-hk.Keyup():
			timer.Stop()
			h.toggle.Store(true)
		case <-h.done:
			timer.Stop()
			return
		}

		select {
		case <-hk.Keydown():
		case <-h.resetCh:
			h.toggle.Store(false)
			continue
		case <-h.done:
			return
		}
		select {
		case <-hk.Keyup():
		case <-h.done:
			return
		}
		h.emit(h.stopCh)
	}
}
