// Package beep plays the short audio cues around a dictation: a high tick
// when recording starts, a lower tick when it stops, a double beep on error.
package beep

import (
	"math"
	"sync/atomic"
)

type Cue int

const (
	Start Cue = iota
	Stop
	Error
)

func (c Cue) String() string {
	switch c {
	case Start:
		return "start"
	case Stop:
		return "stop"
	case Error:
		return "error"
	}
	return "unknown"
}

const sampleRate = 44100

type tone struct {
	freq     float64
	duration float64
	volume   float64
	decay    float64
	repeat   bool // double beep with a 50ms gap
}

var tones = map[Cue]tone{
	Start: {freq: 1200, duration: 0.2, volume: 0.5, decay: 60},
	Stop:  {freq: 900, duration: 0.2, volume: 0.5, decay: 40},
	Error: {freq: 350, duration: 0.08, volume: 0.6, decay: 30, repeat: true},
}

var disabled atomic.Bool

func SetEnabled(on bool) { disabled.Store(!on) }

func Enabled() bool { return !disabled.Load() }

// Play starts the cue and returns without waiting for it to finish.
func Play(c Cue) {
	if disabled.Load() {
		return
	}
	t, ok := tones[c]
	if !ok {
		return
	}
	go play(c, samples(t))
}

// samples renders a tone as mono signed 16-bit PCM.
func samples(t tone) []int16 {
	n := int(float64(sampleRate) * t.duration)
	out := make([]int16, n)
	for i := range n {
		x := float64(i) / sampleRate
		envelope := math.Exp(-x * t.decay)
		out[i] = int16(math.Sin(2*math.Pi*t.freq*x) * 32767 * t.volume * envelope)
	}
	if !t.repeat {
		return out
	}
	gap := make([]int16, sampleRate*50/1000)
	double := make([]int16, 0, 2*n+len(gap))
	double = append(double, out...)
	double = append(double, gap...)
	return append(double, out...)
}
