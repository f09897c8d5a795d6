//go:build !linux

package beep

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"dictate/log"
)

var (
	initOnce sync.Once
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device

	// read from the malgo callback
	current atomic.Pointer[[]byte]
	pos     atomic.Uint32
	playMu  sync.Mutex
)

func initDevice() error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	var err error
	device, err = malgo.InitDevice(malgoCtx.Context, config, malgo.DeviceCallbacks{Data: fill})
	return err
}

func initPlayback() {
	var err error
	malgoCtx, err = malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		log.Warnf("beep: malgo context: %v", err)
		return
	}
	if err := initDevice(); err != nil {
		log.Warnf("beep: malgo device: %v", err)
		malgoCtx.Uninit()
		malgoCtx = nil
	}
}

func fill(out, _ []byte, frameCount uint32) {
	buf := current.Load()
	want := frameCount * 2
	var n uint32
	if buf != nil {
		p := pos.Load()
		if rest := uint32(len(*buf)) - p; rest > 0 {
			n = min(want, rest)
			copy(out[:n], (*buf)[p:p+n])
			pos.Store(p + n)
		} else {
			current.Store(nil)
		}
	}
	clear(out[n:want])
}

func play(c Cue, samples []int16) {
	initOnce.Do(initPlayback)
	if malgoCtx == nil || len(samples) == 0 {
		return
	}

	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}

	playMu.Lock()
	defer playMu.Unlock()

	device.Stop()
	pos.Store(0)
	current.Store(&data)

	if err := device.Start(); err != nil {
		// device goes stale across sleep/wake on macOS
		device.Uninit()
		if err := initDevice(); err != nil {
			log.Warnf("beep %s: reinit: %v", c, err)
			current.Store(nil)
			return
		}
		if err := device.Start(); err != nil {
			log.Warnf("beep %s: start: %v", c, err)
			current.Store(nil)
		}
	}
}
