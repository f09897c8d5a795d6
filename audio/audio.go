package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrDevice covers a missing, busy or denied microphone.
var ErrDevice = errors.New("microphone unavailable")

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]",
}

func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

// Open creates and starts a capture on device (nil means system default)
// delivering to cb. Every failure wraps ErrDevice.
func Open(ctx Context, device *DeviceInfo, config CaptureConfig, cb DataCallback) (CaptureDevice, error) {
	capture, err := ctx.NewCapture(device, config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDevice, err)
	}
	capture.SetCallback(cb)
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		return nil, fmt.Errorf("%w: %v", ErrDevice, err)
	}
	return capture, nil
}

// FindDevice returns the first capture device whose name contains name,
// case-insensitively.
func FindDevice(ctx Context, name string) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDevice, err)
	}
	lower := strings.ToLower(name)
	for i := range devices {
		if strings.Contains(strings.ToLower(devices[i].Name), lower) {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no device matching %q", ErrDevice, name)
}

// amplify scales samples by gain, clipping at the int16 range, and packs
// them as 16-bit little-endian PCM.
func amplify(samples []int16, gain int32) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := min(max(int32(s)*gain, math.MinInt16), math.MaxInt16)
		binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(v)))
	}
	return data
}

// Level is the RMS of 16-bit little-endian samples, in 0..1.
func Level(data []byte) float64 {
	if len(data) < 2 {
		return 0
	}
	var sumSquares float64
	for i := 0; i+1 < len(data); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(data[i:]))
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}
	return math.Sqrt(sumSquares / float64(len(data)/2))
}
