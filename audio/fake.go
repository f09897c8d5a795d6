package audio

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2 // 16-bit mono
	fakeSampleRate    = 16000
)

// FakeContext replays a WAV file as if it were a microphone.
type FakeContext struct {
	pcm      []byte
	realtime bool
}

// NewFakeContext loads a 16 kHz WAV. Extra channels are dropped and
// 24/32-bit samples are narrowed to 16 bits.
func NewFakeContext(wavPath string, realtime bool) (*FakeContext, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%s: not a valid WAV file", wavPath)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", wavPath, err)
	}
	if buf.Format.SampleRate != fakeSampleRate {
		return nil, fmt.Errorf("%s: sample rate %d, want %d", wavPath, buf.Format.SampleRate, fakeSampleRate)
	}
	pcm, err := pcmFromBuffer(buf, int(d.BitDepth))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", wavPath, err)
	}
	return NewFakeContextPCM(pcm, realtime), nil
}

// NewFakeContextPCM replays raw 16-bit mono PCM.
func NewFakeContextPCM(pcm []byte, realtime bool) *FakeContext {
	return &FakeContext{pcm: pcm, realtime: realtime}
}

func pcmFromBuffer(buf *goaudio.IntBuffer, bitDepth int) ([]byte, error) {
	var shift uint
	switch bitDepth {
	case 16:
	case 24:
		shift = 8
	case 32:
		shift = 16
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
	channels := max(buf.Format.NumChannels, 1)
	frames := len(buf.Data) / channels
	pcm := make([]byte, frames*2)
	for i := range frames {
		s := buf.Data[i*channels] >> shift
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(s)))
	}
	return pcm, nil
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	return &FakeCapture{pcm: f.pcm, realtime: f.realtime, audioDone: make(chan struct{})}, nil
}

// FakeCapture delivers the whole file and then silence until stopped.
// In realtime mode chunks are paced at the capture sample rate.
type FakeCapture struct {
	pcm       []byte
	realtime  bool
	audioDone chan struct{}

	mu       sync.Mutex
	cb       DataCallback
	stopCh   chan struct{}
	feedDone chan struct{}
}

// AudioDone is closed once the file has been fully delivered.
func (f *FakeCapture) AudioDone() <-chan struct{} { return f.audioDone }

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) callback() DataCallback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

func (f *FakeCapture) feedChunk(cb DataCallback, pos, chunkBytes int) int {
	end := min(pos+chunkBytes, len(f.pcm))
	chunk := make([]byte, end-pos)
	copy(chunk, f.pcm[pos:end])
	cb(chunk, uint32(len(chunk)/fakeBytesPerFrame))
	return end
}

func (f *FakeCapture) Start() error {
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})

	chunkBytes := fakeFrameSize * fakeBytesPerFrame
	interval := time.Millisecond
	if f.realtime {
		interval = time.Duration(fakeFrameSize) * time.Second / fakeSampleRate
	}

	if !f.realtime {
		if cb := f.callback(); cb != nil {
			for pos := 0; pos < len(f.pcm); {
				pos = f.feedChunk(cb, pos, chunkBytes)
			}
		}
		close(f.audioDone)
	}

	go func() {
		defer close(f.feedDone)
		pos := len(f.pcm)
		if f.realtime {
			pos = 0
		}
		silence := make([]byte, chunkBytes)
		finished := !f.realtime

		for {
			select {
			case <-f.stopCh:
				return
			case <-time.After(interval):
			}

			cb := f.callback()
			if cb == nil {
				continue
			}
			if pos < len(f.pcm) {
				pos = f.feedChunk(cb, pos, chunkBytes)
				continue
			}
			if !finished {
				finished = true
				close(f.audioDone)
			}
			cb(silence, fakeFrameSize)
		}
	}()

	return nil
}

func (f *FakeCapture) Stop() {
	if f.stopCh == nil {
		return
	}
	select {
	case <-f.stopCh:
	default:
		close(f.stopCh)
	}
	<-f.feedDone
}

func (f *FakeCapture) Close() {
	f.Stop()
}
