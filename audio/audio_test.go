package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func TestIsBluetooth(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"AirPods Pro", true},
		{"WH-1000XM4", true},
		{"Built-in Microphone", false},
		{"USB Audio Device", false},
		{"Headset (BT)", true},
	}
	for _, tt := range tests {
		if got := IsBluetooth(tt.name); got != tt.want {
			t.Errorf("IsBluetooth(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestLevel(t *testing.T) {
	if got := Level(nil); got != 0 {
		t.Errorf("Level(nil) = %v", got)
	}
	if got := Level(make([]byte, 64)); got != 0 {
		t.Errorf("Level(silence) = %v", got)
	}

	full := make([]byte, 4)
	binary.LittleEndian.PutUint16(full[0:], uint16(0x8000)) // -32768
	binary.LittleEndian.PutUint16(full[2:], uint16(0x8000))
	if got := Level(full); math.Abs(got-1) > 1e-9 {
		t.Errorf("Level(full scale) = %v, want 1", got)
	}
}

func TestAmplifyClips(t *testing.T) {
	data := amplify([]int16{100, -100, 5000, -5000}, 8)
	want := []int16{800, -800, math.MaxInt16, math.MinInt16}
	for i, w := range want {
		if got := int16(binary.LittleEndian.Uint16(data[i*2:])); got != w {
			t.Errorf("sample %d = %d, want %d", i, got, w)
		}
	}
}

type failingContext struct{ err error }

func (c failingContext) Devices() ([]DeviceInfo, error) { return nil, c.err }
func (c failingContext) Close()                         {}
func (c failingContext) NewCapture(*DeviceInfo, CaptureConfig) (CaptureDevice, error) {
	return nil, c.err
}

func TestOpenWrapsDeviceError(t *testing.T) {
	_, err := Open(failingContext{errors.New("permission denied")}, nil, CaptureConfig{}, func([]byte, uint32) {})
	if !errors.Is(err, ErrDevice) {
		t.Fatalf("err = %v, want ErrDevice", err)
	}
	if _, err := FindDevice(failingContext{errors.New("x")}, "mic"); !errors.Is(err, ErrDevice) {
		t.Errorf("FindDevice err = %v, want ErrDevice", err)
	}
}

func TestFindDevice(t *testing.T) {
	ctx := NewFakeContextPCM(nil, false)
	d, err := FindDevice(ctx, "FAK")
	if err != nil || d.Name != "fake" {
		t.Fatalf("FindDevice = %v, %v", d, err)
	}
	if _, err := FindDevice(ctx, "usb"); !errors.Is(err, ErrDevice) {
		t.Errorf("err = %v, want ErrDevice", err)
	}
}

func writeWAV(t *testing.T, rate, channels int, samples []int) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "in.wav")
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestNewFakeContextStereoTakesFirstChannel(t *testing.T) {
	p := writeWAV(t, 16000, 2, []int{100, -1, 200, -1, -300, -1})

	ctx, err := NewFakeContext(p, false)
	if err != nil {
		t.Fatal(err)
	}
	want := []int16{100, 200, -300}
	if len(ctx.pcm) != len(want)*2 {
		t.Fatalf("pcm len = %d, want %d", len(ctx.pcm), len(want)*2)
	}
	for i, w := range want {
		if got := int16(binary.LittleEndian.Uint16(ctx.pcm[i*2:])); got != w {
			t.Errorf("sample %d = %d, want %d", i, got, w)
		}
	}
}

func TestNewFakeContextRejectsSampleRate(t *testing.T) {
	p := writeWAV(t, 44100, 1, []int{1, 2, 3})
	if _, err := NewFakeContext(p, false); err == nil {
		t.Error("expected error for 44.1 kHz input")
	}
}

func TestFakeCaptureDeliversFile(t *testing.T) {
	pcm := make([]byte, fakeFrameSize*fakeBytesPerFrame*3+10)
	for i := range pcm {
		pcm[i] = byte(i)
	}
	ctx := NewFakeContextPCM(pcm, false)

	var mu sync.Mutex
	var got []byte
	capture, err := Open(ctx, nil, CaptureConfig{SampleRate: 16000, Channels: 1}, func(data []byte, _ uint32) {
		mu.Lock()
		got = append(got, data...)
		mu.Unlock()
	})
	if err != nil {
		t.Fatal(err)
	}

	select {
	case <-capture.(*FakeCapture).AudioDone():
	case <-time.After(time.Second):
		t.Fatal("file never delivered")
	}
	capture.Stop()
	capture.ClearCallback()
	capture.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(got) < len(pcm) {
		t.Fatalf("delivered %d bytes, want at least %d", len(got), len(pcm))
	}
	for i := range pcm {
		if got[i] != pcm[i] {
			t.Fatalf("byte %d = %d, want %d", i, got[i], pcm[i])
		}
	}
}

func TestPickerKeys(t *testing.T) {
	p := &picker{devices: []DeviceInfo{{Name: "a"}, {Name: "b"}, {Name: "AirPods Pro"}}}
	steps := []struct {
		in     string
		want   pickResult
		cursor int
	}{
		{"k", pickNone, 0},
		{"\x1b[B", pickNone, 1},
		{"j", pickNone, 2},
		{"j", pickNone, 2},
		{"\x1b[A", pickNone, 1},
		{"x", pickNone, 1},
		{"\r", pickChosen, 1},
		{"q", pickAborted, 1},
	}
	for _, s := range steps {
		if got := p.key([]byte(s.in)); got != s.want || p.cursor != s.cursor {
			t.Errorf("key(%q) = %v cursor %d, want %v cursor %d", s.in, got, p.cursor, s.want, s.cursor)
		}
	}
	if out := p.render(); !strings.Contains(out, "▶ b") || !strings.Contains(out, "Lower audio quality") {
		t.Errorf("render missing cursor or bluetooth tag:\n%s", out)
	}
}
