package main

import (
	"context"
	"slices"
	"sync"
	"time"

	"dictate/audio"
	"dictate/encoder"
	"dictate/log"
)

var captureConfig = audio.CaptureConfig{
	SampleRate: encoder.SampleRate,
	Channels:   encoder.Channels,
}

// microphone remembers which input to open for the next recording. Each
// recording opens its own capture; nil selects the system default.
type microphone struct {
	ctx audio.Context

	mu        sync.Mutex
	selected  *audio.DeviceInfo
	preferred string // the user's choice, reconnected when it reappears
	onChange  func(name string)
}

func newMicrophone(ctx audio.Context, name string) *microphone {
	m := &microphone{ctx: ctx, preferred: name}
	if name == "" {
		return m
	}
	dev, err := audio.FindDevice(ctx, name)
	if err != nil {
		log.Warnf("device %q not found, using system default: %v", name, err)
		return m
	}
	m.selected = dev
	return m
}

// Acquire is the workflow's microphone: it opens and starts a capture on
// the selected device.
func (m *microphone) Acquire(cb audio.DataCallback) (audio.CaptureDevice, error) {
	m.mu.Lock()
	dev := m.selected
	m.mu.Unlock()
	return audio.Open(m.ctx, dev, captureConfig, cb)
}

func (m *microphone) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return deviceLabel(m.selected)
}

// OnChange is told the new device label after every switch.
func (m *microphone) OnChange(fn func(name string)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Names lists capture devices for the tray menu.
func (m *microphone) Names() []string {
	devices, err := m.ctx.Devices()
	if err != nil {
		log.Warnf("device enumeration failed: %v", err)
		return nil
	}
	names := make([]string, len(devices))
	for i := range devices {
		names[i] = devices[i].Name
	}
	return names
}

// Select switches to the named device for the next recording; "" means
// system default.
func (m *microphone) Select(name string) {
	m.mu.Lock()
	m.preferred = name
	m.mu.Unlock()
	if name == "" {
		m.apply(nil)
		return
	}
	dev, err := audio.FindDevice(m.ctx, name)
	if err != nil {
		log.Warnf("device not found: %s", name)
		return
	}
	m.apply(dev)
}

func (m *microphone) apply(dev *audio.DeviceInfo) {
	label := deviceLabel(dev)
	log.Info("device_switch: " + label)
	m.mu.Lock()
	m.selected = dev
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn(label)
	}
}

// watch polls for hotplug: a vanished device falls back to the default,
// and the preferred device is picked up again when it returns.
func (m *microphone) watch(ctx context.Context, every time.Duration) {
	var last []string
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		names := m.Names()
		if names == nil || slices.Equal(last, names) {
			continue
		}
		last = names
		m.reconcile(names)
	}
}

func (m *microphone) reconcile(names []string) {
	m.mu.Lock()
	selName, preferred := "", m.preferred
	if m.selected != nil {
		selName = m.selected.Name
	}
	m.mu.Unlock()

	switch {
	case selName != "" && !slices.Contains(names, selName):
		log.Info("device_disconnected: " + selName)
		m.apply(nil)
	case selName == "" && preferred != "" && slices.Contains(names, preferred):
		log.Info("device_reconnected: " + preferred)
		if dev, err := audio.FindDevice(m.ctx, preferred); err == nil {
			m.apply(dev)
		}
	}
}

func deviceLabel(dev *audio.DeviceInfo) string {
	if dev == nil {
		return "system default"
	}
	if audio.IsBluetooth(dev.Name) {
		return dev.Name + " (BT!)"
	}
	return dev.Name
}
