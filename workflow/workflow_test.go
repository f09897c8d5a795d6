package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dictate/assemblyai"
	"dictate/audio"
	"dictate/bridge"
	"dictate/config"
)

type fakeHost struct {
	mu     sync.Mutex
	env    map[string]string
	copied []string
	states []bridge.TaskbarState
	notes  []bridge.Notification
}

func (h *fakeHost) GetEnvVar(name string) (string, bool) {
	v, ok := h.env[name]
	return v, ok
}

func (h *fakeHost) CopyToClipboard(text string) error {
	h.mu.Lock()
	h.copied = append(h.copied, text)
	h.mu.Unlock()
	return nil
}

func (h *fakeHost) ToggleAlwaysOnTop() bool { return false }

func (h *fakeHost) SetTaskbarState(s bridge.TaskbarState) error {
	h.mu.Lock()
	h.states = append(h.states, s)
	h.mu.Unlock()
	return nil
}

func (h *fakeHost) ShowNotification(n bridge.Notification) error {
	h.mu.Lock()
	h.notes = append(h.notes, n)
	h.mu.Unlock()
	return nil
}

func (h *fakeHost) snapshot() (copied []string, states []bridge.TaskbarState, notes []bridge.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.copied...),
		append([]bridge.TaskbarState(nil), h.states...),
		append([]bridge.Notification(nil), h.notes...)
}

type fakeAPI struct {
	mu          sync.Mutex
	uploadResp  string
	submitResp  string
	pollResp    string
	uploads     int
	submits     int
	audioURLs   []string
	pollPaths   []string
	pollsServed atomic.Int32

	gate     chan struct{}
	gateOnce sync.Once
}

func (f *fakeAPI) release() {
	if f.gate != nil {
		f.gateOnce.Do(func() { close(f.gate) })
	}
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/upload", func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		f.mu.Lock()
		f.uploads++
		resp := f.uploadResp
		f.mu.Unlock()
		io.WriteString(w, resp)
	})
	mux.HandleFunc("POST /v2/transcript", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			AudioURL string `json:"audio_url"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.submits++
		f.audioURLs = append(f.audioURLs, body.AudioURL)
		resp := f.submitResp
		f.mu.Unlock()
		io.WriteString(w, resp)
	})
	mux.HandleFunc("GET /v2/transcript/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.pollPaths = append(f.pollPaths, r.URL.Path)
		gate := f.gate
		f.mu.Unlock()
		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
		f.mu.Lock()
		resp := f.pollResp
		f.mu.Unlock()
		io.WriteString(w, resp)
		f.pollsServed.Add(1)
	})
	return mux
}

type harness struct {
	t        *testing.T
	host     *fakeHost
	api      *fakeAPI
	wf       *Workflow
	acquires atomic.Int32
	closed   atomic.Int32

	mu       sync.Mutex
	statuses []Status
	pastes   int
}

type countingCapture struct {
	audio.CaptureDevice
	h *harness
}

func (c countingCapture) Close() {
	c.h.closed.Add(1)
	c.CaptureDevice.Close()
}

func newHarness(t *testing.T, api *fakeAPI, tweak func(*Options)) *harness {
	t.Helper()
	if api.uploadResp == "" {
		api.uploadResp = `{"upload_url":"X"}`
	}
	if api.submitResp == "" {
		api.submitResp = `{"id":"J","status":"queued"}`
	}
	if api.pollResp == "" {
		api.pollResp = `{"id":"J","status":"completed","text":"hello world"}`
	}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	h := &harness{
		t:    t,
		host: &fakeHost{env: map[string]string{config.APIKeyEnv: "test-key"}},
		api:  api,
	}
	mic := audio.NewFakeContextPCM(make([]byte, 3200), false)

	opts := Options{
		Acquire: func(cb audio.DataCallback) (audio.CaptureDevice, error) {
			h.acquires.Add(1)
			c, err := audio.Open(mic, nil, audio.CaptureConfig{SampleRate: 16000, Channels: 1}, cb)
			if err != nil {
				return nil, err
			}
			return countingCapture{c, h}, nil
		},
		NewAPI: func(key string) API {
			return assemblyai.New(key, srv.URL, 5*time.Millisecond)
		},
		Paste: func() error {
			h.mu.Lock()
			h.pastes++
			h.mu.Unlock()
			return nil
		},
		OnStatus: func(s Status) {
			h.mu.Lock()
			h.statuses = append(h.statuses, s)
			h.mu.Unlock()
		},
	}
	if tweak != nil {
		tweak(&opts)
	}

	b := bridge.New()
	opts.Bridge = b
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan struct{})
	go func() {
		b.Serve(ctx, h.host)
		close(served)
	}()

	h.wf = New(opts)
	ran := make(chan struct{})
	go func() {
		h.wf.Run(ctx)
		close(ran)
	}()
	t.Cleanup(func() {
		cancel()
		api.release()
		<-ran
		<-served
	})
	return h
}

// settle waits until every event queued so far has been handled. Only use
// it while not recording: it is a Stop.
func (h *harness) settle() {
	h.wf.Stop()
}

func (h *harness) countText(text string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, s := range h.statuses {
		if s.Text == text {
			n++
		}
	}
	return n
}

func (h *harness) waitStatus(cond func(Status) bool) Status {
	h.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if s := h.wf.Status(); cond(s) {
			return s
		}
		time.Sleep(2 * time.Millisecond)
	}
	h.t.Fatalf("timed out; last status %+v", h.wf.Status())
	return Status{}
}

func (h *harness) waitText(text string) {
	h.t.Helper()
	h.waitStatus(func(s Status) bool { return s.Text == text })
}

func (h *harness) waitPollsServed(n int32) {
	h.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for h.api.pollsServed.Load() < n {
		if time.Now().After(deadline) {
			h.t.Fatalf("polls served = %d, want %d", h.api.pollsServed.Load(), n)
		}
		time.Sleep(2 * time.Millisecond)
	}
	// let the result reach the workflow goroutine
	time.Sleep(30 * time.Millisecond)
}

func (h *harness) record() {
	h.t.Helper()
	if err := h.wf.Start(); err != nil {
		h.t.Fatalf("Start: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		text string
		want Phase
	}{
		{StatusRecording, Listening},
		{StatusProcessing, Processing},
		{StatusUploading, Processing},
		{StatusTranscribing, Processing},
		{StatusReady, Idle},
		{StatusCancelled, Idle},
		{StatusCopied, Idle},
		{StatusComplete, Idle},
		{"Error: Upload failed", Idle},
		{"Microphone error: permission denied", Idle},
		{"Error: " + config.ErrMissingAPIKey.Error(), Idle},
		{"", Idle},
	}
	for _, tt := range tests {
		if got := ClassifyStatus(tt.text); got != tt.want {
			t.Errorf("ClassifyStatus(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}

func TestNextAction(t *testing.T) {
	for phase, want := range map[Phase]Action{
		Idle:       ActionStart,
		Listening:  ActionStop,
		Processing: ActionCancel,
	} {
		if got := NextAction(phase); got != want {
			t.Errorf("NextAction(%s) = %s, want %s", phase, got, want)
		}
	}
}

func TestPhaseTaskbarState(t *testing.T) {
	for phase, want := range map[Phase]bridge.TaskbarState{
		Idle:       bridge.Idle,
		Listening:  bridge.Listening,
		Processing: bridge.Processing,
	} {
		if got := phase.TaskbarState(); got != want {
			t.Errorf("%s.TaskbarState() = %s, want %s", phase, got, want)
		}
	}
}

func TestSuccessfulTranscription(t *testing.T) {
	h := newHarness(t, &fakeAPI{}, nil)

	h.record()
	if s := h.wf.Status(); s.Phase != Listening || s.Text != StatusRecording {
		t.Fatalf("after Start: %+v", s)
	}
	if err := h.wf.Stop(); err != nil {
		t.Fatal(err)
	}
	h.waitText(StatusCopied)
	h.settle()

	copied, states, notes := h.host.snapshot()
	if len(copied) != 1 || copied[0] != "hello world" {
		t.Errorf("clipboard = %q", copied)
	}
	if len(notes) != 1 || notes[0].Title != "Transcription Complete" ||
		notes[0].Body != "The transcription has been copied to your clipboard." {
		t.Errorf("notifications = %+v", notes)
	}
	if states[len(states)-1] != bridge.Idle {
		t.Errorf("final taskbar state = %s", states[len(states)-1])
	}

	h.api.mu.Lock()
	defer h.api.mu.Unlock()
	if h.api.uploads != 1 || h.api.submits != 1 {
		t.Errorf("uploads=%d submits=%d", h.api.uploads, h.api.submits)
	}
	if h.api.audioURLs[0] != "X" {
		t.Errorf("submitted audio_url %q, want X", h.api.audioURLs[0])
	}
	for _, p := range h.api.pollPaths {
		if p != "/v2/transcript/J" {
			t.Errorf("poll path %q", p)
		}
	}
	if h.closed.Load() != 1 {
		t.Errorf("capture closed %d times, want 1", h.closed.Load())
	}
}

func TestPollsUntilCompleted(t *testing.T) {
	api := &fakeAPI{pollResp: `{"id":"J","status":"processing"}`}
	h := newHarness(t, api, nil)

	h.record()
	h.wf.Stop()
	h.waitPollsServed(3)
	if s := h.wf.Status(); s.Phase != Processing {
		t.Fatalf("still polling, status = %+v", s)
	}

	api.mu.Lock()
	api.pollResp = `{"id":"J","status":"completed","text":"hello world"}`
	api.mu.Unlock()
	h.waitText(StatusCopied)
}

func TestStatusTextsMatchPhase(t *testing.T) {
	h := newHarness(t, &fakeAPI{}, nil)
	h.record()
	h.wf.Stop()
	h.waitText(StatusCopied)

	h.mu.Lock()
	defer h.mu.Unlock()
	want := []string{StatusReady, StatusRecording, StatusProcessing, StatusUploading, StatusTranscribing, StatusCopied}
	if len(h.statuses) != len(want) {
		t.Fatalf("statuses = %+v", h.statuses)
	}
	for i, s := range h.statuses {
		if s.Text != want[i] {
			t.Errorf("status %d = %q, want %q", i, s.Text, want[i])
		}
		if ClassifyStatus(s.Text) != s.Phase {
			t.Errorf("%q emitted with phase %s, classifies as %s", s.Text, s.Phase, ClassifyStatus(s.Text))
		}
	}
}

func TestEmptyTranscript(t *testing.T) {
	var transcript *string
	h := newHarness(t, &fakeAPI{pollResp: `{"id":"J","status":"completed","text":""}`}, func(o *Options) {
		o.OnTranscript = func(text string) { transcript = &text }
	})
	h.record()
	h.wf.Stop()
	h.waitText(StatusComplete)
	h.settle()

	copied, _, notes := h.host.snapshot()
	if len(copied) != 0 {
		t.Errorf("clipboard written for empty transcript: %q", copied)
	}
	if len(notes) != 0 {
		t.Errorf("notifications = %+v", notes)
	}
	if transcript == nil || *transcript != "" {
		t.Error("OnTranscript not called with empty text")
	}
}

func TestFailedTranscription(t *testing.T) {
	h := newHarness(t, &fakeAPI{pollResp: `{"id":"J","status":"failed"}`}, nil)
	h.record()
	h.wf.Stop()
	h.waitText("Error: Transcription failed")
	h.settle()

	copied, states, notes := h.host.snapshot()
	if len(copied) != 0 {
		t.Errorf("clipboard = %q", copied)
	}
	if len(notes) != 1 || notes[0].Title != "Transcription Error" || notes[0].Body != "Transcription failed" {
		t.Errorf("notifications = %+v", notes)
	}
	if states[len(states)-1] != bridge.Idle {
		t.Errorf("final taskbar state = %s, want idle", states[len(states)-1])
	}
}

func TestUploadWithoutURL(t *testing.T) {
	h := newHarness(t, &fakeAPI{uploadResp: `{}`}, nil)
	h.record()
	h.wf.Stop()
	h.waitText("Error: Upload failed")
	h.settle()

	_, _, notes := h.host.snapshot()
	if len(notes) != 1 || notes[0].Title != "Transcription Error" || notes[0].Body != "Upload failed" {
		t.Errorf("notifications = %+v", notes)
	}
	h.api.mu.Lock()
	defer h.api.mu.Unlock()
	if h.api.submits != 0 {
		t.Errorf("submission endpoint called %d times", h.api.submits)
	}
}

func TestSubmitWithoutID(t *testing.T) {
	h := newHarness(t, &fakeAPI{submitResp: `{}`}, nil)
	h.record()
	h.wf.Stop()
	h.waitText("Error: Transcription request failed")

	h.api.mu.Lock()
	defer h.api.mu.Unlock()
	if len(h.api.pollPaths) != 0 {
		t.Errorf("polled %v without a job id", h.api.pollPaths)
	}
}

func TestStartWhileRecording(t *testing.T) {
	h := newHarness(t, &fakeAPI{}, nil)
	h.record()

	if err := h.wf.Start(); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("second Start = %v, want ErrAlreadyRecording", err)
	}
	if n := h.acquires.Load(); n != 1 {
		t.Errorf("capture acquired %d times, want 1", n)
	}
	if s := h.wf.Status(); s.Phase != Listening {
		t.Errorf("status = %+v", s)
	}
}

func TestTrayClickWhileRecordingStops(t *testing.T) {
	h := newHarness(t, &fakeAPI{}, nil)
	h.record()

	h.wf.TrayClick()
	h.waitStatus(func(s Status) bool { return s.Phase != Listening })
	if h.closed.Load() != 1 {
		t.Errorf("capture not released by tray click")
	}
	h.waitText(StatusCopied)
	if n := h.acquires.Load(); n != 1 {
		t.Errorf("tray click opened %d captures", n)
	}
}

func TestTrayClickWhileIdleStarts(t *testing.T) {
	h := newHarness(t, &fakeAPI{}, nil)
	h.wf.TrayClick()
	h.waitText(StatusRecording)
}

func TestTrayClickDeliveredThroughBridge(t *testing.T) {
	h := newHarness(t, &fakeAPI{}, nil)
	h.settle() // subscribed once the first event is handled
	h.wf.opts.Bridge.(*bridge.Bridge).EmitTrayClick()
	h.waitText(StatusRecording)
}

func TestCancelDropsResult(t *testing.T) {
	api := &fakeAPI{gate: make(chan struct{})}
	h := newHarness(t, api, nil)
	h.record()
	h.wf.Stop()
	h.waitText(StatusTranscribing)

	h.wf.TrayClick()
	h.waitText(StatusCancelled)
	if s := h.wf.Status(); s.Phase != Idle {
		t.Errorf("phase after cancel = %s", s.Phase)
	}

	api.release()
	h.waitPollsServed(1)
	h.settle()

	copied, _, notes := h.host.snapshot()
	if len(copied) != 0 || len(notes) != 0 {
		t.Errorf("cancelled job surfaced: clipboard=%q notes=%+v", copied, notes)
	}
	if s := h.wf.Status(); s.Text != StatusCancelled {
		t.Errorf("status = %q, want %q", s.Text, StatusCancelled)
	}
}

func TestToggleWhileProcessingStartsNewRecording(t *testing.T) {
	api := &fakeAPI{gate: make(chan struct{})}
	h := newHarness(t, api, nil)
	h.record()
	h.wf.Toggle()
	h.waitText(StatusTranscribing)

	h.wf.Toggle()
	h.waitText(StatusRecording)
	if n := h.acquires.Load(); n != 2 {
		t.Fatalf("acquires = %d, want 2", n)
	}

	api.release()
	h.waitPollsServed(1)
	if s := h.wf.Status(); s.Text != StatusRecording {
		t.Errorf("stale job changed status to %q", s.Text)
	}
	if copied, _, _ := h.host.snapshot(); len(copied) != 0 {
		t.Errorf("stale job copied %q", copied)
	}

	h.wf.Toggle()
	h.waitText(StatusCopied)
	if copied, _, _ := h.host.snapshot(); len(copied) != 1 {
		t.Errorf("clipboard writes = %d, want 1", len(copied))
	}
}

func TestMissingAPIKey(t *testing.T) {
	b := bridge.New()
	host := &fakeHost{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Serve(ctx, host)

	var acquires int
	wf := New(Options{
		Bridge: b,
		Acquire: func(audio.DataCallback) (audio.CaptureDevice, error) {
			acquires++
			return nil, errors.New("unreachable")
		},
		NewAPI: func(string) API { t.Error("NewAPI called without a key"); return nil },
	})
	go wf.Run(ctx)

	want := "Error: AssemblyAI API key not found in environment variables"
	if err := wf.Start(); !errors.Is(err, config.ErrMissingAPIKey) {
		t.Fatalf("Start = %v, want ErrMissingAPIKey", err)
	}
	wf.TrayClick()
	wf.Toggle()
	if err := wf.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Stop = %v", err)
	}
	if s := wf.Status(); s.Text != want || s.Phase != Idle {
		t.Errorf("status = %+v", s)
	}
	if acquires != 0 {
		t.Errorf("microphone opened %d times", acquires)
	}
}

func TestMicrophoneError(t *testing.T) {
	h := newHarness(t, &fakeAPI{}, func(o *Options) {
		o.Acquire = func(audio.DataCallback) (audio.CaptureDevice, error) {
			return nil, fmt.Errorf("%w: permission denied", audio.ErrDevice)
		}
	})

	err := h.wf.Start()
	if !errors.Is(err, audio.ErrDevice) {
		t.Fatalf("Start = %v, want ErrDevice", err)
	}
	s := h.wf.Status()
	if s.Phase != Idle || s.Text != "Microphone error: microphone unavailable: permission denied" {
		t.Errorf("status = %+v", s)
	}
	_, _, notes := h.host.snapshot()
	if len(notes) != 1 || notes[0].Title != "Microphone Error" {
		t.Errorf("notifications = %+v", notes)
	}
}

func TestAutoPaste(t *testing.T) {
	h := newHarness(t, &fakeAPI{}, func(o *Options) { o.AutoPaste = true })
	h.record()
	h.wf.Stop()
	h.waitText(StatusCopied)

	h.wf.SetAutoPaste(false)
	h.record()
	h.wf.Stop()
	h.waitStatus(func(Status) bool { return h.countText(StatusCopied) == 2 })
	h.settle()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pastes != 1 {
		t.Errorf("pastes = %d, want 1", h.pastes)
	}
}

func TestSessionPCMOrder(t *testing.T) {
	s := newSession("r1")
	s.appendChunk([]byte{1, 2}, 1)
	buf := []byte{3, 4}
	s.appendChunk(buf, 1)
	buf[0] = 9 // callers reuse their buffers
	s.stop()
	s.appendChunk([]byte{5, 6}, 1)

	got := s.PCM()
	want := []byte{1, 2, 3, 4}
	if string(got) != string(want) {
		t.Errorf("PCM = %v, want %v", got, want)
	}
	if s.IsRecording() {
		t.Error("session still recording after stop")
	}
	p, err := s.Payload()
	if err != nil {
		t.Fatal(err)
	}
	if p.Frames != 2 {
		t.Errorf("payload frames = %d, want 2", p.Frames)
	}
}
