// Package workflow turns toggle and tray-click events into recordings and
// transcriptions. All state lives in one goroutine (Run); capture callbacks
// and the network pipeline report back to it as events.
package workflow

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"dictate/assemblyai"
	"dictate/audio"
	"dictate/beep"
	"dictate/bridge"
	"dictate/config"
	"dictate/log"
)

var (
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
	ErrStopped          = errors.New("workflow stopped")
)

// API is the subset of the AssemblyAI client the pipeline needs.
type API interface {
	Upload(ctx context.Context, payload []byte) (string, *assemblyai.NetworkMetrics, error)
	Submit(ctx context.Context, audioURL string) (string, error)
	Poll(ctx context.Context, id string, onPoll func(assemblyai.Transcript)) (assemblyai.Transcript, error)
}

type Options struct {
	Bridge bridge.Capabilities

	// Acquire opens and starts the microphone, delivering chunks to cb.
	Acquire func(cb audio.DataCallback) (audio.CaptureDevice, error)

	// NewAPI builds the client once the API key has been read through the
	// bridge. It is not called when the key is missing.
	NewAPI func(apiKey string) API

	AutoPaste bool
	Paste     func() error
	Cue       func(beep.Cue)

	// Observers are called from the workflow goroutine, except OnLevel,
	// which runs on the capture thread, and OnJob, which runs on the
	// pipeline goroutine of a finished job, stale or not.
	OnStatus     func(Status)
	OnTranscript func(text string)
	OnLevel      func(level float64)
	OnJob        func(log.JobMetrics)
}

type Workflow struct {
	opts   Options
	events chan event
	done   chan struct{}
	once   sync.Once

	// owned by the Run goroutine
	api       API
	configErr error
	session   *RecordingSession
	activeRun string
	autoPaste bool

	mu     sync.Mutex
	status Status
}

func New(opts Options) *Workflow {
	return &Workflow{
		opts:      opts,
		events:    make(chan event, 32),
		done:      make(chan struct{}),
		status:    Status{Phase: Idle, Text: StatusReady},
		autoPaste: opts.AutoPaste,
	}
}

type event interface{}

type (
	toggleEvent    struct{}
	clickEvent     struct{}
	autoPasteEvent struct{ on bool }
	startRequest   struct{ reply chan error }
	stopRequest    struct{ reply chan error }
	cancelRequest  struct{ reply chan error }
	stageEvent     struct {
		runID string
		text  string
	}
	doneEvent struct {
		runID string
		text  string
		err   error
	}
)

// Run reads the API key and processes events until ctx ends. The same ctx
// bounds the pipeline's network calls; cancelling a job in the UI does not.
func (w *Workflow) Run(ctx context.Context) error {
	defer w.once.Do(func() { close(w.done) })

	w.configure()
	unsubscribe := w.opts.Bridge.OnTrayClick(w.TrayClick)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			if w.session != nil {
				w.session.stop()
				w.session = nil
			}
			return nil
		case ev := <-w.events:
			w.handle(ctx, ev)
		}
	}
}

func (w *Workflow) configure() {
	key, ok := w.opts.Bridge.GetEnvVar(config.APIKeyEnv)
	if !ok || key == "" || w.opts.NewAPI == nil {
		w.configErr = config.ErrMissingAPIKey
		log.Error("api_key_missing")
		w.setStatus(Idle, "Error: "+w.configErr.Error())
		return
	}
	w.api = w.opts.NewAPI(key)
	w.setStatus(Idle, StatusReady)
}

// Toggle starts a recording, or stops the current one.
func (w *Workflow) Toggle() { w.send(toggleEvent{}) }

// TrayClick starts, stops or cancels depending on the phase.
func (w *Workflow) TrayClick() { w.send(clickEvent{}) }

func (w *Workflow) SetAutoPaste(on bool) { w.send(autoPasteEvent{on: on}) }

// Start, Stop and Cancel are the synchronous forms used by the terminal
// and test front-ends.
func (w *Workflow) Start() error {
	return w.request(func(r chan error) event { return startRequest{r} })
}

func (w *Workflow) Stop() error {
	return w.request(func(r chan error) event { return stopRequest{r} })
}

func (w *Workflow) Cancel() error {
	return w.request(func(r chan error) event { return cancelRequest{r} })
}

func (w *Workflow) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

func (w *Workflow) send(ev event) bool {
	select {
	case w.events <- ev:
		return true
	case <-w.done:
		return false
	}
}

func (w *Workflow) request(mk func(chan error) event) error {
	reply := make(chan error, 1)
	if !w.send(mk(reply)) {
		return ErrStopped
	}
	select {
	case err := <-reply:
		return err
	case <-w.done:
		return ErrStopped
	}
}

func (w *Workflow) handle(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case toggleEvent:
		if w.recording() {
			w.stop(ctx)
		} else {
			w.start()
		}
	case clickEvent:
		w.click(ctx)
	case autoPasteEvent:
		w.autoPaste = ev.on
	case startRequest:
		ev.reply <- w.start()
	case stopRequest:
		ev.reply <- w.stop(ctx)
	case cancelRequest:
		ev.reply <- w.cancel()
	case stageEvent:
		if w.stale(ev.runID, "stage") {
			return
		}
		w.setStatus(Processing, ev.text)
	case doneEvent:
		if w.stale(ev.runID, "result") {
			return
		}
		w.activeRun = ""
		w.finish(ev)
	}
}

func (w *Workflow) click(ctx context.Context) {
	phase := w.Status().Phase
	action := NextAction(phase)
	log.Infof("tray_click phase=%s action=%s", phase, action)
	switch action {
	case ActionStop:
		w.stop(ctx)
	case ActionCancel:
		w.cancel()
	default:
		w.start()
	}
}

func (w *Workflow) recording() bool {
	return w.session != nil && w.session.IsRecording()
}

func (w *Workflow) start() error {
	if w.configErr != nil {
		w.setStatus(Idle, "Error: "+w.configErr.Error())
		return w.configErr
	}
	if w.recording() {
		return ErrAlreadyRecording
	}

	id := uuid.NewString()[:8]
	sess := newSession(id)
	recorder, err := w.opts.Acquire(func(data []byte, frames uint32) {
		sess.appendChunk(data, frames)
		if w.opts.OnLevel != nil {
			w.opts.OnLevel(audio.Level(data))
		}
	})
	if err != nil {
		log.RunError(id, "microphone_error", err)
		w.cue(beep.Error)
		w.setStatus(Idle, "Microphone error: "+err.Error())
		w.notify(titleMicrophone, err.Error())
		return err
	}
	sess.recorder = recorder

	if w.activeRun != "" {
		log.Run(w.activeRun, "job_superseded")
	}
	w.session = sess
	w.activeRun = id
	log.Run(id, "recording_start device="+recorder.DeviceName())
	w.cue(beep.Start)
	w.setStatus(Listening, StatusRecording)
	return nil
}

func (w *Workflow) stop(ctx context.Context) error {
	if !w.recording() {
		return ErrNotRecording
	}
	sess := w.session
	w.session = nil
	dur := sess.stop()
	log.Infof("recording_stop run=%s duration=%.1fs", sess.id, dur.Seconds())
	w.cue(beep.Stop)
	w.setStatus(Processing, StatusProcessing)

	go w.process(ctx, sess, w.api)
	return nil
}

// cancel only relabels the job; its requests keep running and their
// outcome is dropped when it arrives.
func (w *Workflow) cancel() error {
	if w.Status().Phase != Processing {
		return nil
	}
	log.Run(w.activeRun, "job_cancelled")
	w.activeRun = ""
	w.setStatus(Idle, StatusCancelled)
	return nil
}

func (w *Workflow) stale(runID, what string) bool {
	if runID == w.activeRun {
		return false
	}
	log.Run(runID, "stale_"+what+"_dropped")
	return true
}

func (w *Workflow) finish(ev doneEvent) {
	if ev.err != nil {
		msg := ev.err.Error()
		log.RunError(ev.runID, "transcription_error", ev.err)
		w.cue(beep.Error)
		w.setStatus(Idle, "Error: "+msg)
		w.notify(titleError, msg)
		return
	}

	if w.opts.OnTranscript != nil {
		w.opts.OnTranscript(ev.text)
	}
	if ev.text == "" {
		w.setStatus(Idle, StatusComplete)
		return
	}
	if !w.opts.Bridge.CopyToClipboard(ev.text) {
		log.Run(ev.runID, "clipboard_copy_failed")
		w.setStatus(Idle, StatusComplete)
		return
	}
	w.setStatus(Idle, StatusCopied)
	w.notify(titleComplete, bodyComplete)

	if w.autoPaste && w.opts.Paste != nil {
		if err := w.opts.Paste(); err != nil {
			log.RunError(ev.runID, "paste_error", err)
		}
	}
}

func (w *Workflow) setStatus(phase Phase, text string) {
	st := Status{Phase: phase, Text: text}
	w.mu.Lock()
	w.status = st
	w.mu.Unlock()

	w.opts.Bridge.SetTaskbarState(phase.TaskbarState())
	if w.opts.OnStatus != nil {
		w.opts.OnStatus(st)
	}
}

func (w *Workflow) notify(title, body string) {
	if !w.opts.Bridge.ShowNotification(bridge.Notification{Title: title, Body: body}) {
		log.Warnf("notification not shown: %s", title)
	}
}

func (w *Workflow) cue(c beep.Cue) {
	if w.opts.Cue != nil {
		w.opts.Cue(c)
	}
}
