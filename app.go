package main

import (
	"context"
	"sync"
	"sync/atomic"

	"dictate/assemblyai"
	"dictate/audio"
	"dictate/beep"
	"dictate/bridge"
	"dictate/config"
	"dictate/log"
	"dictate/shell"
	"dictate/workflow"
)

type appOptions struct {
	Config  config.Config
	Acquire func(cb audio.DataCallback) (audio.CaptureDevice, error)

	// Host side; nil Window means headless.
	Window       shell.Window
	Copy         func(text string) error
	Notify       func(title, body string) error
	SetTrayState func(bridge.TaskbarState)
	Paste        func() error

	Sinks []EventSink
}

// app wires one bridge, one host shell and one workflow together. Every
// front-end (terminal, GUI, tray, hotkey, test driver) drives the same app.
type app struct {
	cfg    config.Config
	bridge *bridge.Bridge
	shell  *shell.Shell
	wf     *workflow.Workflow
	stats  jobStats
	sinks  sinks
	done   atomic.Int64

	mu       sync.Mutex
	client   *assemblyai.Client
	lang     string
	onStatus []func(workflow.Status)
}

func newApp(o appOptions) *app {
	a := &app{cfg: o.Config, sinks: o.Sinks, lang: o.Config.Language}
	a.bridge = bridge.New()
	a.shell = shell.New(a.bridge, shell.Options{
		Window:       o.Window,
		LookupEnv:    o.Config.LookupEnv,
		Copy:         o.Copy,
		Notify:       o.Notify,
		SetTrayState: o.SetTrayState,
	})
	a.wf = workflow.New(workflow.Options{
		Bridge:       a.bridge,
		Acquire:      o.Acquire,
		NewAPI:       a.newAPI,
		AutoPaste:    o.Config.AutoPaste,
		Paste:        o.Paste,
		Cue:          beep.Play,
		OnStatus:     a.status,
		OnTranscript: a.transcript,
		OnLevel:      a.level,
		OnJob:        a.job,
	})
	return a
}

// start serves the bridge and runs the workflow until ctx ends.
func (a *app) start(ctx context.Context) {
	go a.bridge.Serve(ctx, a.shell)
	go func() {
		if err := a.wf.Run(ctx); err != nil {
			log.Errorf("workflow: %v", err)
		}
	}()
}

// addSink registers another display; call before start.
func (a *app) addSink(s EventSink) {
	a.sinks = append(a.sinks, s)
}

// OnStatus adds an observer next to the sinks, e.g. the hotkey reset.
func (a *app) OnStatus(fn func(workflow.Status)) {
	a.mu.Lock()
	a.onStatus = append(a.onStatus, fn)
	a.mu.Unlock()
}

func (a *app) newAPI(apiKey string) workflow.API {
	a.mu.Lock()
	defer a.mu.Unlock()
	c := assemblyai.New(apiKey, a.cfg.APIURL, a.cfg.PollInterval)
	c.SetLanguage(a.lang)
	a.client = c
	go warm(c)
	return c
}

// warm opens the connection early so the first upload skips the handshake.
func warm(c *assemblyai.Client) {
	tls, err := c.Warm()
	if err != nil {
		log.Warnf("api_warm_failed: %v", err)
		return
	}
	log.Infof("api_warm tls_ms=%d", tls.Milliseconds())
}

// SetLanguage applies to the next submitted job.
func (a *app) SetLanguage(code string) {
	a.mu.Lock()
	a.lang = code
	c := a.client
	a.mu.Unlock()
	if c != nil {
		c.SetLanguage(code)
	}
	log.Info("language: " + languageLabel(code))
}

func (a *app) Language() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lang
}

func (a *app) status(st workflow.Status) {
	a.mu.Lock()
	observers := a.onStatus
	a.mu.Unlock()
	for _, fn := range observers {
		fn(st)
	}
	a.sinks.Status(st)
}

func (a *app) level(v float64) {
	a.sinks.Level(v)
}

func (a *app) transcript(text string) {
	a.done.Add(1)
	a.sinks.Transcript(text)
}

func (a *app) job(m log.JobMetrics) {
	a.stats.add(m)
	a.sinks.Job(m)
}

// configured mirrors the workflow's startup check for front-ends that
// grey out recording.
func (a *app) configured() bool {
	key, ok := a.cfg.LookupEnv(config.APIKeyEnv)
	return ok && key != ""
}

func languageLabel(code string) string {
	if code == "" {
		return "auto"
	}
	return code
}
