package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"dictate/audio"
	"dictate/beep"
	"dictate/bridge"
	"dictate/clipboard"
	"dictate/config"
	"dictate/log"
	"dictate/workflow"
)

const waitTimeout = 2 * time.Minute

// runTestMode replays a WAV file as the microphone and drives the app from
// stdin, one command per line:
//
//	TOGGLE | START | STOP | CLICK | CANCEL | PIN
//	LANG <code> | AUTOPASTE on|off
//	WAIT            block until the current job ends
//	WAIT_AUDIO_DONE block until the whole file has been captured
//	SLEEP <ms> | STATUS | QUIT
func runTestMode(cfg config.Config, wavPath string) int {
	beep.SetEnabled(false)

	fakeCtx, err := audio.NewFakeContext(wavPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		return 1
	}

	if cfg.AutoPaste {
		if err := clipboard.Init(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: paste init failed: %v\n", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := newTestDriver(cfg, fakeCtx, os.Stdout, clipboard.Copy)
	d.app.start(ctx)
	err = d.run(os.Stdin)
	log.SessionEnd(int(d.app.done.Load()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

type testDriver struct {
	app     *app
	out     *lineWriter
	settled chan struct{}
	capture atomic.Pointer[audio.FakeCapture]
}

func newTestDriver(cfg config.Config, ctx audio.Context, out io.Writer, copyFn func(string) error) *testDriver {
	lw := &lineWriter{w: out}
	d := &testDriver{out: lw, settled: make(chan struct{}, 1)}

	acquire := func(cb audio.DataCallback) (audio.CaptureDevice, error) {
		c, err := audio.Open(ctx, nil, captureConfig, cb)
		if fc, ok := c.(*audio.FakeCapture); ok {
			d.capture.Store(fc)
		}
		return c, err
	}

	d.app = newApp(appOptions{
		Config:  cfg,
		Acquire: acquire,
		Copy:    copyFn,
		Notify: func(title, body string) error {
			lw.printf("notification: %s | %s", title, body)
			return nil
		},
		SetTrayState: func(s bridge.TaskbarState) { lw.printf("tray: %s", s) },
		Paste: func() error {
			lw.printf("paste: %s", clipboard.PasteShortcut())
			return nil
		},
		Sinks: []EventSink{testSink{lw}},
	})

	prev := workflow.Idle
	d.app.OnStatus(func(st workflow.Status) {
		if st.Phase == workflow.Idle && prev == workflow.Processing {
			select {
			case d.settled <- struct{}{}:
			default:
			}
		}
		prev = st.Phase
	})
	return d
}

func (d *testDriver) run(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		cmd, arg, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		switch cmd {
		case "":
		case "TOGGLE":
			d.app.wf.Toggle()
		case "START":
			d.report("start", d.app.wf.Start())
		case "STOP":
			d.report("stop", d.app.wf.Stop())
		case "CLICK":
			d.app.shell.TrayClicked()
		case "CANCEL":
			d.report("cancel", d.app.wf.Cancel())
		case "PIN":
			d.out.printf("pinned: %v", d.app.bridge.ToggleAlwaysOnTop())
		case "LANG":
			d.app.SetLanguage(arg)
		case "AUTOPASTE":
			d.app.wf.SetAutoPaste(arg == "on")
		case "WAIT":
			select {
			case <-d.settled:
			case <-time.After(waitTimeout):
				return fmt.Errorf("WAIT: no result after %s", waitTimeout)
			}
		case "WAIT_AUDIO_DONE":
			if c := d.capture.Load(); c != nil {
				<-c.AudioDone()
			}
		case "SLEEP":
			ms, err := strconv.Atoi(arg)
			if err != nil {
				return fmt.Errorf("SLEEP %q: %w", arg, err)
			}
			time.Sleep(time.Duration(ms) * time.Millisecond)
		case "STATUS":
			st := d.app.wf.Status()
			d.out.printf("current: %s %s", st.Phase, st.Text)
		case "QUIT":
			return nil
		default:
			return fmt.Errorf("unknown command %q", cmd)
		}
	}
	return scanner.Err()
}

func (d *testDriver) report(what string, err error) {
	if err != nil {
		d.out.printf("%s: %v", what, err)
	}
}

// lineWriter serializes output from the workflow, bridge and driver.
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lineWriter) printf(format string, args ...any) {
	l.mu.Lock()
	fmt.Fprintf(l.w, format+"\n", args...)
	l.mu.Unlock()
}

type testSink struct{ out *lineWriter }

func (s testSink) Status(st workflow.Status) { s.out.printf("status: %s %s", st.Phase, st.Text) }
func (s testSink) Transcript(text string)    { s.out.printf("transcript: %q", text) }
func (s testSink) Level(float64)             {}
func (s testSink) Job(m log.JobMetrics) {
	s.out.printf("job: %.1fs audio, %.0f KB, %d polls", m.AudioLengthS, m.PayloadKB, m.Polls)
}
func (s testSink) Device(name string) { s.out.printf("device: %s", name) }
