// Package bridge is the narrow message boundary between the host shell
// (window, tray, clipboard, notifications) and the transcription workflow.
// Every call is a request sent over a channel and answered by the single
// dispatcher goroutine running Serve; callers never touch host state.
package bridge

import (
	"context"
	"sync"

	"dictate/log"
)

type TaskbarState string

const (
	Idle       TaskbarState = "idle"
	Listening  TaskbarState = "listening"
	Processing TaskbarState = "processing"
)

func (s TaskbarState) Valid() bool {
	switch s {
	case Idle, Listening, Processing:
		return true
	}
	return false
}

type Notification struct {
	Title string
	Body  string
}

// Capabilities is everything the workflow side may ask of the host.
type Capabilities interface {
	GetEnvVar(name string) (string, bool)
	CopyToClipboard(text string) bool
	ToggleAlwaysOnTop() bool
	SetTaskbarState(state TaskbarState) bool
	ShowNotification(n Notification) bool
	OnTrayClick(cb func()) (unsubscribe func())
}

// Handler is the host implementation behind the dispatcher.
type Handler interface {
	GetEnvVar(name string) (string, bool)
	CopyToClipboard(text string) error
	ToggleAlwaysOnTop() bool
	SetTaskbarState(state TaskbarState) error
	ShowNotification(n Notification) error
}

type op int

const (
	opGetEnv op = iota
	opCopy
	opToggleTop
	opTaskbar
	opNotify
)

func (o op) String() string {
	switch o {
	case opGetEnv:
		return "get_env_var"
	case opCopy:
		return "copy_to_clipboard"
	case opToggleTop:
		return "toggle_always_on_top"
	case opTaskbar:
		return "set_taskbar_state"
	case opNotify:
		return "show_notification"
	}
	return "unknown"
}

type request struct {
	op    op
	arg   string
	state TaskbarState
	note  Notification
	reply chan response
}

type response struct {
	value string
	ok    bool
}

type Bridge struct {
	reqs     chan request
	done     chan struct{}
	doneOnce sync.Once

	mu     sync.Mutex
	subs   map[int]func()
	nextID int
}

func New() *Bridge {
	return &Bridge{
		reqs: make(chan request),
		done: make(chan struct{}),
		subs: make(map[int]func()),
	}
}

// Serve answers requests with h until ctx is cancelled. After it returns,
// every pending and future call fails.
func (b *Bridge) Serve(ctx context.Context, h Handler) {
	defer b.doneOnce.Do(func() { close(b.done) })
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-b.reqs:
			req.reply <- dispatch(h, req)
		}
	}
}

func dispatch(h Handler, req request) response {
	switch req.op {
	case opGetEnv:
		v, ok := h.GetEnvVar(req.arg)
		return response{value: v, ok: ok}
	case opCopy:
		if err := h.CopyToClipboard(req.arg); err != nil {
			log.Errorf("%s: %v", req.op, err)
			return response{}
		}
		return response{ok: true}
	case opToggleTop:
		return response{ok: h.ToggleAlwaysOnTop()}
	case opTaskbar:
		if !req.state.Valid() {
			log.Warnf("%s: unknown state %q", req.op, req.state)
			return response{}
		}
		if err := h.SetTaskbarState(req.state); err != nil {
			log.Errorf("%s: %v", req.op, err)
			return response{}
		}
		return response{ok: true}
	case opNotify:
		if err := h.ShowNotification(req.note); err != nil {
			log.Errorf("%s: %v", req.op, err)
			return response{}
		}
		return response{ok: true}
	}
	return response{}
}

func (b *Bridge) call(req request) response {
	req.reply = make(chan response, 1)
	select {
	case b.reqs <- req:
	case <-b.done:
		return response{}
	}
	select {
	case r := <-req.reply:
		return r
	case <-b.done:
		return response{}
	}
}

func (b *Bridge) GetEnvVar(name string) (string, bool) {
	r := b.call(request{op: opGetEnv, arg: name})
	return r.value, r.ok
}

func (b *Bridge) CopyToClipboard(text string) bool {
	return b.call(request{op: opCopy, arg: text}).ok
}

func (b *Bridge) ToggleAlwaysOnTop() bool {
	return b.call(request{op: opToggleTop}).ok
}

func (b *Bridge) SetTaskbarState(state TaskbarState) bool {
	return b.call(request{op: opTaskbar, state: state}).ok
}

func (b *Bridge) ShowNotification(n Notification) bool {
	return b.call(request{op: opNotify, note: n}).ok
}

// OnTrayClick registers cb for tray left-clicks. The returned func removes
// it and is safe to call more than once.
func (b *Bridge) OnTrayClick(cb func()) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = cb
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// EmitTrayClick is the host side of OnTrayClick.
func (b *Bridge) EmitTrayClick() {
	b.mu.Lock()
	subs := make([]func(), 0, len(b.subs))
	for _, cb := range b.subs {
		subs = append(subs, cb)
	}
	b.mu.Unlock()

	for _, cb := range subs {
		cb()
	}
}

var _ Capabilities = (*Bridge)(nil)
