package workflow

import (
	"strings"

	"dictate/bridge"
)

type Phase int

const (
	Idle Phase = iota
	Listening
	Processing
)

func (p Phase) String() string {
	switch p {
	case Listening:
		return "listening"
	case Processing:
		return "processing"
	}
	return "idle"
}

func (p Phase) TaskbarState() bridge.TaskbarState {
	switch p {
	case Listening:
		return bridge.Listening
	case Processing:
		return bridge.Processing
	}
	return bridge.Idle
}

// Status is what the user sees. The taskbar follows Phase, never Text.
type Status struct {
	Phase Phase
	Text  string
}

const (
	StatusReady        = "Ready"
	StatusRecording    = "Recording..."
	StatusProcessing   = "Processing audio..."
	StatusUploading    = "Uploading audio..."
	StatusTranscribing = "Transcribing..."
	StatusCancelled    = "Cancelled"
	StatusCopied       = "Transcription complete! (Copied to clipboard)"
	StatusComplete     = "Transcription complete."
)

const (
	titleComplete   = "Transcription Complete"
	bodyComplete    = "The transcription has been copied to your clipboard."
	titleError      = "Transcription Error"
	titleMicrophone = "Microphone Error"
)

// ClassifyStatus derives a phase from display text alone. The workflow
// never relies on it, but each of the fixed texts above classifies to the
// phase it is emitted with.
func ClassifyStatus(text string) Phase {
	switch {
	case strings.Contains(text, "Recording"):
		return Listening
	case strings.Contains(text, "Processing"),
		strings.Contains(text, "Uploading"),
		strings.Contains(text, "Transcribing"):
		return Processing
	}
	return Idle
}

type Action int

const (
	ActionStart Action = iota
	ActionStop
	ActionCancel
)

func (a Action) String() string {
	switch a {
	case ActionStop:
		return "stop"
	case ActionCancel:
		return "cancel"
	}
	return "start"
}

// NextAction is what a tray click means in a given phase.
func NextAction(p Phase) Action {
	switch p {
	case Listening:
		return ActionStop
	case Processing:
		return ActionCancel
	}
	return ActionStart
}
