package main

import (
	"dictate/log"
	"dictate/workflow"
)

// EventSink abstracts the display layer so the terminal UI, the GUI window
// and the test driver receive the same workflow events.
type EventSink interface {
	Status(st workflow.Status)
	Transcript(text string)
	Level(level float64)
	Job(m log.JobMetrics)
	Device(name string)
}

// sinks fans every event out to each display.
type sinks []EventSink

func (s sinks) Status(st workflow.Status) {
	for _, d := range s {
		d.Status(st)
	}
}

func (s sinks) Transcript(text string) {
	for _, d := range s {
		d.Transcript(text)
	}
}

func (s sinks) Level(level float64) {
	for _, d := range s {
		d.Level(level)
	}
}

func (s sinks) Job(m log.JobMetrics) {
	for _, d := range s {
		d.Job(m)
	}
}

func (s sinks) Device(name string) {
	for _, d := range s {
		d.Device(name)
	}
}
