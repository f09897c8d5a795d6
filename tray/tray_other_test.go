//go:build !darwin && !gui

package tray

import (
	"testing"
	"time"
)

func TestInitReturnsWithoutMainThreadLoop(t *testing.T) {
	prev := externalLoop
	defer func() { externalLoop = prev }()

	started := make(chan struct{})
	externalLoop = func(onReady, onExit func()) (func(), func()) {
		return func() { close(started) }, func() {}
	}

	done := make(chan (<-chan struct{}), 1)
	go func() { done <- Init() }()

	select {
	case q := <-done:
		if q == nil {
			t.Fatal("Init returned a nil quit channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Init blocked")
	}
	select {
	case <-started:
	default:
		t.Fatal("tray loop was not started")
	}
}
