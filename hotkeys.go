package main

import (
	"context"
	"errors"

	"dictate/hotkey"
	"dictate/log"
	"dictate/workflow"
)

type recorder interface {
	Start() error
	Stop() error
}

// runHotkeys turns hotkey presses into recorder calls until ctx ends.
// A press while a recording started from the tray or window is running
// stops that recording.
func runHotkeys(ctx context.Context, hy *hotkey.Hybrid, rec recorder) {
	for {
		select {
		case <-hy.Start():
			log.Info("hotkey_start")
			err := rec.Start()
			if err == nil {
				continue
			}
			hy.Reset()
			if !errors.Is(err, workflow.ErrAlreadyRecording) {
				log.Warnf("hotkey start: %v", err)
				continue
			}
			log.Info("hotkey_stop")
			if err := rec.Stop(); err != nil {
				log.Warnf("hotkey stop: %v", err)
			}
		case <-hy.StopChan():
			log.Info("hotkey_stop")
			if err := rec.Stop(); err != nil {
				log.Warnf("hotkey stop: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
