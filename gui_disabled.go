//go:build !gui

package main

import (
	"fmt"
	"os"

	"dictate/shell"
)

func initGUI() {
	fmt.Fprintln(os.Stderr, "dictate: built without GUI support (rebuild with -tags gui)")
	os.Exit(1)
}

func guiWindow() shell.Window { return nil }

func wireGUI(*app, func()) EventSink { return nil }

func quitGUI() {}
