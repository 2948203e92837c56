package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
)

func init() {
	// highgui window creation must happen on the main OS thread on macOS.
	runtime.LockOSThread()
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
