package app

import (
	"fmt"
	"io"
)

// consoleReporter prints burn steps to out and copy progress to progress.
type consoleReporter struct {
	out      io.Writer
	progress io.Writer
}

func newConsoleReporter(out, progress io.Writer) *consoleReporter {
	return &consoleReporter{out: out, progress: progress}
}

func (r *consoleReporter) Step(msg string) {
	fmt.Fprintf(r.out, "==> %s\n", msg)
}

func (r *consoleReporter) Warn(msg string, err error) {
	fmt.Fprintf(r.out, "Warning: %s: %v\n", msg, err)
}

func (r *consoleReporter) Progress() io.Writer {
	return r.progress
}
