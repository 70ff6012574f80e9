package platform

import (
	"context"
	"io"
	"strings"
)

type recordedCall struct {
	name string
	args []string
}

func (c recordedCall) String() string {
	return strings.Join(append([]string{c.name}, c.args...), " ")
}

// fakeRunner answers commands from canned outputs keyed by the full command line.
type fakeRunner struct {
	outputs map[string][]byte
	errs    map[string]error
	calls   []recordedCall
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{outputs: map[string][]byte{}, errs: map[string]error{}}
}

func (f *fakeRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	c := recordedCall{name: name, args: args}
	f.calls = append(f.calls, c)
	return f.outputs[c.String()], f.errs[c.String()]
}

func (f *fakeRunner) Stream(_ context.Context, stdout, _ io.Writer, name string, args ...string) error {
	c := recordedCall{name: name, args: args}
	f.calls = append(f.calls, c)
	if stdout != nil {
		_, _ = stdout.Write(f.outputs[c.String()])
	}
	return f.errs[c.String()]
}

func (f *fakeRunner) commandLines() []string {
	lines := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		lines = append(lines, c.String())
	}
	return lines
}
