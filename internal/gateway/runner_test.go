package gateway

import (
	"context"
	"strings"
	"sync"
)

// call records one invocation of fakeRunner.
type call struct {
	dir  string
	name string
	args []string
}

// fakeRunner replays canned results in order and records every call.
type fakeRunner struct {
	mu      sync.Mutex
	outputs [][]byte
	errs    []error
	calls   []call
}

func (f *fakeRunner) Run(_ context.Context, dir, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := len(f.calls)
	f.calls = append(f.calls, call{dir: dir, name: name, args: args})

	var out []byte
	var err error
	if i < len(f.outputs) {
		out = f.outputs[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return out, err
}

func (c call) String() string {
	return c.name + " " + strings.Join(c.args, " ")
}
